package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var deviceNumberRe = regexp.MustCompile(`video(\d+)$`)

// Enumerate scans for attached camera device nodes matching glob and returns
// them ordered by device number. Devices that cannot be opened for reading
// are skipped; enumeration never fails hard.
func Enumerate(glob string) []DeviceInfo {
	matches, err := filepath.Glob(glob)
	if err != nil {
		log.Error().Err(err).Str("glob", glob).Msg("Device enumeration failed")
		return nil
	}

	sort.Slice(matches, func(i, j int) bool {
		return deviceNumber(matches[i]) < deviceNumber(matches[j])
	})

	var devices []DeviceInfo
	for _, path := range matches {
		if !deviceReadable(path) {
			continue
		}
		devices = append(devices, DeviceInfo{
			ID:   StableID(path),
			Name: fmt.Sprintf("Camera %d", deviceNumber(path)),
			Path: path,
		})
	}
	return devices
}

// StableID derives a stable device id. Udev exposes a by-id symlink with the
// hardware serial for most UVC cameras; the device node path is the fallback.
// A device with neither gets a synthesized id.
func StableID(path string) string {
	byID, err := filepath.Glob("/dev/v4l/by-id/*")
	if err == nil {
		for _, link := range byID {
			resolved, err := filepath.EvalSymlinks(link)
			if err == nil && resolved == path {
				return filepath.Base(link)
			}
		}
	}
	if id := strings.TrimPrefix(path, "/dev/"); id != "" {
		return id
	}
	return SyntheticID()
}

// SyntheticID mints an id for a device with no stable identity at all.
func SyntheticID() string {
	return "camera-" + uuid.NewString()[:8]
}

func deviceReadable(path string) bool {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

func deviceNumber(path string) int {
	m := deviceNumberRe.FindStringSubmatch(path)
	if len(m) < 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
