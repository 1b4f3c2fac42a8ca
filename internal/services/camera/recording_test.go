package camera

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-runtime-go/internal/models"
)

func TestRecordingSinkWritesFramedRecords(t *testing.T) {
	dir := t.TempDir()

	sink, err := OpenRecordingSink(dir, "cam-1")
	require.NoError(t, err)

	frame := models.NewFrame("cam-1", 4, 4)
	for i := 0; i < 3; i++ {
		require.NoError(t, sink.Write(frame))
	}
	require.NoError(t, sink.Close())

	assert.Equal(t, int64(3), sink.FrameCount())

	data, err := os.ReadFile(sink.Path())
	require.NoError(t, err)

	// 24-byte header plus 4x4 BGR payload per record.
	recordSize := 24 + 4*4*3
	require.Len(t, data, 3*recordSize)
	assert.Equal(t, []byte("VRF1"), data[:4])
	assert.Equal(t, []byte("VRF1"), data[recordSize:recordSize+4])
}

func TestRecordingSinkRejectsWriteAfterClose(t *testing.T) {
	sink, err := OpenRecordingSink(t.TempDir(), "cam-1")
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.Error(t, sink.Write(models.NewFrame("cam-1", 4, 4)))

	// Double close is a no-op.
	assert.NoError(t, sink.Close())
}
