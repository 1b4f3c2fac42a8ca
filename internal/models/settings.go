package models

import (
	"fmt"
	"sync"
)

// ValueKind is the wire type of one pipeline setting.
type ValueKind int

const (
	KindInt ValueKind = iota
	KindFloat
	KindBool
	KindString
)

// SettingSpec declares one allowed key in a pipeline settings schema.
type SettingSpec struct {
	Key     string
	Kind    ValueKind
	Min     float64 // numeric kinds only
	Max     float64
	Default interface{}
	// DeviceProperty names the capture device property this setting mirrors,
	// empty when the setting is pipeline-only.
	DeviceProperty string
}

// SettingsSchema is the fixed set of keys a pipeline type accepts.
type SettingsSchema []SettingSpec

func (s SettingsSchema) spec(key string) (SettingSpec, bool) {
	for _, sp := range s {
		if sp.Key == key {
			return sp, true
		}
	}
	return SettingSpec{}, false
}

// Keys lists schema keys in declaration order.
func (s SettingsSchema) Keys() []string {
	keys := make([]string, 0, len(s))
	for _, sp := range s {
		keys = append(keys, sp.Key)
	}
	return keys
}

// PipelineSettings is a typed key/value map with a fixed schema. Each settings
// object is owned by exactly one pipeline index and is never shared.
type PipelineSettings struct {
	schema SettingsSchema

	mu     sync.RWMutex
	values map[string]interface{}
}

// NewPipelineSettings builds a settings object seeded with schema defaults
// overlaid by initial. Keys in initial outside the schema are rejected.
func NewPipelineSettings(schema SettingsSchema, initial map[string]interface{}) (*PipelineSettings, error) {
	ps := &PipelineSettings{
		schema: schema,
		values: make(map[string]interface{}, len(schema)),
	}
	for _, sp := range schema {
		ps.values[sp.Key] = sp.Default
	}
	for key, val := range initial {
		if err := ps.Set(key, val); err != nil {
			return nil, err
		}
	}
	return ps, nil
}

// Schema returns the schema the settings were built from.
func (ps *PipelineSettings) Schema() SettingsSchema {
	return ps.schema
}

// Get reads one value. The second return is false for keys outside the schema.
func (ps *PipelineSettings) Get(key string) (interface{}, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	v, ok := ps.values[key]
	return v, ok
}

// GetInt reads a numeric value as int, tolerating float64 from JSON decoding.
func (ps *PipelineSettings) GetInt(key string) int {
	v, ok := ps.Get(key)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// Set validates and writes one value. Last write wins; concurrent local and
// remote writers are not ordered against each other.
func (ps *PipelineSettings) Set(key string, value interface{}) error {
	sp, ok := ps.schema.spec(key)
	if !ok {
		return fmt.Errorf("setting %q is not in the schema", key)
	}

	coerced, err := coerceValue(sp, value)
	if err != nil {
		return err
	}

	ps.mu.Lock()
	ps.values[key] = coerced
	ps.mu.Unlock()
	return nil
}

// Snapshot copies the current values, for persistence and bus publication.
func (ps *PipelineSettings) Snapshot() map[string]interface{} {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make(map[string]interface{}, len(ps.values))
	for k, v := range ps.values {
		out[k] = v
	}
	return out
}

func coerceValue(sp SettingSpec, value interface{}) (interface{}, error) {
	switch sp.Kind {
	case KindInt:
		n, ok := asFloat(value)
		if !ok {
			return nil, fmt.Errorf("setting %q wants an integer, got %T", sp.Key, value)
		}
		if sp.Min != 0 || sp.Max != 0 {
			if n < sp.Min || n > sp.Max {
				return nil, fmt.Errorf("setting %q out of range [%v, %v]: %v", sp.Key, sp.Min, sp.Max, n)
			}
		}
		return int(n), nil
	case KindFloat:
		n, ok := asFloat(value)
		if !ok {
			return nil, fmt.Errorf("setting %q wants a number, got %T", sp.Key, value)
		}
		if sp.Min != 0 || sp.Max != 0 {
			if n < sp.Min || n > sp.Max {
				return nil, fmt.Errorf("setting %q out of range [%v, %v]: %v", sp.Key, sp.Min, sp.Max, n)
			}
		}
		return n, nil
	case KindBool:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("setting %q wants a bool, got %T", sp.Key, value)
		}
		return b, nil
	case KindString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("setting %q wants a string, got %T", sp.Key, value)
		}
		return s, nil
	}
	return nil, fmt.Errorf("setting %q has unknown kind %d", sp.Key, sp.Kind)
}

func asFloat(value interface{}) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
