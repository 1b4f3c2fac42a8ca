// Package syncbus bridges in-process settings objects to the shared
// key-value bus the dashboard talks to. Keys are hierarchical, slash
// separated: camera/<id>/settings/<key>, camera/<id>/pipeline,
// camera/<id>/record, camera/<id>/metrics/<name>.
package syncbus

// Handler receives a remote change for one key.
type Handler func(key string, value interface{})

// Bus is the opaque pub/sub key-value store. Get reads the last known value,
// Set publishes a new one, Subscribe registers a remote-change listener and
// returns its unsubscribe func. The wire format is the implementation's
// concern.
type Bus interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}) error
	Subscribe(key string, h Handler) (func(), error)
	Close() error
}

// Key joins path segments into a bus key.
func Key(parts ...string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "/"
		}
		out += p
	}
	return out
}
