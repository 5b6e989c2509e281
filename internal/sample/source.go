package sample

import "fmt"

// Source kinds accepted by NewSource.
const (
	SourceNative = "native"
	SourcePS     = "ps"
)

// NewSource returns the snapshot source named by kind; an empty kind
// selects the native source.
func NewSource(kind string) (Source, error) {
	switch kind {
	case "", SourceNative:
		return NewNativeSource(), nil
	case SourcePS:
		ps, err := NewPSSource()
		if err != nil {
			return nil, err
		}
		return ps, nil
	default:
		return nil, fmt.Errorf("unknown process source %q", kind)
	}
}
