package follower

import "fmt"

// ConfigError marks an invalid follow request. It is fatal: Follow surfaces it
// before any tracker starts.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Reason
}

func configErrorf(format string, args ...any) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}
