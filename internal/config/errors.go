package config

import "fmt"

// MissingKeyError indicates that a required variable is absent from both the
// process environment and the env file.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing required environment variable %s", e.Key)
}

// ParseError indicates that a variable is present but cannot be coerced to
// its expected type.
type ParseError struct {
	Key   string
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("environment variable %s: cannot parse %q as a number", e.Key, e.Value)
}

// RangeError indicates that a variable parsed successfully but falls outside
// its allowed range.
type RangeError struct {
	Key      string
	Value    float64
	Min, Max float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("environment variable %s: %g is outside [%g, %g]", e.Key, e.Value, e.Min, e.Max)
}
