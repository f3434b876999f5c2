package models

// String methods for custom string types.
// These are required for toon serialization, which uses fmt.Stringer.

// State
func (s State) String() string { return string(s) }
