package command

import "encoding/json"

// Returns marks the result type T expected by a command. It carries no data.
type Returns[T any] struct{}

// Expect returns the Returns marker for T.
func Expect[T any]() Returns[T] {
	return Returns[T]{}
}

// EncodeResult renders v as the JSON body of a command response.
// The marker only fixes T at the call site.
func EncodeResult[T any](_ Returns[T], v T) ([]byte, error) {
	return json.Marshal(v)
}
