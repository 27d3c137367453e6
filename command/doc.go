// Package command implements the wire codec for client commands.
//
// # Overview
//
// A command is an application-defined value registered as one variant of a
// closed set. Client code sends commands as tagged JSON objects; the server
// decodes them back into the registered Go type.
//
//	reg := command.NewRegistry()
//	command.Register[Echo](reg)   // type Echo string
//	command.Register[Greet](reg)  // type Greet struct{ Name string `json:"name"` }
//
//	cmd, err := reg.Decode([]byte(`{"tag":"Echo","contents":"hi"}`))
//	// cmd == Echo("hi")
//
// # Wire Format
//
// Struct variants carry their fields inline next to the tag:
//
//	{"tag":"Greet","name":"Ada"}
//
// Empty struct variants carry only the tag:
//
//	{"tag":"Ping"}
//
// All other variants carry their value under "contents":
//
//	{"tag":"Echo","contents":"hi"}
//
// Decoding is all-or-nothing. Unknown tags, unknown keys, missing fields
// and mistyped values are rejected with [ErrUnknownCommand].
//
// # Results
//
// A [Returns] marker pins the result type of a command at compile time.
// Variants usually expose it through a method:
//
//	func (Echo) Returns() command.Returns[string] { return command.Expect[string]() }
//
// [EncodeResult] only needs the result value to be JSON-marshalable.
package command
