// Package script resolves client modules to compiled JavaScript.
//
// Module names are dotted paths under a fixed client root:
//
//	layout := script.Layout{ClientRoot: "client", SharedRoot: "shared"}
//	path, _ := layout.Resolve("Pages.Home") // client/Pages/Home.ts
//
// Two strategies implement Strategy. Build type checks and compiles every
// module once and returns a Prebuilt; GenerateGo turns that result into Go
// source so the JavaScript ships inside the binary. Reloader compiles the
// requested module on each call, for development.
//
// Both strategies first write the Bridge compatibility module into the
// client root so client code can import the command channel.
package script
