// Package tsbridge connects TypeScript client modules to Go handlers.
//
// # Overview
//
// Client code is written in TypeScript, compiled to JavaScript and embedded
// in server-rendered pages. It talks to the server through one command
// endpoint: a POST carrying a JSON-encoded command in the "json" field.
// Commands form a closed, tagged set shared by both sides, and each command
// declares the type of its result.
//
// # Basic Usage
//
//	reg := command.NewRegistry()
//	command.Register[Echo](reg)
//
//	router := dispatch.NewRouter()
//	dispatch.Handle(router, func(ctx context.Context, r *dispatch.Responder, cmd Echo) error {
//	    return dispatch.Respond(r, cmd.Returns(), string(cmd))
//	})
//
//	http.Handle("/command", dispatch.New(reg, router.Serve))
//
// # Compiling Client Modules
//
//	layout := script.Layout{ClientRoot: "client", SharedRoot: "shared"}
//
//	// Development: compile on every request.
//	strategy := script.NewReloader(layout, compiler.NewESBuild(), compiler.Config{}, nil)
//
//	// Production: type check and compile once.
//	strategy, err := script.Build(ctx, script.BuildOptions{
//	    Layout:   layout,
//	    Compiler: compiler.NewESBuild(),
//	    Checker:  compiler.DefaultChecker(),
//	})
//
// See the [command], [dispatch], [compiler], [script] and [server] packages
// for detailed API documentation, and cmd/tsbridge for the CLI.
package tsbridge
