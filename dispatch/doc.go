// Package dispatch routes decoded client commands to server handlers and
// packages their results as JSON responses.
//
// # Overview
//
// A [Dispatcher] owns a [command.Registry] and a [Handler]. Each request
// goes through a fixed, linear pipeline:
//
//  1. read the "json" form field (missing: [ErrMissingPayload])
//  2. decode it (failure: [ErrUnparseableCommand])
//  3. call the handler once with a fresh [Responder]
//  4. return the body committed through [Respond]
//
// # Basic Usage
//
//	router := dispatch.NewRouter()
//	dispatch.Handle(router, func(ctx context.Context, r *dispatch.Responder, cmd Echo) error {
//	    return dispatch.Respond(r, cmd.Returns(), string(cmd))
//	})
//
//	d := dispatch.New(registry, router.Serve)
//	http.Handle("POST /command", d)
//
// # Responder Policy
//
// A Responder accepts exactly one response. A second call to [Respond]
// fails with [ErrAlreadyResponded] and leaves the first body in place.
// A handler that returns without responding fails the request with
// [ErrNoResponse]; the request never hangs.
package dispatch
