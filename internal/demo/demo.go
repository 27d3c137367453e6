// Package demo is the sample application served by the tsbridge CLI. Its
// commands mirror examples/shared/Commands.ts.
package demo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caffeineduck/tsbridge/command"
	"github.com/caffeineduck/tsbridge/dispatch"
)

// Echo returns its contents unchanged.
type Echo string

func (Echo) Returns() command.Returns[string] { return command.Expect[string]() }

type Add struct {
	A int `json:"a"`
	B int `json:"b"`
}

func (Add) Returns() command.Returns[int] { return command.Expect[int]() }

type Greet struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

type Greeting struct {
	Message string `json:"message"`
	Length  int    `json:"length"`
}

func (Greet) Returns() command.Returns[Greeting] { return command.Expect[Greeting]() }

// Fib asks for the nth Fibonacci number.
type Fib int

func (Fib) Returns() command.Returns[int64] { return command.Expect[int64]() }

type Ping struct{}

func (Ping) Returns() command.Returns[string] { return command.Expect[string]() }

// MaxFib is the largest n whose Fibonacci number fits in an int64.
const MaxFib = 92

var ErrFibRange = fmt.Errorf("fib: n must be between 0 and %d", MaxFib)

// Registry returns the closed set of demo commands.
func Registry() (*command.Registry, error) {
	reg := command.NewRegistry()
	err := errors.Join(
		command.Register[Echo](reg),
		command.Register[Add](reg),
		command.Register[Greet](reg),
		command.Register[Fib](reg),
		command.Register[Ping](reg),
	)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Router routes every demo command.
func Router() *dispatch.Router {
	rt := dispatch.NewRouter()
	dispatch.Handle(rt, func(ctx context.Context, r *dispatch.Responder, cmd Echo) error {
		return dispatch.Respond(r, cmd.Returns(), string(cmd))
	})
	dispatch.Handle(rt, func(ctx context.Context, r *dispatch.Responder, cmd Add) error {
		return dispatch.Respond(r, cmd.Returns(), cmd.A+cmd.B)
	})
	dispatch.Handle(rt, func(ctx context.Context, r *dispatch.Responder, cmd Greet) error {
		name := strings.TrimSpace(cmd.Name)
		if name == "" {
			return errors.New("greet: name is empty")
		}
		if cmd.Title != "" {
			name = cmd.Title + " " + name
		}
		msg := "Hello, " + name + "!"
		return dispatch.Respond(r, cmd.Returns(), Greeting{Message: msg, Length: len(msg)})
	})
	dispatch.Handle(rt, func(ctx context.Context, r *dispatch.Responder, cmd Fib) error {
		n, err := Fibonacci(int(cmd))
		if err != nil {
			return err
		}
		return dispatch.Respond(r, cmd.Returns(), n)
	})
	dispatch.Handle(rt, func(ctx context.Context, r *dispatch.Responder, cmd Ping) error {
		return dispatch.Respond(r, cmd.Returns(), "pong")
	})
	return rt
}

// New returns a dispatcher for the demo application.
func New(logger *slog.Logger, opts ...dispatch.Option) (*dispatch.Dispatcher, error) {
	reg, err := Registry()
	if err != nil {
		return nil, err
	}
	rt := Router()
	if missing := rt.Missing(reg); len(missing) > 0 {
		return nil, fmt.Errorf("demo: no route for %s", strings.Join(missing, ", "))
	}
	if logger != nil {
		opts = append([]dispatch.Option{dispatch.WithLogger(logger)}, opts...)
	}
	return dispatch.New(reg, rt.Serve, opts...), nil
}

func Fibonacci(n int) (int64, error) {
	if n < 0 || n > MaxFib {
		return 0, ErrFibRange
	}
	var a, b int64 = 0, 1
	for range n {
		a, b = b, a+b
	}
	return a, nil
}
