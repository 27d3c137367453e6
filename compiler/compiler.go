// Package compiler adapts the client-language toolchain: an in-process
// TypeScript compiler and an external type-check process.
package compiler

import (
	"context"
	"fmt"
	"strings"
)

// Config is the compile-time configuration passed with each entry file.
type Config struct {
	// SearchDirs are extra roots for bare imports ("Bridge", "Commands").
	SearchDirs []string
	Minify     bool
	SourceMap  bool
}

// Compiler turns one client source file into JavaScript.
type Compiler interface {
	Compile(ctx context.Context, entry string, cfg Config) (string, error)
}

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc func(ctx context.Context, entry string, cfg Config) (string, error)

func (f CompilerFunc) Compile(ctx context.Context, entry string, cfg Config) (string, error) {
	return f(ctx, entry, cfg)
}

// Message is one compiler diagnostic.
type Message struct {
	File     string
	Line     int // 1-based, 0 when unknown
	Column   int // 0-based
	Text     string
	LineText string
}

func (m Message) String() string {
	if m.File == "" {
		return m.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.File, m.Line, m.Column, m.Text)
}

// CompileError is the structured failure returned by a Compiler.
type CompileError struct {
	Entry    string
	Messages []Message
}

func (e *CompileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "compile %s", e.Entry)
	switch len(e.Messages) {
	case 0:
		b.WriteString(": failed")
	case 1:
		b.WriteString(": ")
		b.WriteString(e.Messages[0].String())
	default:
		fmt.Fprintf(&b, ": %d errors", len(e.Messages))
		for _, m := range e.Messages {
			b.WriteString("\n  ")
			b.WriteString(m.String())
		}
	}
	return b.String()
}
