package main

import (
	"bytes"
	"context"
	"go/parser"
	"go/token"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/tsbridge/config"
	"github.com/caffeineduck/tsbridge/internal/demo"
)

func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// newProject lays out a minimal client tree that compiles without tsc.
func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		config.FileName: "[build]\nskip-typecheck = true\nminify = false\n\n[log]\nlevel = \"error\"\n",
		"shared/Commands.ts": `import { returns, Returns } from "Bridge";
export type Echo = { tag: "Echo"; contents: string };
export const echo = (s: string): [Echo, Returns<string>] => [{ tag: "Echo", contents: s }, returns<string>()];
`,
		"client/Main.ts": `import { send } from "Bridge";
import { echo } from "Commands";
const [cmd, r] = echo("from main");
send(cmd, r).then((v) => console.log(v));
`,
		"client/Pages/Home.ts": `console.log("home page");`,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestCLIHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, phrase := range []string{"tsbridge", "serve", "build", "compile", "shim", "console", "--config"} {
		if !strings.Contains(output, phrase) {
			t.Errorf("help output should contain %q", phrase)
		}
	}
}

func TestCLIServeHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "serve", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, phrase := range []string{"--addr", "--mode", "--rate-limit", "/command", "/m/{module}", "/health"} {
		if !strings.Contains(output, phrase) {
			t.Errorf("serve help output should contain %q", phrase)
		}
	}
}

func TestCLIBuildHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "build", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, phrase := range []string{"--out", "--package", "--watch", "--no-typecheck", "NewPrebuilt"} {
		if !strings.Contains(output, phrase) {
			t.Errorf("build help output should contain %q", phrase)
		}
	}
}

func TestCLIShim(t *testing.T) {
	dir := newProject(t)

	output, err := executeCommand(rootCmd, "shim", "--dir", dir)
	if err != nil {
		t.Fatalf("shim: %v\n%s", err, output)
	}

	want := filepath.Join(dir, "client", "Bridge.ts")
	if strings.TrimSpace(output) != want {
		t.Errorf("shim printed %q, want %q", output, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("shim not written: %v", err)
	}
}

func TestCLICompile(t *testing.T) {
	dir := newProject(t)

	output, err := executeCommand(rootCmd, "compile", "--dir", dir, "Main")
	if err != nil {
		t.Fatalf("compile: %v\n%s", err, output)
	}
	if !strings.Contains(output, "from main") {
		t.Errorf("compiled output should contain the module body, got:\n%s", output)
	}
	if !strings.Contains(output, "ajax") {
		t.Errorf("compiled output should bundle the Bridge shim, got:\n%s", output)
	}
}

func TestCLICompileUnknownModule(t *testing.T) {
	dir := newProject(t)

	_, err := executeCommand(rootCmd, "compile", "--dir", dir, "Nope")
	if err == nil || !strings.Contains(err.Error(), "unknown module") {
		t.Errorf("expected unknown module error, got %v", err)
	}
}

func TestCLIBuild(t *testing.T) {
	dir := newProject(t)
	out := filepath.Join(dir, "assets", "modules_gen.go")

	output, err := executeCommand(rootCmd, "build", "--dir", dir, "--out", out, "--package", "assets")
	if err != nil {
		t.Fatalf("build: %v\n%s", err, output)
	}

	src, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("generated file: %v", err)
	}
	file, err := parser.ParseFile(token.NewFileSet(), out, src, 0)
	if err != nil {
		t.Fatalf("generated file does not parse: %v", err)
	}
	if file.Name.Name != "assets" {
		t.Errorf("package = %q, want assets", file.Name.Name)
	}
	for _, want := range []string{`"Main"`, `"Pages.Home"`, "home page"} {
		if !bytes.Contains(src, []byte(want)) {
			t.Errorf("generated file should contain %s", want)
		}
	}
}

func TestCLIBuildTypeCheckFailure(t *testing.T) {
	dir := newProject(t)
	cfg := "[build]\nchecker = [\"false\"]\n\n[log]\nlevel = \"error\"\n"
	if err := os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := executeCommand(rootCmd, "build", "--dir", dir, "--module", "Pages.Home", "--out", filepath.Join(dir, "gen.go"))
	if err == nil {
		t.Fatal("expected build to fail")
	}
	if !strings.Contains(err.Error(), "Pages.Home") || !strings.Contains(err.Error(), "typecheck") {
		t.Errorf("error should name the module and stage, got: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "gen.go")); !os.IsNotExist(err) {
		t.Error("failed build must not write output")
	}
}

func TestServeHandlerReload(t *testing.T) {
	dir := newProject(t)
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Server.Mode = config.ModeReload

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h, err := newHandler(context.Background(), cfg, logger)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/m/Main", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "from main") {
		t.Errorf("page should embed the compiled module")
	}

	form := url.Values{"json": {`{"tag":"Add","a":20,"b":22}`}}
	req = httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "42" {
		t.Errorf("expected 200 42, got %d %q", w.Code, w.Body.String())
	}
}

func TestServeHandlerAOTFailsFast(t *testing.T) {
	dir := newProject(t)
	if err := os.WriteFile(filepath.Join(dir, "client", "Broken.ts"), []byte("let x: = ;"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Server.Mode = config.ModeAOT

	_, err = newHandler(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil || !strings.Contains(err.Error(), "Broken") {
		t.Errorf("expected build failure naming Broken, got %v", err)
	}
}

type scriptedReader struct {
	lines []string
}

func (r *scriptedReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func TestConsoleLoop(t *testing.T) {
	d, err := demo.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}

	in := &scriptedReader{lines: []string{
		`{"tag":"Echo","contents":"hi"}`,
		"",
		"not json",
		":tags",
		`{"tag":"Fib","contents":10}`,
		"exit",
		`{"tag":"Ping"}`,
	}}
	var out bytes.Buffer
	consoleLoop(context.Background(), in, &out, d)

	got := out.String()
	for _, want := range []string{`"hi"`, "error: unparseable_command", "Greet", "55"} {
		if !strings.Contains(got, want) {
			t.Errorf("console output should contain %q, got:\n%s", want, got)
		}
	}
	if strings.Contains(got, "pong") {
		t.Error("console should stop at exit")
	}
}
