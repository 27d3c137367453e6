package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caffeineduck/tsbridge/compiler"
	"github.com/caffeineduck/tsbridge/internal/demo"
	"github.com/caffeineduck/tsbridge/script"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, strategy script.Strategy, opts ...func(*Options)) *httptest.Server {
	t.Helper()
	d, err := demo.New(quietLogger())
	require.NoError(t, err)

	o := Options{
		Dispatcher: d,
		Strategy:   strategy,
		HelperURL:  "/static/jquery.js",
		Logger:     quietLogger(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	ts := httptest.NewServer(New(o))
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, script.NewPrebuilt(nil))

	code, body := get(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)
}

func TestCommandEndpoint(t *testing.T) {
	ts := newTestServer(t, script.NewPrebuilt(nil))

	resp, err := http.PostForm(ts.URL+"/command", url.Values{"json": {`{"tag":"Echo","contents":"hi"}`}})
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"hi"`, string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	resp, err = http.PostForm(ts.URL+"/command", url.Values{"json": {"not valid json"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCommandEndpointCustomRoute(t *testing.T) {
	ts := newTestServer(t, script.NewPrebuilt(nil), func(o *Options) { o.Route = "/api/cmd" })

	resp, err := http.PostForm(ts.URL+"/api/cmd", url.Values{"json": {`{"tag":"Ping"}`}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCommandEndpointRateLimited(t *testing.T) {
	ts := newTestServer(t, script.NewPrebuilt(nil), func(o *Options) {
		o.RateLimit = 0.001
		o.RateBurst = 1
	})

	codes := make([]int, 0, 2)
	for range 2 {
		resp, err := http.PostForm(ts.URL+"/command", url.Values{"json": {`{"tag":"Ping"}`}})
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)

	code, _ := get(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, code, "pages are not rate limited")
}

func TestModulePagePrebuilt(t *testing.T) {
	ts := newTestServer(t, script.NewPrebuilt(map[string]string{"Main": `document.title = "built";`}))

	code, body := get(t, ts.URL+"/m/Main")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `<script src="/static/jquery.js"></script>`)
	assert.Contains(t, body, `document.title = "built";`)
	assert.Contains(t, body, `data-mode="ahead-of-time"`)
	assert.Less(t, strings.Index(body, "jquery.js"), strings.Index(body, "document.title"))
}

func TestModulePageUnknown(t *testing.T) {
	ts := newTestServer(t, script.NewPrebuilt(map[string]string{"Main": "x"}))

	code, body := get(t, ts.URL+"/m/Other")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body, "unknown module")
}

func TestModulePageCompileFailure(t *testing.T) {
	dir := t.TempDir()
	layout := script.Layout{ClientRoot: filepath.Join(dir, "client")}
	require.NoError(t, os.MkdirAll(layout.ClientRoot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(layout.ClientRoot, "Main.ts"), []byte("x"), 0o644))

	failing := compiler.CompilerFunc(func(ctx context.Context, entry string, cfg compiler.Config) (string, error) {
		return "", &compiler.CompileError{Entry: entry, Messages: []compiler.Message{{File: "Main.ts", Line: 3, Text: "Unexpected <"}}}
	})
	ts := newTestServer(t, script.NewReloader(layout, failing, compiler.Config{}, quietLogger()))

	code, body := get(t, ts.URL+"/m/Main")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Contains(t, body, "Main.ts:3:0: Unexpected &lt;")
}

func TestModulePageReloadsSource(t *testing.T) {
	dir := t.TempDir()
	layout := script.Layout{ClientRoot: filepath.Join(dir, "client")}
	src := filepath.Join(layout.ClientRoot, "Main.ts")
	require.NoError(t, os.MkdirAll(layout.ClientRoot, 0o755))
	require.NoError(t, os.WriteFile(src, []byte("v1"), 0o644))

	passthrough := compiler.CompilerFunc(func(ctx context.Context, entry string, cfg compiler.Config) (string, error) {
		data, err := os.ReadFile(entry)
		return "run_" + string(data) + "()", err
	})
	ts := newTestServer(t, script.NewReloader(layout, passthrough, compiler.Config{}, quietLogger()))

	_, body := get(t, ts.URL+"/m/Main")
	assert.Contains(t, body, "run_v1()")

	require.NoError(t, os.WriteFile(src, []byte("v2"), 0o644))
	resp, err := http.Get(ts.URL + "/m/Main")
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(data), "run_v2()")
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}

func TestIndexListsModules(t *testing.T) {
	ts := newTestServer(t, script.NewPrebuilt(map[string]string{"Main": "", "Pages.Home": ""}))

	code, body := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `<a href="/m/Main">Main</a>`)
	assert.Contains(t, body, `<a href="/m/Pages.Home">Pages.Home</a>`)
}

type panicStrategy struct{}

func (panicStrategy) Artifact(ctx context.Context, name string) (script.Artifact, error) {
	panic(errors.New("strategy exploded"))
}

func TestModulePagePanicRecovered(t *testing.T) {
	ts := newTestServer(t, panicStrategy{})

	code, _ := get(t, ts.URL+"/m/Main")
	assert.Equal(t, http.StatusInternalServerError, code)
}
