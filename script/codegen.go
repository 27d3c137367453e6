package script

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"io"
	"sort"
	"text/template"
)

const importPath = "github.com/caffeineduck/tsbridge/script"

var goTemplate = template.Must(template.New("prebuilt").Parse(`// Code generated by tsbridge build. DO NOT EDIT.

package {{.Package}}

import "{{.Import}}"

// Modules holds the client modules compiled ahead of time.
var Modules = script.NewPrebuilt(map[string]string{
{{- range .Artifacts}}
	{{printf "%q" .Module}}: {{printf "%q" .JS}},
{{- end}}
})
`))

// GenerateGo writes a Go source file declaring the artifacts as a
// Prebuilt strategy named Modules in package pkg.
func GenerateGo(w io.Writer, pkg string, artifacts []Artifact) error {
	if !token.IsIdentifier(pkg) {
		return fmt.Errorf("generate: invalid package name %q", pkg)
	}

	sorted := append([]Artifact(nil), artifacts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Module < sorted[j].Module })

	var buf bytes.Buffer
	err := goTemplate.Execute(&buf, struct {
		Package   string
		Import    string
		Artifacts []Artifact
	}{pkg, importPath, sorted})
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("generate: format: %w", err)
	}
	_, err = w.Write(src)
	return err
}
