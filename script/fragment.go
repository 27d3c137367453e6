package script

import (
	"html/template"
	"regexp"
	"strings"
)

// FragmentOptions controls the markup around an artifact.
type FragmentOptions struct {
	// HelperURL is the client helper library the shim calls into (jQuery).
	// Empty omits the inclusion.
	HelperURL string
	// Route is the command endpoint the shim posts to.
	Route string
}

var fragmentTemplate = template.Must(template.New("fragment").Parse(
	`{{if .HelperURL}}<script src="{{.HelperURL}}"></script>
{{end}}<script>window.tsbridge = {route: {{.Route}}};</script>
<script data-module="{{.Module}}" data-mode="{{.Mode}}">{{.JS}}</script>
`))

type fragmentData struct {
	HelperURL string
	Route     string
	Module    string
	Mode      string
	JS        template.JS
}

// Fragment renders the script tags that load an artifact into a page: the
// helper library, the route configuration, then the module itself.
func Fragment(a Artifact, opts FragmentOptions) (template.HTML, error) {
	route := opts.Route
	if route == "" {
		route = "/command"
	}

	var b strings.Builder
	err := fragmentTemplate.Execute(&b, fragmentData{
		HelperURL: opts.HelperURL,
		Route:     route,
		Module:    a.Module,
		Mode:      a.Mode.String(),
		JS:        template.JS(escapeScript(a.JS)),
	})
	if err != nil {
		return "", err
	}
	return template.HTML(b.String()), nil
}

var scriptEnd = regexp.MustCompile(`(?i)</(script)`)

// escapeScript keeps compiled code from closing its own script element.
// HTML matches the end tag case-insensitively.
func escapeScript(js string) string {
	js = scriptEnd.ReplaceAllString(js, `<\/$1`)
	return strings.ReplaceAll(js, "<!--", `<\!--`)
}
