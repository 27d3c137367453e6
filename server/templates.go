package server

import "html/template"

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Module}} · {{.Title}}</title>
</head>
<body>
<div id="app"></div>
{{.Fragment}}
</body>
</html>
`))

var errorTemplate = template.Must(template.New("error").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Status}} · {{.Title}}</title>
</head>
<body>
<h1>{{.Module}}</h1>
<pre>{{.Error}}</pre>
</body>
</html>
`))

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
<ul>
{{- range .Modules}}
<li><a href="/m/{{.}}">{{.}}</a></li>
{{- else}}
<li>no modules</li>
{{- end}}
</ul>
</body>
</html>
`))
