// Package templates holds the page and panel components. Panels render with a stable
// element id so the SSE handler can patch them in place.
package templates

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"sales-dashboard/internal/analysis"
	"sales-dashboard/internal/services"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// PageData drives the full page. Render is nil until a dataset is uploaded.
type PageData struct {
	Render    *services.Render
	Selection services.Selection
	Flash     string
	Accept    string
	MaxUpload string
}

type option struct {
	Label    string
	Selected bool
}

var funcs = template.FuncMap{
	"markdown": renderMarkdown,
	"imgsrc":   func(uri string) template.URL { return template.URL(uri) },
	"options":  options,
	"message":  message,
	"number":   func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"signals":  signals,
	"script":   func() string { return datastarScript },
}

var views = template.Must(template.New("views").Funcs(funcs).Parse(`
{{define "page"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Sales Analysis App</title>
<script type="module" src="{{script}}"></script>
<style>
body{font-family:system-ui,sans-serif;margin:0;display:flex;min-height:100vh;color:#262730}
aside{width:300px;background:#f0f2f6;padding:1.5rem;box-sizing:border-box}
main{flex:1;padding:2rem 3rem;max-width:960px}
table{border-collapse:collapse;font-size:.9rem;margin:.5rem 0 1.5rem}
th,td{border:1px solid #e6e9ef;padding:.3rem .6rem;text-align:left}
th{background:#fafafa}
.error{background:#ffecec;color:#9c1c1c;padding:.75rem 1rem;border-radius:.4rem}
.info{background:#e8f1fb;color:#0b4a8b;padding:.75rem 1rem;border-radius:.4rem}
img.chart{max-width:100%;height:auto}
label{display:block;margin:1rem 0 .3rem;font-weight:600}
</style>
</head>
<body data-signals="{{signals .}}">
<aside>
<h2>📂 Input Options</h2>
<form method="post" action="/upload" enctype="multipart/form-data">
<label for="file">Upload your Sales Data</label>
<input id="file" type="file" name="file" accept="{{.Accept}}" required>
<p><small>Limit {{.MaxUpload}} per file</small></p>
<button type="submit">Upload</button>
</form>
{{if .Render}}
<label for="analysis-select">Choose Analysis Type</label>
<select id="analysis-select" data-bind-analysis data-on-change="@get('/sse/render')">
{{range options .Selection}}<option value="{{.Label}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>
{{end}}</select>
<label><input type="checkbox" data-bind-revenue data-on-change="@get('/sse/render')"{{if .Selection.Revenue}} checked{{end}}> 💰 Calculate Revenue</label>
<p><small><span data-text="$rows"></span> rows, <span data-text="$columns"></span> columns</small></p>
{{end}}
</aside>
<main>
<h1>📊 Sales Analysis App</h1>
{{with .Flash}}<p class="error">❌ {{.}}</p>{{end}}
{{if .Render}}
{{template "preview" .Render}}
{{template "missing" .Render}}
{{template "analysis" .Render}}
{{template "revenue" .Render}}
{{else}}
<p class="info">📂 Please upload a data file to begin analysis.</p>
{{end}}
</main>
</body>
</html>
{{end}}

{{define "table"}}<table>
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody>
</table>{{end}}

{{define "preview"}}<section id="preview">
<h3>🔍 Data Preview</h3>
<p><small>{{.Filename}}</small></p>
{{template "table" .Preview}}
</section>{{end}}

{{define "missing"}}<section id="missing">
<h3>⚠️ Missing Data Overview</h3>
<table>
<thead><tr><th>Column</th><th>Missing</th></tr></thead>
<tbody>{{range .NullCounts}}<tr><td>{{.Column}}</td><td>{{.Missing}}</td></tr>{{end}}</tbody>
</table>
</section>{{end}}

{{define "analysis"}}<section id="analysis">
{{with .Analysis}}{{if .Err}}<p class="error">❌ {{message .Err}}</p>
{{else}}<h3>{{.Result.Title}}</h3>
<img class="chart" alt="{{.Result.Chart.Title}}" src="{{imgsrc .ChartURI}}">
{{with .Result.Narrative}}<h3>🔍 Brief Analysis</h3>
{{markdown .}}{{end}}
{{end}}{{end}}</section>{{end}}

{{define "revenue"}}<section id="revenue">
{{with .Revenue}}{{if .Err}}<p class="error">❌ {{message .Err}}</p>
{{else}}<h3>💵 Revenue Preview</h3>
{{template "table" .Result.Preview}}
<h3>📌 Revenue by Product</h3>
<img class="chart" alt="Revenue by Product" src="{{imgsrc .ChartURI}}">
<table>
<thead><tr><th>Product_type</th><th>Revenue</th></tr></thead>
<tbody>{{range .Result.Totals}}<tr><td>{{.Product}}</td><td>{{number .Revenue}}</td></tr>{{end}}</tbody>
</table>
{{end}}{{end}}</section>{{end}}
`))

func component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return views.ExecuteTemplate(w, name, data)
	})
}

func Page(data PageData) templ.Component {
	return component("page", data)
}

func Preview(r *services.Render) templ.Component {
	return component("preview", r)
}

func Missing(r *services.Render) templ.Component {
	return component("missing", r)
}

func Analysis(r *services.Render) templ.Component {
	return component("analysis", r)
}

func Revenue(r *services.Render) templ.Component {
	return component("revenue", r)
}

// Panels returns the components patched on every pass, in page order.
func Panels(r *services.Render) []templ.Component {
	return []templ.Component{Preview(r), Missing(r), Analysis(r), Revenue(r)}
}

// RenderString renders a component into a string for an SSE patch.
func RenderString(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func renderMarkdown(md string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions &^ parser.MathJax)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.SkipHTML})
	return template.HTML(markdown.ToHTML([]byte(md), p, r))
}

func options(sel services.Selection) []option {
	kinds := analysis.Kinds()
	opts := make([]option, len(kinds))
	for i, k := range kinds {
		opts[i] = option{Label: k.String(), Selected: k == sel.Analysis}
	}
	return opts
}

// message is the user-facing text of a panel error.
func message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// signals seeds the client-side datastar store.
func signals(data PageData) string {
	label := data.Selection.Analysis.String()
	if _, ok := analysis.ParseKind(label); !ok {
		label = analysis.Kinds()[0].String()
	}

	rows, columns := 0, 0
	if data.Render != nil {
		rows, columns = data.Render.Rows, len(data.Render.Columns)
	}
	return fmt.Sprintf("{analysis: %q, revenue: %t, rows: %d, columns: %d}", label, data.Selection.Revenue, rows, columns)
}
