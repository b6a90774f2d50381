// Package export renders drinks estimates into downloadable documents and
// hands them over, either as files on disk or as rows in the data store.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mmynk/wedplan/internal/calculator"
)

// Request is everything the export collaborator receives: the calculator
// state and the output computed from it.
type Request struct {
	GuestCount int
	Moments    []calculator.Moment
	Tier       calculator.Tier
	Servings   map[calculator.Moment]int
	Output     *calculator.Output

	// ShareLink reopens the calculator in the exported state. Optional.
	ShareLink string
	// RequestedBy is the user ID of the requesting session. Optional.
	RequestedBy string
	// RequestedByEmail is shown on the document as its recipient. Optional.
	RequestedByEmail string
}

// Receipt describes a completed export.
type Receipt struct {
	ID       string `json:"export_id"`
	Filename string `json:"filename"`
	// Location is where the document can be fetched: a path on disk or a
	// download URL.
	Location string `json:"download_url"`
}

// Document is a rendered export.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

const contentTypeHTML = "text/html; charset=utf-8"

// Renderer turns a Request into an HTML document.
type Renderer struct {
	tmpl     *template.Template
	currency string
	now      func() time.Time
}

// NewRenderer creates a renderer that prefixes amounts with currency.
func NewRenderer(currency string) *Renderer {
	return &Renderer{
		tmpl:     template.Must(template.New("estimate").Funcs(funcs).Parse(estimateTemplate)),
		currency: currency,
		now:      time.Now,
	}
}

var funcs = template.FuncMap{
	"count": func(n int) string { return humanize.Comma(int64(n)) },
	"money": func(v float64) string { return humanize.FormatFloat("#,###.##", v) },
}

type view struct {
	Request
	Currency    string
	GeneratedAt string
	Categories  []categoryView
	Unselected  []calculator.Moment
}

type categoryView struct {
	Category calculator.Category
	Bottles  int
}

// Render produces the document for req.
func (r *Renderer) Render(req Request) (*Document, error) {
	if req.Output == nil {
		return nil, fmt.Errorf("export request has no estimate")
	}

	now := r.now()
	v := view{
		Request:     req,
		Currency:    r.currency,
		GeneratedAt: now.Format("2 January 2006 15:04"),
	}
	for _, c := range calculator.Categories() {
		v.Categories = append(v.Categories, categoryView{Category: c, Bottles: req.Output.Bottles[c]})
	}
	selected := calculator.NewMomentSet(req.Moments...)
	for _, m := range calculator.Moments() {
		if !selected.Has(m) {
			v.Unselected = append(v.Unselected, m)
		}
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("failed to render estimate: %w", err)
	}

	return &Document{
		Filename:    fmt.Sprintf("drinks-estimate-%d-guests-%s.html", req.GuestCount, now.Format("2006-01-02")),
		ContentType: contentTypeHTML,
		Body:        buf.Bytes(),
	}, nil
}

const estimateTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Drinks estimate for {{count .GuestCount}} guests</title>
<style>
body { font-family: Georgia, serif; margin: 2rem auto; max-width: 42rem; color: #3b3030; }
table { border-collapse: collapse; width: 100%; margin: 1rem 0; }
th, td { border-bottom: 1px solid #e5d9d3; padding: .4rem; text-align: right; }
th:first-child, td:first-child { text-align: left; }
.total { font-size: 1.4rem; font-weight: bold; }
</style>
</head>
<body>
<h1>Drinks estimate</h1>
<p>{{count .GuestCount}} guests &middot; {{.Tier}} range &middot; generated {{.GeneratedAt}}</p>
{{- if .RequestedByEmail}}
<p>Prepared for {{.RequestedByEmail}}</p>
{{- end}}

<h2>By moment</h2>
{{- if .Output.Lines}}
<table>
<tr><th>Moment</th><th>Glasses per guest</th><th>Glasses</th><th>Bottles</th><th>Unit price</th><th>Cost</th></tr>
{{- range .Output.Lines}}
<tr><td>{{.Moment}} ({{.Category}})</td><td>{{index $.Servings .Moment}}</td><td>{{count .Glasses}}</td><td>{{count .Bottles}}</td><td>{{money .UnitPrice}} {{$.Currency}}</td><td>{{money .Cost}} {{$.Currency}}</td></tr>
{{- end}}
</table>
{{- else}}
<p>No moment selected.</p>
{{- end}}
{{- if .Unselected}}
<p>Not served: {{range $i, $m := .Unselected}}{{if $i}}, {{end}}{{$m}}{{end}}</p>
{{- end}}

<h2>Bottles to buy</h2>
<table>
<tr><th>Category</th><th>Bottles</th></tr>
{{- range .Categories}}
<tr><td>{{.Category}}</td><td>{{count .Bottles}}</td></tr>
{{- end}}
</table>

<p class="total">Total: {{money .Output.TotalCost}} {{.Currency}}</p>
{{- if .ShareLink}}
<p><a href="{{.ShareLink}}">Open this estimate in the calculator</a></p>
{{- end}}
</body>
</html>
`
