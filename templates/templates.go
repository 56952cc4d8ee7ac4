package templates

import (
	"html/template"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Chart is a rendered go-echarts snippet.
type Chart struct {
	Element template.HTML
	Script  template.HTML
}

// Section is one block of the dashboard. When Notice is set the section shows
// it instead of its summary and charts.
type Section struct {
	Title   string
	Notice  string
	IsError bool
	Summary template.HTML
	Charts  []Chart
}

type DashboardData struct {
	Date       string
	MaxDate    string
	APIVersion int
	Flash      string
	Assets     []string
	User       Section
	Sleep      Section
	Heart      Section
}

type LoginData struct {
	ClientID     string
	ClientSecret string
	Flash        string
	InProgress   bool
}

// Markdown renders md to HTML. Raw HTML in the input is dropped.
func Markdown(md string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{Flags: html.SkipHTML})
	return template.HTML(markdown.ToHTML([]byte(md), p, r))
}
