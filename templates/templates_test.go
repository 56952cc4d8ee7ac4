package templates

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestMarkdown(t *testing.T) {
	out := string(Markdown("**Name:** Jane <script>alert(1)</script>"))

	assert.Contains(t, out, "<strong>Name:</strong>")
	assert.NotContains(t, out, "<script>")
}

func TestLoginEscapesValues(t *testing.T) {
	out := render(t, Login(LoginData{
		ClientID: `"><b>x`,
		Flash:    "Authorization failed: access_denied",
	}))

	assert.Contains(t, out, `action="/auth"`)
	assert.Contains(t, out, `<p class="error">Authorization failed: access_denied</p>`)
	assert.Contains(t, out, `value="&#34;&gt;&lt;b&gt;x"`)
	assert.NotContains(t, out, `"><b>x`)
	assert.NotContains(t, out, "already waiting")
}

func TestLoginLinksToDeveloperPortal(t *testing.T) {
	out := render(t, Login(LoginData{InProgress: true}))

	assert.Contains(t, out, `<a href="https://dev.fitbit.com/login"`)
	assert.Contains(t, out, "If you don't have API credentials")
	assert.Contains(t, out, `<p class="notice">An authorization is already waiting`)
	assert.NotContains(t, out, `<p class="error">`)
}

func TestDashboardSections(t *testing.T) {
	out := render(t, Dashboard(DashboardData{
		Date:       "2021-05-11",
		MaxDate:    "2021-05-12",
		APIVersion: 1,
		Assets:     []string{"https://go-echarts.github.io/go-echarts-assets/assets/echarts.min.js"},
		User:       Section{Title: "User Information", Summary: Markdown("**Age:** 34")},
		Sleep:      Section{Title: "Sleep", Notice: "No sleep data has been recorded for this day."},
		Heart: Section{Title: "Heart Rate", Charts: []Chart{
			{Element: `<div id="heart"></div>`, Script: `<script>var heart;</script>`},
		}},
	}))

	assert.Contains(t, out, `value="2021-05-11" max="2021-05-12"`)
	assert.Contains(t, out, `<p class="status">Authenticated. Using API version 1</p>`)
	assert.Contains(t, out, `<script src="https://go-echarts.github.io/go-echarts-assets/assets/echarts.min.js"></script>`)
	assert.Contains(t, out, "<section><h2>User Information</h2><p><strong>Age:</strong> 34</p>")
	assert.Contains(t, out, `<p class="notice">No sleep data has been recorded for this day.</p>`)
	assert.Contains(t, out, `<div id="heart"></div><script>var heart;</script></section>`)
}

func TestSectionErrorNotice(t *testing.T) {
	out := render(t, section(Section{Title: "Sleep", Notice: "Failed to download sleep: 500", IsError: true}))

	assert.Equal(t, `<section><h2>Sleep</h2><p class="error">Failed to download sleep: 500</p></section>`, out)
}

func TestErrorPage(t *testing.T) {
	out := render(t, Error("Page not found"))

	assert.Contains(t, out, "<title>Error</title>")
	assert.Contains(t, out, `<p class="error">Page not found</p>`)
	assert.Contains(t, out, `<a href="/">`)
}
