package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Render(t *testing.T) {
	r := New()

	t.Run("heading with anchor", func(t *testing.T) {
		out, err := r.Render("# Getting Started")
		require.NoError(t, err)
		assert.Contains(t, out, `<h1 id="getting-started">Getting Started</h1>`)
	})

	t.Run("tables", func(t *testing.T) {
		out, err := r.Render("| a | b |\n|---|---|\n| 1 | 2 |\n")
		require.NoError(t, err)
		assert.Contains(t, out, "<table>")
		assert.Contains(t, out, "<td>1</td>")
	})

	t.Run("strikethrough and autolinks", func(t *testing.T) {
		out, err := r.Render("~~old~~ see https://example.com")
		require.NoError(t, err)
		assert.Contains(t, out, "<del>old</del>")
		assert.Contains(t, out, `<a href="https://example.com">https://example.com</a>`)
	})

	t.Run("task lists", func(t *testing.T) {
		out, err := r.Render("- [x] done\n- [ ] todo\n")
		require.NoError(t, err)
		assert.Contains(t, out, `type="checkbox"`)
	})

	t.Run("raw html is omitted", func(t *testing.T) {
		out, err := r.Render("<script>alert(1)</script>\n\ntext")
		require.NoError(t, err)
		assert.NotContains(t, out, "<script>")
		assert.Contains(t, out, "<p>text</p>")
	})

	t.Run("empty input", func(t *testing.T) {
		out, err := r.Render("")
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}
