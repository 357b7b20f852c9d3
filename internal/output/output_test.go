package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ancheck/internal/search"
	"github.com/Aman-CERP/ancheck/internal/store"
)

func TestWriter_StatusIcons(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  string
	}{
		{"status", func(w *Writer) { w.Status("🔍", "Scanning roots") }, "🔍 Scanning roots\n"},
		{"no icon", func(w *Writer) { w.Status("", "detail") }, "   detail\n"},
		{"success", func(w *Writer) { w.Successf("Indexed %d entries", 12) }, "✅ Indexed 12 entries\n"},
		{"warning", func(w *Writer) { w.Warningf("%s skipped", "/proc") }, "⚠️  /proc skipped\n"},
		{"error", func(w *Writer) { w.Errorf("open %s", "db") }, "❌ open db\n"},
		{"statusf", func(w *Writer) { w.Statusf("•", "%d roots", 2) }, "• 2 roots\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.write(New(buf))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriter_Code_IndentsLines(t *testing.T) {
	buf := &bytes.Buffer{}

	New(buf).Code("index:\n  roots: []")

	assert.Equal(t, "\n  index:\n    roots: []\n\n", buf.String())
}

func TestWriter_Results(t *testing.T) {
	// Given: two results
	buf := &bytes.Buffer{}
	results := []*search.SearchResult{
		{Filename: "budget.xlsx", Filepath: "/docs/budget.xlsx", FileType: store.FileTypeDocument},
		{Filename: "Calculator.lnk", Filepath: "/apps/Calculator.lnk", FileType: store.FileTypeShortcut},
	}

	// When: printing them
	New(buf).Results("b", "", results)

	// Then: one numbered line per result
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], " 1. budget.xlsx"))
	assert.Contains(t, lines[0], "document")
	assert.Contains(t, lines[1], "/apps/Calculator.lnk")
}

func TestWriter_Results_MathAndEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Results("2*21", "42", nil)
	assert.Equal(t, "= 42\n", buf.String())

	buf.Reset()
	New(buf).Results("zzz", "", nil)
	assert.Equal(t, "No results for \"zzz\"\n", buf.String())
}

func TestWriter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}

	err := New(buf).JSON(SearchJSON{Query: "x", Results: []*search.SearchResult{}})

	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "x", decoded["query"])
	assert.NotContains(t, decoded, "math")
	assert.Equal(t, []any{}, decoded["results"])
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab  ", padRight("ab", 4))
	assert.Equal(t, "abc…", padRight("abcdef", 4))
}
