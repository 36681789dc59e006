package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"text/template"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickerlens-api/pkg/market"
)

func TestTemplateRender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("hello {{ .Name }} - {{ shout .Role }}"), 0o600))

	tpl, err := NewTemplate(path, template.FuncMap{"shout": strings.ToUpper})
	require.NoError(t, err)

	out, err := tpl.Render(map[string]any{"Name": "Alice", "Role": "analyst"})
	require.NoError(t, err)
	assert.Equal(t, "hello Alice - ANALYST", out)
}

func TestTemplateReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reload.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))

	tpl, err := NewTemplate(path, nil)
	require.NoError(t, err)
	digest := tpl.Digest()
	require.NotEmpty(t, digest)

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o600))
	require.NoError(t, tpl.Reload())

	out, err := tpl.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", out)
	assert.NotEqual(t, digest, tpl.Digest())
}

func TestBuiltinNarrative(t *testing.T) {
	tpl, err := Load("", NarrativeTemplate)
	require.NoError(t, err)

	out, err := tpl.Render(NarrativeData{
		Ticker: "AAPL",
		Name:   "Apple Inc.",
		News: []market.NewsItem{
			{Headline: "Apple beats estimates", Source: "Reuters", PublishedAt: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC), Summary: "Revenue grew."},
			{Headline: "iPhone demand steady"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Apple Inc. (AAPL)")
	assert.Contains(t, out, "1. [2025-03-14] Apple beats estimates (Reuters)")
	assert.Contains(t, out, "2. [undated] iPhone demand steady")
	assert.Contains(t, out, "Revenue grew.")
}

func TestBuiltinPeers(t *testing.T) {
	tpl, err := Builtin(PeersTemplate)
	require.NoError(t, err)
	out, err := tpl.Render(PeersData{Ticker: "AAPL", Name: "Apple Inc.", Count: 4})
	require.NoError(t, err)
	assert.Contains(t, out, "exactly 4")

	_, err = Builtin("missing.tmpl")
	require.Error(t, err)
}

func TestMissingKeyFails(t *testing.T) {
	tpl, err := Builtin(PeersTemplate)
	require.NoError(t, err)
	_, err = tpl.Render(map[string]any{"Ticker": "AAPL"})
	require.Error(t, err)
}
