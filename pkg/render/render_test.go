package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gowso/bizsites/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	rec := model.LookupResponse{
		BusinessName: "Joe's Plumbing",
		Address:      "1 Main St",
		Phone:        "",
		MapsURL:      "https://maps.example/joe?a=1&b=2",
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "every occurrence",
			template: "{{business_name}} | {{business_name}}",
			want:     "Joe&#39;s Plumbing | Joe&#39;s Plumbing",
		},
		{
			name:     "missing field is empty",
			template: "call {{phone}} now",
			want:     "call  now",
		},
		{
			name:     "unknown token untouched",
			template: "{{business_name}} {{website}} {{ phone }}",
			want:     "Joe&#39;s Plumbing {{website}} {{ phone }}",
		},
		{
			name:     "url escaped",
			template: `<a href="{{maps_url}}">{{address}}</a>`,
			want:     `<a href="https://maps.example/joe?a=1&amp;b=2">1 Main St</a>`,
		},
		{
			name:     "no tokens",
			template: "static",
			want:     "static",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.template, rec))
		})
	}
}

func TestRenderEscapesMarkup(t *testing.T) {
	out := Render("{{business_name}}", model.LookupResponse{BusinessName: "<script>alert(1)</script>"})
	assert.Equal(t, "&lt;script&gt;alert(1)&lt;/script&gt;", out)
}

func TestRenderDropsUnsafeMapsURL(t *testing.T) {
	for _, raw := range []string{"javascript:alert(1)", "/relative/path", "maps.example/joe", "ftp://maps.example"} {
		assert.Equal(t, "[]", Render("[{{maps_url}}]", model.LookupResponse{MapsURL: raw}), raw)
	}
	assert.Equal(t, "[http://maps.example/x]", Render("[{{maps_url}}]", model.LookupResponse{MapsURL: " http://maps.example/x "}))
}

func TestLoadPage(t *testing.T) {
	page, err := LoadPage("")
	require.NoError(t, err)
	assert.Contains(t, page.Render(model.LookupResponse{BusinessName: "Acme"}), "<h1>Acme</h1>")

	path := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(path, []byte("<title>{{business_name}}</title>"), 0o600))
	page, err = LoadPage(path)
	require.NoError(t, err)
	assert.Equal(t, "<title>Acme</title>", page.Render(model.LookupResponse{BusinessName: "Acme"}))

	_, err = LoadPage(filepath.Join(t.TempDir(), "missing.html"))
	assert.ErrorContains(t, err, "failed to read page template")
}
