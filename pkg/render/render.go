// Package render fills business details into the shared page template.
package render

import (
	"fmt"
	"html"
	"net/url"
	"os"
	"strings"

	"github.com/gowso/bizsites/pkg/model"
)

const (
	TokenBusinessName = "{{business_name}}"
	TokenPhone        = "{{phone}}"
	TokenAddress      = "{{address}}"
	TokenMapsURL      = "{{maps_url}}"
)

const defaultTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{business_name}}</title>
</head>
<body>
<h1>{{business_name}}</h1>
<p>{{address}}</p>
<p><a href="tel:{{phone}}">{{phone}}</a></p>
<p><a href="{{maps_url}}">Find us on the map</a></p>
</body>
</html>
`

// Render replaces every known token in template with the matching HTML-escaped field. Unknown tokens are left
// alone and a missing field becomes the empty string.
func Render(template string, rec model.LookupResponse) string {
	return strings.NewReplacer(
		TokenBusinessName, html.EscapeString(rec.BusinessName),
		TokenPhone, html.EscapeString(rec.Phone),
		TokenAddress, html.EscapeString(rec.Address),
		TokenMapsURL, html.EscapeString(safeURL(rec.MapsURL)),
	).Replace(template)
}

// safeURL drops anything that is not an absolute http(s) URL so a stored value cannot become a javascript: link.
func safeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return raw
}

// Page is a template read once at startup.
type Page struct {
	template string
}

// LoadPage reads the template at path, or uses a minimal built-in page when path is empty.
func LoadPage(path string) (*Page, error) {
	if path == "" {
		return &Page{template: defaultTemplate}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page template: %w", err)
	}
	return &Page{template: string(data)}, nil
}

func (p *Page) Render(rec model.LookupResponse) string {
	return Render(p.template, rec)
}
