// Package pages reads and writes the portfolio's hand-authored HTML pages:
// the about page, the project index and the per-project pages.
//
// Parsing never fails: missing structure degrades to the documented defaults
// so one malformed page cannot block edits to the others. Generation renders
// templ components that reproduce the site's fixed templates byte for byte,
// substituting only the data-bearing regions.
package pages

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Site is the identity baked into every generated page.
type Site struct {
	Owner    string // "Eli Harrigan"
	URL      string // canonical origin, no trailing slash
	Tagline  string // og:description of the about page
	LogoHTML string // nav logo markup; defaults to the escaped owner name
	Year     string // footer copyright year
}

func (s Site) logo() string {
	if s.LogoHTML != "" {
		return s.LogoHTML
	}
	return EscapeText(s.Owner)
}

var (
	textEscaper   = strings.NewReplacer("&", "&amp;", "'", "&#39;", `"`, "&quot;")
	textUnescaper = strings.NewReplacer("&#39;", "'", "&quot;", `"`, "&amp;", "&")
)

// EscapeText escapes user text for insertion into the templates. Only the
// characters the parsers decode are touched, so markup authored by hand in
// the same fields survives a round trip.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

// UnescapeText is the exact inverse of EscapeText.
func UnescapeText(s string) string {
	return textUnescaper.Replace(s)
}

// Render renders a component into a string.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// pw writes template segments and keeps the first write error.
type pw struct {
	w   io.Writer
	err error
}

func (p *pw) s(parts ...string) {
	for _, part := range parts {
		if p.err != nil {
			return
		}
		_, p.err = io.WriteString(p.w, part)
	}
}
