package pages

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

const (
	DefaultHeading     = "Hey there!"
	DefaultHeadshotSrc = "images/headshot.webp"

	logosMarker  = "<!-- Client logos -->"
	photosMarker = "<!-- Photo grids -->"
)

// About is the editable content of about.html.
type About struct {
	Heading     string   `json:"heading"`
	BioParas    []string `json:"bioParas"`
	ContactHTML string   `json:"contactHtml"`
	HeadshotSrc string   `json:"headshotSrc"`
	Photos      []string `json:"photos"`

	// LogosHTML is the client logos section, carried over untouched.
	LogosHTML string `json:"-"`
}

// ParseAboutPage extracts the about record from html.
func ParseAboutPage(html string) About {
	a := About{
		Heading:     DefaultHeading,
		BioParas:    []string{},
		HeadshotSrc: DefaultHeadshotSrc,
		Photos:      []string{},
	}
	if h, ok := between(html, "<h1>", "</h1>"); ok {
		a.Heading = strings.TrimSpace(h)
	}
	if bio, ok := block(html, `<div class="about-bio">`, "div"); ok {
		a.BioParas, a.ContactHTML = splitParagraphs(bio)
	}
	if src, ok := imgAfter(html, `<div class="about-headshot">`); ok {
		a.HeadshotSrc = src
	}
	if grid, ok := block(html, `<div class="about-photo-grid">`, "div"); ok {
		a.Photos = append(a.Photos, allBetween(grid, `<img src="`, `"`)...)
	}
	if logos, ok := between(html, logosMarker, photosMarker); ok {
		a.LogosHTML = strings.TrimSpace(logos)
	}
	return a
}

// splitParagraphs separates plain <p> paragraphs from the contact line.
func splitParagraphs(bio string) (paras []string, contact string) {
	paras = []string{}
	for {
		i := indexTag(bio, "<p")
		if i < 0 {
			return paras, contact
		}
		gt := strings.IndexByte(bio[i:], '>')
		if gt < 0 {
			return paras, contact
		}
		tag := bio[i : i+gt+1]
		rest := bio[i+gt+1:]
		end := strings.Index(rest, "</p>")
		if end < 0 {
			return paras, contact
		}
		text := strings.TrimSpace(rest[:end])
		switch tag {
		case "<p>":
			paras = append(paras, text)
		case `<p class="about-contact">`:
			contact = text
		}
		bio = rest[end+len("</p>"):]
	}
}

// AboutPage renders the full about.html document.
func AboutPage(site Site, a About) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pw{w: w}
		p.s(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>`, site.Owner, ` — About</title>
  <meta name="description" content="About `, site.Owner, ` — `, site.Tagline, `">
  <meta property="og:title" content="`, site.Owner, ` — About">
  <meta property="og:description" content="`, site.Tagline, `">
  <meta property="og:image" content="`, site.URL, `/images/og-image.jpg">
  <meta property="og:url" content="`, site.URL, `/about">
  <meta property="og:type" content="website">
  <meta name="twitter:card" content="summary_large_image">
  <meta name="twitter:image" content="`, site.URL, `/images/og-image.jpg">
  <link rel="preconnect" href="https://fonts.googleapis.com">
  <link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>
  <link href="https://fonts.googleapis.com/css2?family=Inter:wght@300;400;500;600&display=swap" rel="stylesheet">
  <link rel="stylesheet" href="css/style.css">
  <link rel="icon" type="image/png" href="images/favicon.png">
  <link rel="apple-touch-icon" href="images/apple-touch-icon.png">
</head>
<body class="page-about">

  <nav>
    <a href="index.html" class="nav-logo">`, site.logo(), `</a>
    <ul class="nav-links nav-menu">
      <li><a href="index.html">work</a></li>
      <li><a href="photography.html">photography</a></li>
      <li><a href="about.html" class="active">about</a></li>
    </ul>
    <div class="hamburger" aria-label="Toggle menu">
      <span></span>
      <span></span>
      <span></span>
    </div>
  </nav>

  <main>
    <!-- About content -->
    <div class="about-content">
      <div class="about-content-inner">
        <div class="about-hero">
          <div class="about-bio">
            <h1>`, a.Heading, `</h1>
`)
		for i, para := range a.BioParas {
			if i > 0 {
				p.s("\n")
			}
			p.s(`            <p>`, para, `</p>`)
		}
		if a.ContactHTML != "" {
			p.s("\n", `            <p class="about-contact">`, a.ContactHTML, `</p>`)
		}
		p.s(`
          </div>
          <div class="about-headshot">
            <img src="`, a.HeadshotSrc, `" alt="`, EscapeText(site.Owner), `">
          </div>
        </div>
      </div>
    </div>

    `, logosMarker, "\n")
		if logos := strings.TrimSpace(a.LogosHTML); logos != "" {
			p.s("    ", logos, "\n")
		}
		p.s(`
    `, photosMarker, `
    <div class="about-photo-grid">
`)
		for i, src := range a.Photos {
			if i > 0 {
				p.s("\n")
			}
			p.s(`      <div class="about-photo"><img src="`, src, `" alt="" loading="lazy"></div>`)
		}
		p.s(`
    </div>
  </main>

  <footer>
    <p>&copy; `, site.Year, ` `, site.Owner, `</p>
  </footer>

  <script src="js/main.js"></script>
</body>
</html>
`)
		return p.err
	})
}

// GenerateAboutPage renders a to a complete about.html. Text fields are
// inserted as given; bio paragraphs and the contact line may carry markup.
func GenerateAboutPage(site Site, a About) (string, error) {
	return Render(context.Background(), AboutPage(site, a))
}
