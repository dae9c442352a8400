package pages

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// PageType is the layout of a project page.
type PageType string

const (
	PageSingle      PageType = "single"
	PageStacked     PageType = "stacked"
	PageGrid        PageType = "grid"
	PageDocumentary PageType = "documentary"
)

// Valid reports whether t names one of the four layouts.
func (t PageType) Valid() bool {
	switch t {
	case PageSingle, PageStacked, PageGrid, PageDocumentary:
		return true
	}
	return false
}

// ProjectPage is the editable content of projects/<slug>.html.
type ProjectPage struct {
	PageType  PageType `json:"pageType"`
	VideoURLs []string `json:"videoUrls"`
	Posters   []string `json:"posters"`
	Credit    string   `json:"credit"`

	// grid only
	VideoCaptions []string `json:"videoCaptions,omitempty"`
	// documentary only
	Description string `json:"description,omitempty"`
	DocPoster   string `json:"docPoster,omitempty"`
}

// Project is a card merged with its page, as the admin edits it.
type Project struct {
	Card
	ProjectPage
}

// ParseProjectPage extracts the page record. The layout is classified by
// structural marker in priority order: documentary, grid, stacked, single.
func ParseProjectPage(html string) ProjectPage {
	p := ProjectPage{
		PageType:  PageSingle,
		VideoURLs: []string{},
		Posters:   []string{},
	}
	p.VideoURLs = append(p.VideoURLs, allBetween(html, `data-src="`, `"`)...)
	for _, tag := range tagsNamed(html, "<img") {
		if !strings.Contains(tag, `class="video-poster"`) {
			continue
		}
		if src, ok := attr(tag, "src"); ok {
			p.Posters = append(p.Posters, src)
		}
	}
	if i := strings.Index(html, `<div class="project-credit">`); i >= 0 {
		rest := strings.TrimLeft(html[i+len(`<div class="project-credit">`):], " \t\r\n")
		if strings.HasPrefix(rest, "<p>") {
			if credit, ok := between(rest, "<p>", "</p>"); ok {
				p.Credit = strings.TrimSpace(credit)
			}
		}
	}

	switch {
	case strings.Contains(html, "doc-layout"):
		p.PageType = PageDocumentary
	case strings.Contains(html, "videos-grid"):
		p.PageType = PageGrid
	case strings.Contains(html, "videos-stacked"):
		p.PageType = PageStacked
	}

	switch p.PageType {
	case PageGrid:
		p.VideoCaptions = []string{}
		for _, c := range allBetween(html, `<p class="video-caption">`, "</p>") {
			p.VideoCaptions = append(p.VideoCaptions, strings.TrimSpace(c))
		}
	case PageDocumentary:
		if desc, ok := between(html, `<p class="doc-description">`, "</p>"); ok {
			p.Description = strings.TrimSpace(desc)
		}
		if src, ok := imgAfter(html, `<div class="doc-poster">`); ok {
			p.DocPoster = src
		}
	}
	return p
}

func at(list []string, i int) string {
	if i < len(list) {
		return list[i]
	}
	return ""
}

const playButton = `<button class="play-btn" aria-label="Play video"><svg viewBox="0 0 24 24" xmlns="http://www.w3.org/2000/svg"><polygon points="5,3 19,12 5,21"/></svg></button>`

func videoContainer(p *pw, indent, url, poster, alt string) {
	p.s(indent, `<div class="video-container" data-src="`, url, `">
`, indent, `  <img src="`, poster, `" alt="`, alt, `" class="video-poster">
`, indent, `  `, playButton, `
`, indent, `</div>`)
}

func videoBlock(p *pw, page ProjectPage, alt string) {
	if page.PageType == PageStacked && len(page.VideoURLs) > 1 {
		p.s(`        <div class="videos-stacked">
`)
		for i, url := range page.VideoURLs {
			if i > 0 {
				p.s("\n")
			}
			videoContainer(p, "        ", url, at(page.Posters, i), alt)
		}
		p.s(`
        </div>`)
		return
	}
	videoContainer(p, "        ", at(page.VideoURLs, 0), at(page.Posters, 0), alt)
}

func mainContent(p *pw, c Card, page ProjectPage) {
	title := EscapeText(c.Title)
	switch page.PageType {
	case PageGrid:
		p.s(`      <p class="project-role-label">`, EscapeText(c.Role), `.</p>
      <div class="videos-grid">
`)
		for i, url := range page.VideoURLs {
			if i > 0 {
				p.s("\n")
			}
			p.s(`        <div class="video-card">
`)
			videoContainer(p, "          ", url, at(page.Posters, i), title)
			p.s(`
          <p class="video-caption">`, at(page.VideoCaptions, i), `</p>
        </div>`)
		}
		p.s(`
      </div>`)
	case PageDocumentary:
		p.s(`      <div class="doc-layout">
        <div class="doc-main">
`)
		videoBlock(p, page, title)
		p.s(`
          <div class="laurels-marquee">
            <div class="laurels-track">
              <img src="../images/laurels-strip.webp" alt="Festival Laurels">
              <img src="../images/laurels-strip.webp" alt="Festival Laurels">
            </div>
          </div>
          <p class="doc-description">`, page.Description, `</p>
        </div>
        <div class="doc-sidebar">
          <div class="doc-poster">
            <img src="`, page.DocPoster, `" alt="`, title, ` - Poster">
          </div>
        </div>
      </div>`)
	default:
		credit := page.Credit
		if credit == "" {
			credit = EscapeText(c.Role) + "."
		}
		p.s(`      <div class="project-layout">
`)
		videoBlock(p, page, title)
		p.s(`
        <div class="project-credit">
          <p>`, credit, `</p>
        </div>
      </div>`)
	}
}

// ProjectPageComponent renders projects/<slug>.html.
func ProjectPageComponent(site Site, c Card, page ProjectPage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		studio := ""
		if c.Studio != "" {
			studio = " — " + EscapeText(c.Studio)
		}
		p := &pw{w: w}
		p.s(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>`, EscapeText(c.Title), studio, ` — `, site.Owner, `</title>
  <link rel="preconnect" href="https://fonts.googleapis.com">
  <link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>
  <link href="https://fonts.googleapis.com/css2?family=Inter:wght@300;400;500;600&display=swap" rel="stylesheet">
  <link rel="stylesheet" href="../css/style.css">
  <link rel="icon" type="image/png" href="../images/favicon.png">
  <link rel="apple-touch-icon" href="../images/apple-touch-icon.png">
</head>
<body>
  <nav>
    <a href="../index.html" class="nav-logo">`, site.logo(), `</a>
    <ul class="nav-links nav-menu">
      <li><a href="../index.html" class="active">work</a></li>
      <li><a href="../photography.html">photography</a></li>
      <li><a href="../about.html">about</a></li>
    </ul>
    <div class="hamburger" aria-label="Toggle menu"><span></span><span></span><span></span></div>
  </nav>
  <main>
    <div class="container-narrow">
      <a href="../index.html" class="back-link">Back to Work</a>
`)
		mainContent(p, c, page)
		p.s(`
    </div>
  </main>
  <footer><p>&copy; `, site.Year, ` `, site.Owner, `</p></footer>
  <script src="../js/main.js"></script>
</body>
</html>
`)
		return p.err
	})
}

// GenerateProjectPage renders the page for card c. An empty page type means
// single; an unknown one is an error.
func GenerateProjectPage(site Site, c Card, page ProjectPage) (string, error) {
	if page.PageType == "" {
		page.PageType = PageSingle
	}
	if !page.PageType.Valid() {
		return "", fmt.Errorf("pages: unknown page type %q", page.PageType)
	}
	if strings.TrimSpace(c.Slug) == "" {
		return "", fmt.Errorf("pages: project slug is required")
	}
	return Render(context.Background(), ProjectPageComponent(site, c, page))
}
