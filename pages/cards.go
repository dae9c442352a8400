package pages

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

const (
	gridMarker    = `<div class="grid-projects">`
	cardHrefStart = `<a href="projects/`
	studioSpan    = `<span class="studio">`
)

// Card is one project's entry in the index listing.
type Card struct {
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	Studio       string `json:"studio"`
	Role         string `json:"role"`
	Thumbnail    string `json:"thumbnail"`
	HasLaurels   bool   `json:"hasLaurels"`
	FrameCount   int    `json:"frameCount"`
	PreviewVideo string `json:"previewVideo"`
}

// ParseProjects returns the index's cards in display order. Input without
// any card yields an empty, non-nil slice.
func ParseProjects(html string) []Card {
	cards := []Card{}
	for {
		i := strings.Index(html, cardHrefStart)
		if i < 0 {
			return cards
		}
		rest := html[i+len(cardHrefStart):]
		q := strings.IndexByte(rest, '"')
		gt := strings.IndexByte(rest, '>')
		end := strings.Index(rest, "</a>")
		if q < 0 || gt < 0 || end < 0 || q > gt || gt > end {
			return cards
		}
		html = rest[end+len("</a>"):]
		if !strings.Contains(rest[q:gt], `class="project-card`) {
			continue
		}
		cards = append(cards, parseCard(strings.TrimSuffix(rest[:q], ".html"), rest[gt+1:end]))
	}
}

func parseCard(slug, body string) Card {
	c := Card{Slug: slug}
	if tag, ok := openTag(body, `<div class="project-thumb"`); ok {
		if v, ok := attr(tag, "data-frames"); ok {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.FrameCount = n
			}
		}
		if v, ok := attr(tag, "data-preview"); ok {
			c.PreviewVideo = v
		}
		body = body[strings.Index(body, tag):]
	}
	if src, ok := between(body, `<img src="`, `"`); ok {
		c.Thumbnail = src
	}
	c.HasLaurels = strings.Contains(body, "laurels-overlay")
	if title, ok := block(body, `<span class="project-title">`, "span"); ok {
		c.Title, c.Studio = splitTitle(title)
	}
	if role, ok := block(body, `<span class="project-role">`, "span"); ok {
		c.Role = UnescapeText(strings.TrimSpace(role))
	}
	return c
}

// splitTitle separates "Title · for <span class="studio">Studio</span>".
// Without the separator the whole fragment is the title.
func splitTitle(h string) (title, studio string) {
	h = strings.TrimSpace(h)
	i := strings.Index(h, studioSpan)
	if i < 0 {
		return UnescapeText(h), ""
	}
	head := strings.TrimSpace(h[:i])
	head = strings.TrimSpace(strings.TrimSuffix(head, "for"))
	if !strings.HasSuffix(head, "·") {
		return UnescapeText(h), ""
	}
	head = strings.TrimSpace(strings.TrimSuffix(head, "·"))
	s, _ := between(h[i:], studioSpan, "</span>")
	return UnescapeText(head), UnescapeText(strings.TrimSpace(s))
}

// CardComponent renders one project card.
func CardComponent(c Card) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := EscapeText(c.Title)
		p := &pw{w: w}
		p.s(`        <a href="projects/`, c.Slug, `.html" class="project-card grid-item fade-in">
          <div class="project-thumb"`)
		if c.PreviewVideo != "" {
			p.s(` data-preview="`, c.PreviewVideo, `"`)
		}
		if c.FrameCount > 0 {
			p.s(` data-frames="`, strconv.Itoa(c.FrameCount), `"`)
		}
		p.s(`>
            <img src="`, c.Thumbnail, `" alt="`, title, `" loading="lazy">`)
		if c.HasLaurels {
			p.s(`
            <div class="laurels-overlay">
              <img src="images/laurels-overlay.webp" alt="Festival Laurels">
            </div>`)
		}
		p.s(`
          </div>
          <div class="project-info">
            <span class="project-title">`, title)
		if c.Studio != "" {
			p.s(` · for <span class="studio">`, EscapeText(c.Studio), `</span>`)
		}
		p.s(`</span>
            <span class="project-role">`, EscapeText(c.Role), `</span>
          </div>
        </a>`)
		return p.err
	})
}

// GenerateCardHTML renders one card fragment.
func GenerateCardHTML(c Card) string {
	var b strings.Builder
	// strings.Builder does not fail
	_ = CardComponent(c).Render(context.Background(), &b)
	return b.String()
}

// RebuildIndexHTML replaces the contents of the grid-projects container with
// freshly generated cards in the given order. When the container or its
// closing tag cannot be found, html is returned unchanged.
func RebuildIndexHTML(html string, cards []Card) string {
	start := strings.Index(html, gridMarker)
	if start < 0 {
		return html
	}
	contentStart := start + len(gridMarker)
	end := matchClose(html, contentStart, "div")
	if end < 0 {
		return html
	}
	rendered := make([]string, len(cards))
	for i, c := range cards {
		rendered[i] = GenerateCardHTML(c)
	}
	return html[:contentStart] + "\n\n" + strings.Join(rendered, "\n\n") + "\n\n\n      " + html[end:]
}
