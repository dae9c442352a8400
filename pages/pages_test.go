package pages

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
)

var testSite = Site{
	Owner:   "Eli Harrigan",
	URL:     "https://example.com",
	Tagline: "Editor and colorist",
	Year:    "2025",
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestEscapeRoundTrip(t *testing.T) {
	tests := []string{
		"",
		"plain",
		"Tom & Jerry's",
		`say "hi"`,
		"&amp; already",
		"&#39;literal",
	}
	for _, s := range tests {
		if got := UnescapeText(EscapeText(s)); got != s {
			t.Errorf("round trip %q = %q", s, got)
		}
	}
}

func TestEscapeText(t *testing.T) {
	if got := EscapeText(`A & B's "C"`); got != "A &amp; B&#39;s &quot;C&quot;" {
		t.Errorf("got %q", got)
	}
	if got := EscapeText("<b>"); got != "<b>" {
		t.Errorf("angle brackets must pass through, got %q", got)
	}
}

func TestAboutRoundTrip(t *testing.T) {
	a := About{
		Heading:     "Hello!",
		BioParas:    []string{"First para.", `Second with <a href="x">link</a>.`},
		ContactHTML: `Say hi at <a href="mailto:a@b.c">a@b.c</a>`,
		HeadshotSrc: "images/me.webp",
		Photos:      []string{"images/p1.webp", "images/p2.webp"},
		LogosHTML:   `<div class="client-logos"><img src="images/logo1.png" alt="One"></div>`,
	}
	html, err := GenerateAboutPage(testSite, a)
	if err != nil {
		t.Fatalf("GenerateAboutPage: %v", err)
	}
	got := ParseAboutPage(html)
	if diff := cmp.Diff(a, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	again, err := GenerateAboutPage(testSite, got)
	if err != nil {
		t.Fatalf("GenerateAboutPage: %v", err)
	}
	if again != html {
		t.Error("regenerating a parsed page changed its bytes")
	}
	if n := strings.Count(again, logosMarker); n != 1 {
		t.Errorf("logos marker appears %d times", n)
	}

	doc := mustDoc(t, html)
	if n := doc.Find(".about-photo-grid img").Length(); n != 2 {
		t.Errorf("photo count = %d", n)
	}
	if src, _ := doc.Find(".about-headshot img").Attr("src"); src != "images/me.webp" {
		t.Errorf("headshot src = %q", src)
	}
	if got := doc.Find("title").Text(); got != "Eli Harrigan — About" {
		t.Errorf("title = %q", got)
	}
}

func TestAboutWithoutContact(t *testing.T) {
	html, err := GenerateAboutPage(testSite, About{Heading: "Hi", BioParas: []string{"one"}, HeadshotSrc: DefaultHeadshotSrc})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "about-contact") {
		t.Error("contact paragraph rendered without contact html")
	}
	a := ParseAboutPage(html)
	if a.ContactHTML != "" {
		t.Errorf("contact = %q", a.ContactHTML)
	}
	if a.LogosHTML != "" {
		t.Errorf("logos = %q", a.LogosHTML)
	}
}

func TestParseAboutDefaults(t *testing.T) {
	a := ParseAboutPage("<html><body>nothing here</body></html>")
	want := About{
		Heading:     DefaultHeading,
		BioParas:    []string{},
		HeadshotSrc: DefaultHeadshotSrc,
		Photos:      []string{},
	}
	if diff := cmp.Diff(want, a); diff != "" {
		t.Errorf("defaults (-want +got):\n%s", diff)
	}
}

func TestParseAboutNestedBio(t *testing.T) {
	html := `<div class="about-bio"><h1> Hi </h1>
<p>one</p>
<div class="aside"><p class="note">skip</p></div>
<p class="about-contact">mail</p>
<p>two</p>
</div><div class="about-headshot">
  <img src="h.webp" alt=""></div>`
	a := ParseAboutPage(html)
	if a.Heading != "Hi" {
		t.Errorf("heading = %q", a.Heading)
	}
	if diff := cmp.Diff([]string{"one", "two"}, a.BioParas); diff != "" {
		t.Errorf("paras (-want +got):\n%s", diff)
	}
	if a.ContactHTML != "mail" {
		t.Errorf("contact = %q", a.ContactHTML)
	}
	if a.HeadshotSrc != "h.webp" {
		t.Errorf("headshot = %q", a.HeadshotSrc)
	}
}

func TestCardRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		card Card
	}{
		{"minimal", Card{Slug: "a", Title: "A", Role: "Edit", Thumbnail: "images/a.webp"}},
		{"studio", Card{Slug: "tom-jerry", Title: "Tom & Jerry's", Studio: "Acme & Co", Role: "Director's cut", Thumbnail: "images/t.webp"}},
		{"extras", Card{Slug: "x", Title: `The "Big" One`, Role: "Color", Thumbnail: "images/x.webp", HasLaurels: true, FrameCount: 12, PreviewVideo: "videos/x.mp4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := `<div class="grid-projects">` + GenerateCardHTML(tt.card) + `</div>`
			got := ParseProjects(index)
			if len(got) != 1 {
				t.Fatalf("got %d cards", len(got))
			}
			if diff := cmp.Diff(tt.card, got[0]); diff != "" {
				t.Errorf("round trip (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCardMarkup(t *testing.T) {
	html := GenerateCardHTML(Card{Slug: "s", Title: "T", Studio: "S", Role: "R", Thumbnail: "images/s.webp", HasLaurels: true})
	doc := mustDoc(t, html)
	a := doc.Find("a.project-card")
	if href, _ := a.Attr("href"); href != "projects/s.html" {
		t.Errorf("href = %q", href)
	}
	if a.Find(".laurels-overlay img").Length() != 1 {
		t.Error("missing laurels overlay")
	}
	if got := a.Find(".studio").Text(); got != "S" {
		t.Errorf("studio = %q", got)
	}
	if _, ok := a.Find(".project-thumb").Attr("data-frames"); ok {
		t.Error("data-frames rendered for zero frame count")
	}
}

func TestParseProjectsSkipsOtherLinks(t *testing.T) {
	html := `<a href="projects/x.html">plain</a>` + GenerateCardHTML(Card{Slug: "y", Title: "Y", Role: "R"})
	got := ParseProjects(html)
	if len(got) != 1 || got[0].Slug != "y" {
		t.Fatalf("got %+v", got)
	}
	if cards := ParseProjects("<p>none</p>"); cards == nil || len(cards) != 0 {
		t.Errorf("empty input = %#v", cards)
	}
}

const indexPage = `<html><body>
    <div class="intro"><p>hi</p></div>
    <div class="grid-projects">
        <a href="projects/old.html" class="project-card grid-item fade-in">
          <div class="project-thumb"><img src="images/old.webp" alt="Old" loading="lazy"></div>
          <div class="project-info"><span class="project-title">Old</span><span class="project-role">R</span></div>
        </a>
    </div>
    <footer>f</footer>
</body></html>`

func TestRebuildIndexHTML(t *testing.T) {
	cards := []Card{
		{Slug: "a", Title: "A", Role: "r"},
		{Slug: "b", Title: "B", Role: "r"},
		{Slug: "c", Title: "C", Role: "r"},
	}
	out := RebuildIndexHTML(indexPage, cards)
	var slugs []string
	for _, c := range ParseProjects(out) {
		slugs = append(slugs, c.Slug)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, slugs); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(out, indexPage[:strings.Index(indexPage, gridMarker)]) {
		t.Error("prefix changed")
	}
	if !strings.HasSuffix(out, "</div>\n    <footer>f</footer>\n</body></html>") {
		t.Errorf("suffix changed: %q", out[len(out)-60:])
	}

	reordered := RebuildIndexHTML(out, []Card{cards[2], cards[0], cards[1]})
	slugs = slugs[:0]
	for _, c := range ParseProjects(reordered) {
		slugs = append(slugs, c.Slug)
	}
	if diff := cmp.Diff([]string{"c", "a", "b"}, slugs); diff != "" {
		t.Errorf("reorder (-want +got):\n%s", diff)
	}
}

func TestRebuildIndexHTMLMissingStructure(t *testing.T) {
	cards := []Card{{Slug: "a", Title: "A"}}
	for _, html := range []string{
		"<html>no grid</html>",
		`<div class="grid-projects"><div>unclosed`,
	} {
		if got := RebuildIndexHTML(html, cards); got != html {
			t.Errorf("RebuildIndexHTML(%q) = %q", html, got)
		}
	}
}

func TestProjectPageRoundTrip(t *testing.T) {
	card := Card{Slug: "p", Title: "Pier & Sea", Studio: "Wave", Role: "Editor"}
	tests := []struct {
		name string
		page ProjectPage
	}{
		{"single", ProjectPage{
			PageType:  PageSingle,
			VideoURLs: []string{"https://player.vimeo.com/video/1"},
			Posters:   []string{"../images/p.webp"},
			Credit:    `Edited by <a href="x">me</a>.`,
		}},
		{"stacked", ProjectPage{
			PageType:  PageStacked,
			VideoURLs: []string{"v1", "v2"},
			Posters:   []string{"p1", "p2"},
			Credit:    "Editor.",
		}},
		{"grid", ProjectPage{
			PageType:      PageGrid,
			VideoURLs:     []string{"v1", "v2", "v3"},
			Posters:       []string{"p1", "p2", "p3"},
			VideoCaptions: []string{"one", "two", "three"},
		}},
		{"documentary", ProjectPage{
			PageType:    PageDocumentary,
			VideoURLs:   []string{"v1"},
			Posters:     []string{"p1"},
			Description: "A film about the sea.",
			DocPoster:   "../images/poster.webp",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, err := GenerateProjectPage(testSite, card, tt.page)
			if err != nil {
				t.Fatalf("GenerateProjectPage: %v", err)
			}
			got := ParseProjectPage(html)
			if diff := cmp.Diff(tt.page, got); diff != "" {
				t.Errorf("round trip (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProjectPageDefaults(t *testing.T) {
	card := Card{Slug: "p", Title: "T", Studio: "S", Role: "Editor's cut"}
	html, err := GenerateProjectPage(testSite, card, ProjectPage{VideoURLs: []string{"v"}, Posters: []string{""}})
	if err != nil {
		t.Fatal(err)
	}
	doc := mustDoc(t, html)
	if got := doc.Find(".project-credit p").Text(); got != "Editor's cut." {
		t.Errorf("credit = %q", got)
	}
	if got := doc.Find("title").Text(); got != "T — S — Eli Harrigan" {
		t.Errorf("title = %q", got)
	}
	if href, _ := doc.Find("a.back-link").Attr("href"); href != "../index.html" {
		t.Errorf("back link = %q", href)
	}
}

func TestStackedWithOneVideoRendersSingle(t *testing.T) {
	html, err := GenerateProjectPage(testSite, Card{Slug: "p", Title: "T", Role: "R"},
		ProjectPage{PageType: PageStacked, VideoURLs: []string{"v"}, Posters: []string{"p"}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "videos-stacked") {
		t.Error("stacked wrapper rendered for one video")
	}
	if got := ParseProjectPage(html).PageType; got != PageSingle {
		t.Errorf("page type = %q", got)
	}
}

func TestProjectPageTypePriority(t *testing.T) {
	html := `<div class="videos-stacked"></div><div class="videos-grid"></div>`
	if got := ParseProjectPage(html).PageType; got != PageGrid {
		t.Errorf("got %q, want grid", got)
	}
	html += `<div class="doc-layout"></div>`
	if got := ParseProjectPage(html).PageType; got != PageDocumentary {
		t.Errorf("got %q, want documentary", got)
	}
	if got := ParseProjectPage("").PageType; got != PageSingle {
		t.Errorf("got %q, want single", got)
	}
}

func TestGenerateProjectPageErrors(t *testing.T) {
	if _, err := GenerateProjectPage(testSite, Card{Slug: "p"}, ProjectPage{PageType: "carousel"}); err == nil {
		t.Error("expected error for unknown page type")
	}
	if _, err := GenerateProjectPage(testSite, Card{}, ProjectPage{}); err == nil {
		t.Error("expected error for missing slug")
	}
}
