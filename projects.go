package folio

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/folio/pages"
	"github.com/eringen/folio/publish"
)

const (
	indexPath = "index.html"
	// pageFetchLimit bounds concurrent project page reads on GET.
	pageFetchLimit = 8
)

// projectsResponse is stagedFiles plus the index's resulting card order.
type projectsResponse struct {
	stagedFiles
	Projects []pages.Card `json:"projects"`
}

func projectPath(slug string) string {
	return "projects/" + slug + ".html"
}

func validSlug(slug string) error {
	switch {
	case strings.TrimSpace(slug) == "":
		return badRequest("slug required")
	case slug == "." || slug == "..",
		strings.ContainsAny(slug, "/\\\"<> "):
		return badRequest(fmt.Sprintf("invalid slug %q", slug))
	}
	return nil
}

func (a *App) handleGetProjects(c echo.Context) error {
	ctx := c.Request().Context()
	html, err := a.Store.GetFile(ctx, indexPath)
	if err != nil {
		return err
	}
	cards := pages.ParseProjects(html)
	return c.JSON(http.StatusOK, a.withPages(ctx, c, cards))
}

// withPages merges each card with its parsed project page. A page that
// cannot be read degrades to an empty single-video page.
func (a *App) withPages(ctx context.Context, c echo.Context, cards []pages.Card) []pages.Project {
	out := make([]pages.Project, len(cards))
	var g errgroup.Group
	g.SetLimit(pageFetchLimit)
	for i, card := range cards {
		g.Go(func() error {
			out[i].Card = card
			html, err := a.Store.GetFile(ctx, projectPath(card.Slug))
			if err != nil {
				c.Logger().Warnf("project page %s: %v", card.Slug, err)
				out[i].ProjectPage = pages.ProjectPage{
					PageType:  pages.PageSingle,
					VideoURLs: []string{},
					Posters:   []string{},
				}
				return nil
			}
			out[i].ProjectPage = pages.ParseProjectPage(html)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

type reorderRequest struct {
	Projects []pages.Card `json:"projects"`
}

func (a *App) handleReorderProjects(c echo.Context) error {
	var req reorderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}
	if req.Projects == nil {
		return badRequest("projects array required")
	}
	for _, p := range req.Projects {
		if err := validSlug(p.Slug); err != nil {
			return err
		}
	}
	html, err := a.Store.GetFile(c.Request().Context(), indexPath)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, projectsResponse{
		stagedFiles: stagedFiles{
			StagedFiles: []publish.File{{Path: indexPath, Content: pages.RebuildIndexHTML(html, req.Projects)}},
		},
		Projects: req.Projects,
	})
}

func checkProject(p pages.Project) error {
	if err := validSlug(p.Slug); err != nil {
		return err
	}
	if strings.TrimSpace(p.Title) == "" {
		return badRequest("slug and title required")
	}
	if p.PageType != "" && !p.PageType.Valid() {
		return badRequest(fmt.Sprintf("unknown page type %q", p.PageType))
	}
	return nil
}

func (a *App) handleCreateProject(c echo.Context) error {
	var p pages.Project
	if err := c.Bind(&p); err != nil {
		return badRequest("Invalid request body")
	}
	if err := checkProject(p); err != nil {
		return err
	}
	if p.VideoURLs == nil {
		p.VideoURLs = []string{""}
	}
	if p.Posters == nil {
		p.Posters = []string{""}
	}
	if p.Thumbnail == "" {
		p.Thumbnail = "images/" + p.Slug + ".webp"
	}

	page, err := pages.GenerateProjectPage(a.Config.Site(), p.Card, p.ProjectPage)
	if err != nil {
		return err
	}
	html, err := a.Store.GetFile(c.Request().Context(), indexPath)
	if err != nil {
		return err
	}
	cards := pages.ParseProjects(html)
	for _, existing := range cards {
		if existing.Slug == p.Slug {
			return badRequest(fmt.Sprintf("project %s already exists", p.Slug))
		}
	}
	cards = append(cards, p.Card)
	return c.JSON(http.StatusOK, projectsResponse{
		stagedFiles: stagedFiles{
			StagedFiles: []publish.File{
				{Path: indexPath, Content: pages.RebuildIndexHTML(html, cards)},
				{Path: projectPath(p.Slug), Content: page},
			},
		},
		Projects: cards,
	})
}

func (a *App) handleUpdateProject(c echo.Context) error {
	var p pages.Project
	if err := c.Bind(&p); err != nil {
		return badRequest("Invalid request body")
	}
	if err := checkProject(p); err != nil {
		return err
	}
	if p.VideoURLs == nil {
		p.VideoURLs = []string{""}
	}
	if p.Posters == nil {
		p.Posters = []string{}
	}
	page, err := pages.GenerateProjectPage(a.Config.Site(), p.Card, p.ProjectPage)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stagedFiles{
		StagedFiles: []publish.File{{Path: projectPath(p.Slug), Content: page}},
	})
}

type deleteRequest struct {
	Slug string `json:"slug" query:"slug"`
}

func (a *App) handleDeleteProject(c echo.Context) error {
	var req deleteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}
	if err := validSlug(req.Slug); err != nil {
		return err
	}
	html, err := a.Store.GetFile(c.Request().Context(), indexPath)
	if err != nil {
		return err
	}
	all := pages.ParseProjects(html)
	kept := make([]pages.Card, 0, len(all))
	for _, card := range all {
		if card.Slug != req.Slug {
			kept = append(kept, card)
		}
	}
	if len(kept) == len(all) {
		return badRequest(fmt.Sprintf("project %s not found", req.Slug))
	}
	return c.JSON(http.StatusOK, projectsResponse{
		stagedFiles: stagedFiles{
			StagedFiles:  []publish.File{{Path: indexPath, Content: pages.RebuildIndexHTML(html, kept)}},
			DeletedFiles: []string{projectPath(req.Slug)},
		},
		Projects: kept,
	})
}
