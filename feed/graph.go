// Package feed serves the site's recent social posts from the Facebook Graph
// API, behind an in-memory cache.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://graph.facebook.com/v19.0"
	mediaFields    = "id,caption,media_url,permalink,thumbnail_url,media_type,timestamp"
)

// ErrNoToken is returned when no Graph API token is configured.
var ErrNoToken = errors.New("feed: instagram token not configured")

// Post is one image post as the site shows it.
type Post struct {
	ID      string `json:"id"`
	Src     string `json:"src"`
	Link    string `json:"link"`
	Caption string `json:"caption"`
	Date    string `json:"date"`
}

// Source loads the most recent posts.
type Source interface {
	Recent(ctx context.Context, limit int) ([]Post, error)
}

// UpstreamError reports a failed Graph API call.
type UpstreamError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return "graph api error"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "request failed"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("graph api %s: HTTP %d: %s", e.Path, e.StatusCode, msg)
	}
	return fmt.Sprintf("graph api %s: %s", e.Path, msg)
}

// GraphClient finds the Instagram business account linked to the token's
// Facebook pages and lists its media.
type GraphClient struct {
	Token   string
	BaseURL string
	HTTP    *http.Client
}

// NewGraphClient returns a client for token with a bounded HTTP timeout.
func NewGraphClient(token string) *GraphClient {
	return &GraphClient{
		Token:   token,
		BaseURL: DefaultBaseURL,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

type graphError struct {
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (g *GraphClient) get(ctx context.Context, path string, params url.Values, token string, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", token)
	base := g.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u := strings.TrimRight(base, "/") + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	client := g.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return &UpstreamError{Path: path, Message: err.Error()}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &UpstreamError{Path: path, StatusCode: resp.StatusCode, Message: err.Error()}
	}

	var ge graphError
	_ = json.Unmarshal(body, &ge)
	if ge.Error != nil {
		return &UpstreamError{Path: path, StatusCode: resp.StatusCode, Message: ge.Error.Message}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{Path: path, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &UpstreamError{Path: path, StatusCode: resp.StatusCode, Message: "decode: " + err.Error()}
	}
	return nil
}

type account struct {
	ID          string
	AccessToken string
}

func (g *GraphClient) findAccount(ctx context.Context) (account, error) {
	var pages struct {
		Data []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := g.get(ctx, "/me/accounts", url.Values{"fields": {"id,name,access_token"}}, g.Token, &pages); err != nil {
		return account{}, err
	}
	if len(pages.Data) == 0 {
		return account{}, &UpstreamError{Path: "/me/accounts", Message: "no Facebook pages found; link the Instagram account to a page"}
	}
	for _, p := range pages.Data {
		var info struct {
			IG *struct {
				ID string `json:"id"`
			} `json:"instagram_business_account"`
		}
		if err := g.get(ctx, "/"+p.ID, url.Values{"fields": {"instagram_business_account"}}, p.AccessToken, &info); err != nil {
			return account{}, err
		}
		if info.IG != nil && info.IG.ID != "" {
			return account{ID: info.IG.ID, AccessToken: p.AccessToken}, nil
		}
	}
	return account{}, &UpstreamError{Path: "/me/accounts", Message: "no Instagram business account found on the Facebook pages"}
}

// Recent returns up to limit image and carousel posts, newest first.
func (g *GraphClient) Recent(ctx context.Context, limit int) ([]Post, error) {
	if g.Token == "" {
		return nil, ErrNoToken
	}
	acct, err := g.findAccount(ctx)
	if err != nil {
		return nil, err
	}
	var media struct {
		Data []struct {
			ID        string `json:"id"`
			Caption   string `json:"caption"`
			MediaURL  string `json:"media_url"`
			Permalink string `json:"permalink"`
			MediaType string `json:"media_type"`
			Timestamp string `json:"timestamp"`
		} `json:"data"`
	}
	params := url.Values{"fields": {mediaFields}, "limit": {strconv.Itoa(limit)}}
	if err := g.get(ctx, "/"+acct.ID+"/media", params, acct.AccessToken, &media); err != nil {
		return nil, err
	}
	posts := []Post{}
	for _, m := range media.Data {
		if m.MediaType != "IMAGE" && m.MediaType != "CAROUSEL_ALBUM" {
			continue
		}
		posts = append(posts, Post{
			ID:      m.ID,
			Src:     m.MediaURL,
			Link:    m.Permalink,
			Caption: m.Caption,
			Date:    m.Timestamp,
		})
	}
	return posts, nil
}
