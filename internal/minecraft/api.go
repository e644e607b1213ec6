// Package minecraft wraps the upstream REST APIs the bot queries: server
// status, Mojang accounts and services, the bug tracker and the wiki.
package minecraft

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"obsidion/internal/cache"
	"obsidion/internal/fetch"
)

// ErrNotFound means the upstream has no such player, bug or article
var ErrNotFound = errors.New("not found")

// SalesMetrics are the statistic keys summed for Minecraft sales
var SalesMetrics = []string{"item_sold_minecraft", "prepaid_card_redeemed_minecraft"}

// Fetcher issues JSON requests. *fetch.Client and *session.Session implement it.
type Fetcher interface {
	GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error
	PostJSON(ctx context.Context, rawURL string, headers map[string]string, body, out any) error
}

// CacheSource hands out the response cache once it is ready
type CacheSource interface {
	Cache(ctx context.Context) (*cache.Cache, error)
}

// Endpoints are the base URLs of each upstream
type Endpoints struct {
	API    string
	Mojang string
	Bugs   string
	Wiki   string
}

func DefaultEndpoints(apiURL string) Endpoints {
	return Endpoints{
		API:    strings.TrimRight(apiURL, "/"),
		Mojang: "https://api.mojang.com",
		Bugs:   "https://bugs.mojang.com",
		Wiki:   "https://minecraft.gamepedia.com",
	}
}

type API struct {
	fetch     Fetcher
	caches    CacheSource
	endpoints Endpoints
}

// New builds the API client. caches may be nil to disable response caching.
func New(f Fetcher, caches CacheSource, endpoints Endpoints) *API {
	return &API{fetch: f, caches: caches, endpoints: endpoints}
}

func (a *API) Endpoints() Endpoints {
	return a.endpoints
}

// JavaServer returns the status of a Java edition server, cached for five minutes
func (a *API) JavaServer(ctx context.Context, addr Address) (*JavaServer, error) {
	return cached(ctx, a, addr.CacheKey(JavaKeyPrefix), cache.ServerStatusTTL, func(ctx context.Context) (*JavaServer, error) {
		var s JavaServer
		if err := a.fetch.GetJSON(ctx, a.endpoints.API+"/server/java", addr.Params(), &s); err != nil {
			return nil, err
		}
		return &s, nil
	})
}

// BedrockServer returns the status of a Bedrock edition server, cached for five minutes
func (a *API) BedrockServer(ctx context.Context, addr Address) (*BedrockServer, error) {
	return cached(ctx, a, addr.CacheKey(BedrockKeyPrefix), cache.ServerStatusTTL, func(ctx context.Context) (*BedrockServer, error) {
		var s BedrockServer
		if err := a.fetch.GetJSON(ctx, a.endpoints.API+"/server/bedrock", addr.Params(), &s); err != nil {
			return nil, err
		}
		return &s, nil
	})
}

// UsernameToUUID resolves a current username. Unknown names return ErrNotFound.
func (a *API) UsernameToUUID(ctx context.Context, username string) (*Profile, error) {
	var p Profile
	err := a.fetch.GetJSON(ctx, a.endpoints.Mojang+"/users/profiles/minecraft/"+url.PathEscape(username), nil, &p)
	if fetch.IsNotFound(err) || (err == nil && p.ID == "") {
		return nil, fmt.Errorf("username %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// NameHistory returns every name the account has used, oldest first
func (a *API) NameHistory(ctx context.Context, id string) ([]NameChange, error) {
	var names []NameChange
	err := a.fetch.GetJSON(ctx, a.endpoints.Mojang+"/user/profiles/"+url.PathEscape(id)+"/names", nil, &names)
	if fetch.IsNotFound(err) {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return names, nil
}

// ServiceStatus maps each Mojang service to its health colour
func (a *API) ServiceStatus(ctx context.Context) (map[string]string, error) {
	var status map[string]string
	if err := a.fetch.GetJSON(ctx, a.endpoints.API+"/mojang/check", nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}

// SalesStatistics returns Minecraft sales. The result is cached without expiry.
func (a *API) SalesStatistics(ctx context.Context) (*Sales, error) {
	return cached(ctx, a, StatusKey, cache.NoExpiry, func(ctx context.Context) (*Sales, error) {
		var s Sales
		body := map[string][]string{"metricKeys": SalesMetrics}
		if err := a.fetch.PostJSON(ctx, a.endpoints.Mojang+"/orders/statistics", nil, body, &s); err != nil {
			return nil, err
		}
		return &s, nil
	})
}

// Bug looks up an issue such as MC-4 on the bug tracker
func (a *API) Bug(ctx context.Context, id string) (*Bug, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	var b Bug
	err := a.fetch.GetJSON(ctx, a.endpoints.Bugs+"/rest/api/latest/issue/"+url.PathEscape(id), nil, &b)
	if fetch.IsNotFound(err) {
		return nil, fmt.Errorf("bug %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if b.Key == "" {
		b.Key = id
	}
	return &b, nil
}

// BugURL is the browser link for an issue
func (a *API) BugURL(id string) string {
	return a.endpoints.Bugs + "/browse/" + strings.ToUpper(strings.TrimSpace(id))
}

type wikiResponse struct {
	Query struct {
		Pages []struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
			Missing bool   `json:"missing"`
		} `json:"pages"`
	} `json:"query"`
}

// WikiExtract fetches the intro of the article matching query
func (a *API) WikiExtract(ctx context.Context, query string) (*WikiPage, error) {
	params := url.Values{
		"action":        {"query"},
		"titles":        {strings.ReplaceAll(strings.TrimSpace(query), " ", "_")},
		"format":        {"json"},
		"formatversion": {"2"},
		"prop":          {"extracts"},
		"exintro":       {"1"},
		"redirects":     {"1"},
		"explaintext":   {"1"},
	}

	var resp wikiResponse
	if err := a.fetch.GetJSON(ctx, a.endpoints.Wiki+"/api.php", params, &resp); err != nil {
		return nil, err
	}
	pages := resp.Query.Pages
	// The last page is the redirect target when there is more than one
	if len(pages) == 0 || pages[len(pages)-1].Missing || pages[len(pages)-1].Extract == "" {
		return nil, fmt.Errorf("wiki %q: %w", query, ErrNotFound)
	}
	page := pages[len(pages)-1]
	return &WikiPage{
		Title:   page.Title,
		Extract: page.Extract,
		URL:     a.endpoints.Wiki + "/" + strings.ReplaceAll(page.Title, " ", "_"),
	}, nil
}

// LongUUID formats a 32 digit Mojang id with dashes
func LongUUID(short string) (string, error) {
	id, err := uuid.Parse(short)
	if err != nil {
		return "", fmt.Errorf("invalid uuid %q: %w", short, err)
	}
	return id.String(), nil
}

func cached[T any](ctx context.Context, a *API, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if a.caches == nil {
		return fn(ctx)
	}
	c, err := a.caches.Cache(ctx)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("response cache unavailable: %w", err)
	}
	return cache.Through(ctx, c, key, ttl, fn)
}
