// Package websearch wraps the external web-search collaborator used to
// enrich chat context. Failures here degrade chat to document-only context;
// callers never abort on a search error.
package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

type Result struct {
	Title   string `json:"title"`
	URL     string `json:"link"`
	Snippet string `json:"snippet"`
}

type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// DuckDuckGo scrapes the JS-free HTML endpoint, which needs no API key.
type DuckDuckGo struct {
	baseURL    string
	httpClient *http.Client
}

func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{
		baseURL: "https://html.duckduckgo.com/html/",
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	reqURL := d.baseURL + "?q=" + url.QueryEscape(query)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ragfuse/1.0)")

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}

	var results []Result
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find(".result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		snippet := strings.TrimSpace(sel.Find(".result__snippet").Text())

		if title == "" || href == "" {
			return true
		}

		results = append(results, Result{
			Title:   title,
			URL:     resolveRedirect(href),
			Snippet: snippet,
		})
		return len(results) < maxResults
	})

	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg=<target> indirection so
// callers see the destination URL.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" {
		return "https:" + href
	}
	return href
}
