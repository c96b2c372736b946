package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type DuckDuckGoSearchInput struct {
	Query string `json:"query" jsonschema_description:"The query you will search for"`
}

const duckDuckGoMaxResults = 5

// NewDuckDuckGoSearch returns the duckduckgo_search tool bound to the lite HTML endpoint.
func NewDuckDuckGoSearch(client *http.Client, endpoint, userAgent string) ToolDefinition {
	d := &duckDuckGo{client: client, endpoint: endpoint, userAgent: userAgent}
	return ToolDefinition{
		Name:        "duckduckgo_search",
		Description: "Use this tool to perform web searches using the DuckDuckGo search engine. It takes a query as an argument. Example query: 'Latest technology news'",
		InputSchema: GenerateSchema[DuckDuckGoSearchInput](),
		Function:    d.run,
	}
}

type duckDuckGo struct {
	client    *http.Client
	endpoint  string
	userAgent string
}

type searchResult struct {
	Title   string
	Link    string
	Snippet string
}

// run never fails on transport or parse errors: DuckDuckGo blocks aggressive
// callers, and the agent is better served by reading the error and moving on.
func (d *duckDuckGo) run(ctx context.Context, input json.RawMessage) (string, error) {
	var in DuckDuckGoSearchInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", err
	}
	results, err := d.search(ctx, in.Query)
	if err != nil {
		return fmt.Sprintf("Error performing DuckDuckGo search: %v", err), nil
	}
	if len(results) == 0 {
		return "No good DuckDuckGo Search Result was found", nil
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("[snippet: %s, title: %s, link: %s]", r.Snippet, r.Title, r.Link))
	}
	return strings.Join(parts, ", "), nil
}

func (d *duckDuckGo) search(ctx context.Context, query string) ([]searchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is empty")
	}
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo http %d", resp.StatusCode)
	}
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return parseLiteResults(doc), nil
}

// parseLiteResults pairs each result-link anchor with the next result-snippet cell.
func parseLiteResults(doc *html.Node) []searchResult {
	var results []searchResult
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.DataAtom == atom.A && hasClass(n, "result-link"):
				link := resolveRedirect(attr(n, "href"))
				title := nodeText(n)
				if link != "" && title != "" {
					results = append(results, searchResult{Title: title, Link: link})
				}
			case n.DataAtom == atom.Td && hasClass(n, "result-snippet"):
				if len(results) > 0 && results[len(results)-1].Snippet == "" {
					results[len(results)-1].Snippet = nodeText(n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if len(results) > duckDuckGoMaxResults {
		results = results[:duckDuckGoMaxResults]
	}
	return results
}

// resolveRedirect unwraps DuckDuckGo's //duckduckgo.com/l/?uddg=<target> links.
func resolveRedirect(href string) string {
	href = strings.TrimSpace(href)
	if !strings.Contains(href, "duckduckgo.com/l/") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
