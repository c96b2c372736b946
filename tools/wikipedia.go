package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

type WikipediaSearchInput struct {
	Query string `json:"query" jsonschema_description:"The query you will search for on Wikipedia"`
}

const (
	wikipediaTopK      = 5
	wikipediaMaxRunes  = 4000
	wikipediaNoResults = "No good Wikipedia Search Result was found"
)

// NewWikipediaSearch returns the wikipedia_search tool bound to a MediaWiki API endpoint.
func NewWikipediaSearch(client *http.Client, endpoint, userAgent string) ToolDefinition {
	w := &wikipedia{client: client, endpoint: endpoint, userAgent: userAgent}
	return ToolDefinition{
		Name:        "wikipedia_search",
		Description: "Use this tool to perform searches on Wikipedia. It takes a query as an argument. Example query: 'Artificial Intelligence'",
		InputSchema: GenerateSchema[WikipediaSearchInput](),
		Function:    w.run,
	}
}

type wikipedia struct {
	client    *http.Client
	endpoint  string
	userAgent string
}

// run searches for the top pages and returns their intro extracts as
// "Page: <title>\nSummary: <extract>" blocks.
func (w *wikipedia) run(ctx context.Context, input json.RawMessage) (string, error) {
	var in WikipediaSearchInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", err
	}
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return "", errors.New("query is required")
	}

	body, err := w.get(ctx, url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {fmt.Sprint(wikipediaTopK)},
		"format":   {"json"},
	})
	if err != nil {
		return "", fmt.Errorf("wikipedia search: %w", err)
	}
	var titles []string
	for _, t := range gjson.GetBytes(body, "query.search.#.title").Array() {
		titles = append(titles, t.String())
	}
	if len(titles) == 0 {
		return wikipediaNoResults, nil
	}

	body, err = w.get(ctx, url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"exlimit":     {"max"},
		"redirects":   {"1"},
		"titles":      {strings.Join(titles, "|")},
		"format":      {"json"},
	})
	if err != nil {
		return "", fmt.Errorf("wikipedia extracts: %w", err)
	}
	extracts := make(map[string]string, len(titles))
	gjson.GetBytes(body, "query.pages").ForEach(func(_, page gjson.Result) bool {
		extracts[page.Get("title").String()] = strings.TrimSpace(page.Get("extract").String())
		return true
	})

	summaries := make([]string, 0, len(titles))
	for _, title := range titles {
		extract, ok := extracts[title]
		if !ok || extract == "" {
			continue
		}
		summaries = append(summaries, fmt.Sprintf("Page: %s\nSummary: %s", title, extract))
	}
	if len(summaries) == 0 {
		return wikipediaNoResults, nil
	}
	out, _ := clampRunes(strings.Join(summaries, "\n\n"), wikipediaMaxRunes)
	return out, nil
}

func (w *wikipedia) get(ctx context.Context, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", w.userAgent)
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid JSON response")
	}
	return body, nil
}
