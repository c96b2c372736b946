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
)

type WebScrapingInput struct {
	URL string `json:"url" jsonschema_description:"The URL of the website you want to scrape"`
}

const (
	maxScrapeBytes    = 32 * 1024
	maxDownloadBytes  = 4 << 20
	scrapeTruncatedAt = "\n[TRUNCATED]"
)

// NewWebScraping returns the web_scraping tool.
func NewWebScraping(client *http.Client, userAgent string) ToolDefinition {
	s := &scraper{client: client, userAgent: userAgent}
	return ToolDefinition{
		Name:        "web_scraping",
		Description: "If you found the website link in DuckDuckGo, Use this to get the content of the link for my research.",
		InputSchema: GenerateSchema[WebScrapingInput](),
		Function:    s.run,
	}
}

type scraper struct {
	client    *http.Client
	userAgent string
}

// run fetches the page and returns its visible text, capped at 32 KiB.
func (s *scraper) run(ctx context.Context, input json.RawMessage) (string, error) {
	var in WebScrapingInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", err
	}
	target := strings.TrimSpace(in.URL)
	if target == "" {
		return "", errors.New("url is required")
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.userAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch http %d", resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, maxDownloadBytes)
	var text string
	if ct := resp.Header.Get("Content-Type"); ct == "" || strings.Contains(ct, "html") {
		text, err = visibleText(body)
	} else {
		var raw []byte
		raw, err = io.ReadAll(body)
		text = normalizeSpace(string(raw))
	}
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}
	if len(text) > maxScrapeBytes {
		text = strings.ToValidUTF8(text[:maxScrapeBytes], "") + scrapeTruncatedAt
	}
	return text, nil
}
