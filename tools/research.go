package tools

import (
	"net/http"
	"time"
)

const (
	defaultUserAgent     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/136.0.0.0 Safari/537.36"
	defaultHTTPTimeout   = 15 * time.Second
	defaultWikipediaURL  = "https://en.wikipedia.org/w/api.php"
	defaultDuckDuckGoURL = "https://lite.duckduckgo.com/lite/"
)

// Deps carries the collaborators the research tools need. Zero values fall back to defaults.
type Deps struct {
	HTTPClient    *http.Client
	UserAgent     string
	WikipediaURL  string
	DuckDuckGoURL string
	Offerer       Offerer
}

func (d Deps) withDefaults() Deps {
	if d.HTTPClient == nil {
		d.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if d.UserAgent == "" {
		d.UserAgent = defaultUserAgent
	}
	if d.WikipediaURL == "" {
		d.WikipediaURL = defaultWikipediaURL
	}
	if d.DuckDuckGoURL == "" {
		d.DuckDuckGoURL = defaultDuckDuckGoURL
	}
	if d.Offerer == nil {
		d.Offerer = discardOfferer{}
	}
	return d
}

// Default returns the four research tools wired for the agent, in advertised order.
func Default(deps Deps) []ToolDefinition {
	deps = deps.withDefaults()
	return []ToolDefinition{
		NewWikipediaSearch(deps.HTTPClient, deps.WikipediaURL, deps.UserAgent),
		NewDuckDuckGoSearch(deps.HTTPClient, deps.DuckDuckGoURL, deps.UserAgent),
		NewWebScraping(deps.HTTPClient, deps.UserAgent),
		NewSaveToText(deps.Offerer),
	}
}
