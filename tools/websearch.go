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
	"time"

	"github.com/voocel/pilot/schema"
)

const defaultSearchURL = "https://api.duckduckgo.com/"

// WebSearchTool answers queries through the DuckDuckGo Instant Answer API.
// No key required, which keeps the default host setup zero-config.
type WebSearchTool struct {
	client    *http.Client
	searchURL string
}

// SearchResult captures a single search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// NewWebSearchTool creates the tool with its own HTTP client.
func NewWebSearchTool() *WebSearchTool {
	return &WebSearchTool{
		client:    &http.Client{Timeout: 30 * time.Second},
		searchURL: defaultSearchURL,
	}
}

// NewWebSearchToolURL points the tool at an Instant Answer compatible
// endpoint. An empty rawURL keeps the default provider.
func NewWebSearchToolURL(rawURL string) *WebSearchTool {
	t := NewWebSearchTool()
	if rawURL != "" {
		t.searchURL = rawURL
	}
	return t
}

func (t *WebSearchTool) Name() string { return schema.ToolWebSearch }

func (t *WebSearchTool) Description() string {
	return "Search the web and return a short list of results with titles, URLs, and snippets."
}

func (t *WebSearchTool) Schema() *ToolSchema {
	return ObjectSchema(map[string]*PropertySchema{
		"query":       StringProperty("The search query"),
		"max_results": NumberProperty("Maximum number of results, default 5"),
	}, "query")
}

func (t *WebSearchTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("web_search args: %w", err)
	}
	if strings.TrimSpace(in.Query) == "" {
		return "", errors.New("query is required")
	}
	if in.MaxResults <= 0 {
		in.MaxResults = 5
	}
	if in.MaxResults > 20 {
		in.MaxResults = 20
	}

	params := url.Values{}
	params.Set("q", in.Query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("read search response: %w", err)
	}

	var payload ddgResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("parse search response: %w", err)
	}

	results := payload.results(in.MaxResults)
	if len(results) == 0 {
		return fmt.Sprintf("No results for %q.", in.Query), nil
	}
	return formatResults(in.Query, results), nil
}

type ddgResponse struct {
	Abstract      string     `json:"Abstract"`
	AbstractURL   string     `json:"AbstractURL"`
	Heading       string     `json:"Heading"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

func (r ddgResponse) results(max int) []SearchResult {
	var out []SearchResult
	if r.Abstract != "" && r.AbstractURL != "" {
		title := r.Heading
		if title == "" {
			title = r.AbstractURL
		}
		out = append(out, SearchResult{Title: title, URL: r.AbstractURL, Snippet: r.Abstract})
	}
	out = appendTopics(out, r.RelatedTopics, max)
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// appendTopics flattens the topic tree; DuckDuckGo nests grouped topics one
// level deep.
func appendTopics(out []SearchResult, topics []ddgTopic, max int) []SearchResult {
	for _, topic := range topics {
		if len(out) >= max {
			break
		}
		if len(topic.Topics) > 0 {
			out = appendTopics(out, topic.Topics, max)
			continue
		}
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		out = append(out, SearchResult{
			Title:   topicTitle(topic.Text),
			URL:     topic.FirstURL,
			Snippet: topic.Text,
		})
	}
	return out
}

func topicTitle(text string) string {
	if idx := strings.Index(text, " - "); idx > 0 {
		return text[:idx]
	}
	if len(text) > 60 {
		return text[:60] + "..."
	}
	return text
}

func formatResults(query string, results []SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Results for %q:\n", query)
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return strings.TrimRight(b.String(), "\n")
}
