package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/voocel/pilot/schema"
)

// ReadWebpageTool fetches a page and converts it to markdown so the model
// reads structure instead of raw HTML.
type ReadWebpageTool struct {
	client      *http.Client
	maxBodySize int64
	maxChars    int
}

// NewReadWebpageTool creates the tool with its own HTTP client.
func NewReadWebpageTool() *ReadWebpageTool {
	return &ReadWebpageTool{
		client:      &http.Client{Timeout: 30 * time.Second},
		maxBodySize: 5 << 20,
		maxChars:    40000,
	}
}

func (t *ReadWebpageTool) Name() string { return schema.ToolReadWebpage }

func (t *ReadWebpageTool) Description() string {
	return "Fetch a webpage and return its content as markdown."
}

func (t *ReadWebpageTool) Schema() *ToolSchema {
	return ObjectSchema(map[string]*PropertySchema{
		"url": StringProperty("The http or https URL to read"),
	}, "url")
}

func (t *ReadWebpageTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("read_webpage args: %w", err)
	}
	if in.URL == "" {
		return "", errors.New("url is required")
	}
	if !strings.HasPrefix(in.URL, "http://") && !strings.HasPrefix(in.URL, "https://") {
		return "", errors.New("url must start with http:// or https://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.URL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "pilot-host/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", in.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", in.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBodySize))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", in.URL, err)
	}
	content := string(body)
	if !utf8.ValidString(content) {
		return "", errors.New("page content is not valid UTF-8")
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		// Plain text and friends pass through with a size cut only.
		return clip(content, t.maxChars), nil
	}

	markdown, err := htmlToMarkdown(content)
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", in.URL, err)
	}
	return clip(markdown, t.maxChars), nil
}

// htmlToMarkdown strips non-content elements first so navigation chrome does
// not drown the page text.
func htmlToMarkdown(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, iframe").Remove()

	cleaned, err := doc.Html()
	if err != nil {
		return "", err
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(cleaned)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(markdown), nil
}

func clip(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	cut := text[:maxChars]
	// Do not split a rune.
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut + fmt.Sprintf("\n\n[content truncated at %d characters]", maxChars)
}
