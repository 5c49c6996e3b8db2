package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWebSearchFormatsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "go json framing" {
			t.Errorf("Expected query passthrough, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"Heading": "JSON framing",
			"Abstract": "Newline-delimited JSON is a framing scheme.",
			"AbstractURL": "https://example.org/ndjson",
			"RelatedTopics": [
				{"Text": "JSON Lines - a related format", "FirstURL": "https://example.org/jsonl"},
				{"Topics": [{"Text": "Nested topic entry", "FirstURL": "https://example.org/nested"}]}
			]
		}`))
	}))
	defer srv.Close()

	tool := NewWebSearchTool()
	tool.searchURL = srv.URL + "/"

	text, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"go json framing"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(text, "JSON framing") {
		t.Errorf("abstract heading missing: %q", text)
	}
	if !strings.Contains(text, "https://example.org/jsonl") {
		t.Errorf("related topic missing: %q", text)
	}
	if !strings.Contains(text, "https://example.org/nested") {
		t.Errorf("nested topic missing: %q", text)
	}
}

func TestWebSearchCapsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"RelatedTopics": [
				{"Text": "one", "FirstURL": "https://example.org/1"},
				{"Text": "two", "FirstURL": "https://example.org/2"},
				{"Text": "three", "FirstURL": "https://example.org/3"}
			]
		}`))
	}))
	defer srv.Close()

	tool := NewWebSearchTool()
	tool.searchURL = srv.URL + "/"

	text, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"x","max_results":2}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if strings.Contains(text, "https://example.org/3") {
		t.Errorf("max_results not honored: %q", text)
	}
}

func TestWebSearchRequiresQuery(t *testing.T) {
	tool := NewWebSearchTool()
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Error("Expected error for missing query")
	}
}

func TestReadWebpageConvertsToMarkdown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><script>alert("noise")</script></head><body>
			<h1>Release Notes</h1>
			<p>The framing layer now rejects oversized frames.</p>
			<a href="/details">Details</a>
		</body></html>`))
	}))
	defer srv.Close()

	tool := NewReadWebpageTool()
	text, err := tool.Execute(context.Background(), json.RawMessage(`{"url":"`+srv.URL+`"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(text, "# Release Notes") {
		t.Errorf("heading not converted to markdown: %q", text)
	}
	if !strings.Contains(text, "oversized frames") {
		t.Errorf("paragraph text missing: %q", text)
	}
	if strings.Contains(text, "alert(") {
		t.Errorf("script content leaked: %q", text)
	}
}

func TestReadWebpagePlainTextPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("just plain text"))
	}))
	defer srv.Close()

	tool := NewReadWebpageTool()
	text, err := tool.Execute(context.Background(), json.RawMessage(`{"url":"`+srv.URL+`"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if text != "just plain text" {
		t.Errorf("Expected passthrough, got %q", text)
	}
}

func TestReadWebpageTruncatesLongPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(strings.Repeat("abcdefgh", 100)))
	}))
	defer srv.Close()

	tool := NewReadWebpageTool()
	tool.maxChars = 64
	text, err := tool.Execute(context.Background(), json.RawMessage(`{"url":"`+srv.URL+`"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(text, "[content truncated") {
		t.Errorf("Expected truncation marker, got %q", text)
	}
}

func TestReadWebpageRejectsBadScheme(t *testing.T) {
	tool := NewReadWebpageTool()
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"url":"file:///etc/passwd"}`)); err == nil {
		t.Error("Expected error for non-http scheme")
	}
}

func TestLookupLocationFormatsMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("name"); got != "Lisbon" {
			t.Errorf("Expected name passthrough, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"name":"Lisbon","country":"Portugal","admin1":"Lisbon","latitude":38.7167,"longitude":-9.1333,"timezone":"Europe/Lisbon","population":517802},
			{"name":"Lisbon","country":"United States","admin1":"Maine","latitude":44.0315,"longitude":-70.1045,"timezone":"America/New_York"}
		]}`))
	}))
	defer srv.Close()

	tool := NewLocationTool()
	tool.baseURL = srv.URL

	text, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"Lisbon"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(text, "Portugal") || !strings.Contains(text, "Maine") {
		t.Errorf("matches missing: %q", text)
	}
	if !strings.Contains(text, "38.7167") {
		t.Errorf("coordinates missing: %q", text)
	}
	if !strings.Contains(text, "Europe/Lisbon") {
		t.Errorf("timezone missing: %q", text)
	}
}

func TestLookupLocationNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	tool := NewLocationTool()
	tool.baseURL = srv.URL

	text, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"Nowhereville"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(text, "No locations found") {
		t.Errorf("Expected a no-results message, got %q", text)
	}
}
