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

const defaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"

// LocationTool resolves place names through the Open-Meteo geocoding API,
// another keyless endpoint.
type LocationTool struct {
	client  *http.Client
	baseURL string
}

// NewLocationTool creates the tool with its own HTTP client.
func NewLocationTool() *LocationTool {
	return &LocationTool{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: defaultGeocodingURL,
	}
}

func (t *LocationTool) Name() string { return schema.ToolLookupLocation }

func (t *LocationTool) Description() string {
	return "Look up a place name and return matching locations with coordinates and timezone."
}

func (t *LocationTool) Schema() *ToolSchema {
	return ObjectSchema(map[string]*PropertySchema{
		"query": StringProperty("The place name to look up, e.g. Lisbon"),
	}, "query")
}

func (t *LocationTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("lookup_location args: %w", err)
	}
	if strings.TrimSpace(in.Query) == "" {
		return "", errors.New("query is required")
	}

	params := url.Values{}
	params.Set("name", in.Query)
	params.Set("count", "5")
	params.Set("language", "en")
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoding returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read geocoding response: %w", err)
	}

	var payload struct {
		Results []struct {
			Name       string  `json:"name"`
			Country    string  `json:"country"`
			Admin1     string  `json:"admin1"`
			Latitude   float64 `json:"latitude"`
			Longitude  float64 `json:"longitude"`
			Timezone   string  `json:"timezone"`
			Population int64   `json:"population"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("parse geocoding response: %w", err)
	}
	if len(payload.Results) == 0 {
		return fmt.Sprintf("No locations found for %q.", in.Query), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Locations matching %q:\n", in.Query)
	for i, r := range payload.Results {
		region := r.Country
		if r.Admin1 != "" {
			region = r.Admin1 + ", " + r.Country
		}
		fmt.Fprintf(&b, "%d. %s (%s) lat %.4f lon %.4f tz %s", i+1, r.Name, region, r.Latitude, r.Longitude, r.Timezone)
		if r.Population > 0 {
			fmt.Fprintf(&b, " pop %d", r.Population)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
