// Package geoapify is a small client for the Geoapify geocoding and routing APIs.
package geoapify

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

	"github.com/hpungsan/lanequote/internal/quote"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.geoapify.com/v1"

// maxBody bounds how much of a response is read.
const maxBody = 4 << 20

// Client calls the geocode and routing endpoints with one API key.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New returns a client. An empty baseURL uses DefaultBaseURL.
// Per-call deadlines come from the caller's context.
func New(baseURL, apiKey string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			// Coordinates are [lon, lat].
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

type routingResponse struct {
	Results []struct {
		Distance *float64 `json:"distance"`
	} `json:"results"`
}

// Geocode returns the first match for a free-text address.
// ok is false when the search returned no features.
func (c *Client) Geocode(ctx context.Context, text string) (quote.Point, bool, error) {
	params := url.Values{}
	params.Set("text", text)
	params.Set("apiKey", c.apiKey)

	var resp geocodeResponse
	if err := c.get(ctx, "/geocode/search", params, &resp); err != nil {
		return quote.Point{}, false, fmt.Errorf("geocoding %q: %w", text, err)
	}
	if len(resp.Features) == 0 || len(resp.Features[0].Geometry.Coordinates) < 2 {
		return quote.Point{}, false, nil
	}

	coords := resp.Features[0].Geometry.Coordinates
	return quote.Point{Lon: coords[0], Lat: coords[1]}, true, nil
}

// DrivingDistance returns the driving distance in meters of the first route
// between two points. ok is false when no route or no distance came back.
func (c *Client) DrivingDistance(ctx context.Context, from, to quote.Point) (float64, bool, error) {
	params := url.Values{}
	params.Set("waypoints", fmt.Sprintf("%s|%s", waypoint(from), waypoint(to)))
	params.Set("mode", "drive")
	params.Set("format", "json")
	params.Set("apiKey", c.apiKey)

	var resp routingResponse
	if err := c.get(ctx, "/routing", params, &resp); err != nil {
		return 0, false, fmt.Errorf("routing: %w", err)
	}
	if len(resp.Results) == 0 || resp.Results[0].Distance == nil {
		return 0, false, nil
	}
	return *resp.Results[0].Distance, true, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error carries the full URL, which includes the API key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// waypoint renders a point as "lat,lon".
func waypoint(p quote.Point) string {
	return fmt.Sprintf("%g,%g", p.Lat, p.Lon)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
