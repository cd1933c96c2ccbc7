// Package places is the HTTP client for the restaurant search backend
// (Google Places web service shape). It covers the three calls the capture
// flow makes: nearby search while the user crops, text autocomplete on the
// rating screen, and place details to recover geometry after an explicit
// selection.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Search radii in meters. Nearby search on screen focus uses a tight radius
// because the user is standing in the restaurant; the button-triggered
// search widens it; autocomplete only biases, so the radius is a region.
const (
	RadiusOnFocus          = 30
	RadiusButton           = 100
	RadiusAutocompleteBias = 50000
)

// MaxAutocompleteResults bounds the suggestion list on the rating screen.
const MaxAutocompleteResults = 3

// DefaultBaseURL is the Google Places web service root.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// requestTimeout applies to every outbound call, layered under any caller
// context deadline.
const requestTimeout = 10 * time.Second

// LatLng is a geographic coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Restaurant is one candidate returned by any of the search calls.
type Restaurant struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Vicinity string  `json:"vicinity"`
	Rating   float64 `json:"rating,omitempty"`
	Geometry *LatLng `json:"geometry,omitempty"`
}

// Client talks to the places backend. Zero value is not usable; use New.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// New creates a places client. baseURL may be empty to use the production
// service; tests point it at an httptest server.
func New(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

// Wire types for the places web service responses.

type placeResult struct {
	PlaceID  string `json:"place_id"`
	Name     string `json:"name"`
	Vicinity string `json:"vicinity"`
	// Autocomplete/text search uses formatted_address instead of vicinity.
	FormattedAddress string  `json:"formatted_address"`
	Rating           float64 `json:"rating"`
	Geometry         *struct {
		Location LatLng `json:"location"`
	} `json:"geometry"`
}

type searchResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
	Results      []placeResult `json:"results"`
	Result       *placeResult  `json:"result"` // details response
}

func (p placeResult) toRestaurant() Restaurant {
	r := Restaurant{
		ID:       p.PlaceID,
		Name:     p.Name,
		Vicinity: p.Vicinity,
		Rating:   p.Rating,
	}
	if r.Vicinity == "" {
		r.Vicinity = p.FormattedAddress
	}
	if p.Geometry != nil {
		loc := p.Geometry.Location
		r.Geometry = &loc
	}
	return r
}

// NearbySearch returns restaurants around the given coordinate, closest
// first (the service ranks by prominence within the radius; callers treat
// the order as proximity).
func (c *Client) NearbySearch(ctx context.Context, lat, lng float64, radiusMeters int) ([]Restaurant, error) {
	q := url.Values{}
	q.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	q.Set("radius", strconv.Itoa(radiusMeters))
	q.Set("type", "restaurant")

	resp, err := c.get(ctx, "/nearbysearch/json", q)
	if err != nil {
		return nil, fmt.Errorf("nearby search: %w", err)
	}

	restaurants := make([]Restaurant, 0, len(resp.Results))
	for _, p := range resp.Results {
		restaurants = append(restaurants, p.toRestaurant())
	}

	log.Debug().
		Float64("lat", lat).
		Float64("lng", lng).
		Int("radius_m", radiusMeters).
		Int("count", len(restaurants)).
		Msg("Nearby restaurant search complete")

	return restaurants, nil
}

// Autocomplete returns up to MaxAutocompleteResults restaurants matching the
// free-text query, optionally biased toward a coordinate. Queries shorter
// than two characters return nothing; the debouncer upstream should not send
// them, but the guard here keeps the API quota safe regardless.
func (c *Client) Autocomplete(ctx context.Context, query string, bias *LatLng) ([]Restaurant, error) {
	if len(query) < 2 {
		return nil, nil
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("type", "restaurant")
	if bias != nil {
		q.Set("location", fmt.Sprintf("%f,%f", bias.Lat, bias.Lng))
		q.Set("radius", strconv.Itoa(RadiusAutocompleteBias))
	}

	resp, err := c.get(ctx, "/textsearch/json", q)
	if err != nil {
		return nil, fmt.Errorf("autocomplete %q: %w", query, err)
	}

	restaurants := make([]Restaurant, 0, MaxAutocompleteResults)
	for _, p := range resp.Results {
		restaurants = append(restaurants, p.toRestaurant())
		if len(restaurants) == MaxAutocompleteResults {
			break
		}
	}
	return restaurants, nil
}

// Details fetches the full record for a place, including geometry. Used
// after an explicit selection so the restaurant coordinate can take over
// as the session's priority-1 location candidate.
func (c *Client) Details(ctx context.Context, placeID string) (*Restaurant, error) {
	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", "place_id,name,vicinity,rating,geometry")

	resp, err := c.get(ctx, "/details/json", q)
	if err != nil {
		return nil, fmt.Errorf("place details %s: %w", placeID, err)
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("place details %s: empty result", placeID)
	}

	r := resp.Result.toRestaurant()
	return &r, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*searchResponse, error) {
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", httpResp.StatusCode)
	}

	var resp searchResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// ZERO_RESULTS is a normal empty answer, not an error.
	if resp.Status != "OK" && resp.Status != "ZERO_RESULTS" && resp.Status != "" {
		return nil, fmt.Errorf("places status %s: %s", resp.Status, resp.ErrorMessage)
	}
	return &resp, nil
}
