package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, wantPath string, body string) (*httptest.Server, *http.Request) {
	t.Helper()
	var captured http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = *r
		if r.URL.Path != wantPath {
			t.Errorf("path = %s, want %s", r.URL.Path, wantPath)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

const nearbyBody = `{
	"status": "OK",
	"results": [
		{"place_id": "p1", "name": "Joe's Pizza", "vicinity": "7 Carmine St", "rating": 4.5,
		 "geometry": {"location": {"lat": 40.73, "lng": -73.99}}},
		{"place_id": "p2", "name": "Mamoun's", "vicinity": "119 MacDougal St"}
	]
}`

func TestNearbySearch(t *testing.T) {
	srv, captured := newTestServer(t, "/nearbysearch/json", nearbyBody)
	c := New("test-key", srv.URL)

	got, err := c.NearbySearch(context.Background(), 40.73, -73.99, RadiusOnFocus)
	if err != nil {
		t.Fatalf("NearbySearch() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(got))
	}
	if got[0].Name != "Joe's Pizza" || got[0].Vicinity != "7 Carmine St" {
		t.Errorf("first result = %+v", got[0])
	}
	if got[0].Geometry == nil || got[0].Geometry.Lat != 40.73 {
		t.Errorf("geometry not parsed: %+v", got[0].Geometry)
	}
	if got[1].Geometry != nil {
		t.Error("missing geometry should stay nil")
	}

	q := captured.URL.Query()
	if q.Get("radius") != "30" {
		t.Errorf("radius = %s, want 30", q.Get("radius"))
	}
	if q.Get("type") != "restaurant" {
		t.Errorf("type = %s, want restaurant", q.Get("type"))
	}
	if q.Get("key") != "test-key" {
		t.Errorf("key = %s, want test-key", q.Get("key"))
	}
}

const autocompleteBody = `{
	"status": "OK",
	"results": [
		{"place_id": "p1", "name": "Joe's Pizza", "formatted_address": "7 Carmine St, New York"},
		{"place_id": "p2", "name": "Joe's Pizza Broadway", "formatted_address": "1435 Broadway"},
		{"place_id": "p3", "name": "Joe's Pub", "formatted_address": "425 Lafayette St"},
		{"place_id": "p4", "name": "Joe Coffee", "formatted_address": "141 Waverly Pl"}
	]
}`

func TestAutocompleteTruncatesAndPopulatesVicinity(t *testing.T) {
	srv, captured := newTestServer(t, "/textsearch/json", autocompleteBody)
	c := New("test-key", srv.URL)

	got, err := c.Autocomplete(context.Background(), "Joe's Pizza", &LatLng{Lat: 40.7, Lng: -74.0})
	if err != nil {
		t.Fatalf("Autocomplete() error: %v", err)
	}
	if len(got) != MaxAutocompleteResults {
		t.Fatalf("len(results) = %d, want %d", len(got), MaxAutocompleteResults)
	}
	for _, r := range got {
		if r.Name == "" || r.Vicinity == "" {
			t.Errorf("result missing name or vicinity: %+v", r)
		}
	}

	if captured.URL.Query().Get("radius") != "50000" {
		t.Errorf("bias radius = %s, want 50000", captured.URL.Query().Get("radius"))
	}
}

func TestAutocompleteShortQueryIsNoop(t *testing.T) {
	c := New("test-key", "http://127.0.0.1:1") // would fail if called
	got, err := c.Autocomplete(context.Background(), "J", nil)
	if err != nil || got != nil {
		t.Errorf("short query: got (%v, %v), want (nil, nil)", got, err)
	}
}

func TestDetails(t *testing.T) {
	body := `{"status": "OK", "result": {"place_id": "p1", "name": "Ichiran",
		"vicinity": "Shibuya", "geometry": {"location": {"lat": 35.66, "lng": 139.7}}}}`
	srv, _ := newTestServer(t, "/details/json", body)
	c := New("test-key", srv.URL)

	got, err := c.Details(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Details() error: %v", err)
	}
	if got.Name != "Ichiran" || got.Geometry == nil || got.Geometry.Lng != 139.7 {
		t.Errorf("Details() = %+v", got)
	}
}

func TestZeroResultsIsEmptyNotError(t *testing.T) {
	srv, _ := newTestServer(t, "/nearbysearch/json", `{"status": "ZERO_RESULTS", "results": []}`)
	c := New("test-key", srv.URL)

	got, err := c.NearbySearch(context.Background(), 0, 0, RadiusButton)
	if err != nil {
		t.Fatalf("NearbySearch() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(results) = %d, want 0", len(got))
	}
}

func TestErrorStatusSurfaces(t *testing.T) {
	srv, _ := newTestServer(t, "/nearbysearch/json", `{"status": "REQUEST_DENIED", "error_message": "bad key"}`)
	c := New("test-key", srv.URL)

	if _, err := c.NearbySearch(context.Background(), 0, 0, RadiusButton); err == nil {
		t.Error("REQUEST_DENIED should be an error")
	}
}
