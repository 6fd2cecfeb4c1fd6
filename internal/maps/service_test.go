package maps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"foodbridge_backend/platform/logger"
)

type stubRoutingConfig struct {
	baseURL string
}

func (s stubRoutingConfig) GetRoutingBaseURL() string { return s.baseURL }

func newTestService(baseURL string) *Service {
	return NewService(stubRoutingConfig{baseURL: baseURL}, logger.New("test"))
}

func TestDrivingDistanceTimeEmptyDestinations(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	results, err := newTestService(srv.URL).DrivingDistanceTime(context.Background(), Coordinate{}, nil)
	if err != nil {
		t.Fatalf("DrivingDistanceTime: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("results = %v, want empty slice", results)
	}
	if called {
		t.Error("routing engine was contacted for an empty destination list")
	}
}

func TestDrivingDistanceTimePreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("sources"); got != "0" {
			t.Errorf("sources = %q, want %q", got, "0")
		}
		if got := r.URL.Query().Get("destinations"); got != "1;2" {
			t.Errorf("destinations = %q, want %q", got, "1;2")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"code": "Ok",
			"distances": [[1609.344, 3218.688]],
			"durations": [[120, 300]]
		}`))
	}))
	defer srv.Close()

	origin := Coordinate{Latitude: 40.0, Longitude: -75.0}
	dests := []Coordinate{
		{Latitude: 40.1, Longitude: -75.1},
		{Latitude: 40.2, Longitude: -75.2},
	}

	results, err := newTestService(srv.URL).DrivingDistanceTime(context.Background(), origin, dests)
	if err != nil {
		t.Fatalf("DrivingDistanceTime: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].DistanceMiles != 1.0 {
		t.Errorf("results[0].DistanceMiles = %v, want 1.0", results[0].DistanceMiles)
	}
	if results[0].DurationMinutes != 2.0 {
		t.Errorf("results[0].DurationMinutes = %v, want 2.0", results[0].DurationMinutes)
	}
	if results[1].DistanceMiles != 2.0 {
		t.Errorf("results[1].DistanceMiles = %v, want 2.0", results[1].DistanceMiles)
	}
	if results[1].DurationMinutes != 5.0 {
		t.Errorf("results[1].DurationMinutes = %v, want 5.0", results[1].DurationMinutes)
	}
}

func TestDrivingDistanceTimeAllOrNothing(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"engine error code", `{"code": "NoTable", "message": "no table"}`},
		{"unroutable pair", `{"code": "Ok", "distances": [[100, null]], "durations": [[60, null]]}`},
		{"pair count mismatch", `{"code": "Ok", "distances": [[100]], "durations": [[60]]}`},
	}

	dests := []Coordinate{
		{Latitude: 40.1, Longitude: -75.1},
		{Latitude: 40.2, Longitude: -75.2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			results, err := newTestService(srv.URL).DrivingDistanceTime(context.Background(), Coordinate{}, dests)
			if err == nil {
				t.Fatal("expected an error, got nil")
			}
			if results != nil {
				t.Errorf("results = %v, want nil on failure", results)
			}
		})
	}
}

func TestDrivingDistanceTimeUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestService(srv.URL).DrivingDistanceTime(context.Background(), Coordinate{}, []Coordinate{{}})
	if err == nil {
		t.Fatal("expected an error for non-200 upstream status")
	}
}
