// Package maps talks to the OSRM routing engine for driving distance and
// time between marketplace actors.
package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"foodbridge_backend/platform/config"
	"foodbridge_backend/platform/logger"
)

const (
	metersPerMile    = 1609.344
	secondsPerMinute = 60.0
	tableProfilePath = "/table/v1/driving/"
)

type Service struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

func NewService(cfg config.RoutingConfig, log *logger.Logger) *Service {
	return &Service{
		baseURL: strings.TrimRight(cfg.GetRoutingBaseURL(), "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// DrivingDistanceTime returns one DriveResult per destination, in destination
// order, all measured from origin. The call is all-or-nothing: if the routing
// engine fails or any single pair is unroutable, no partial results are
// returned. An empty destination list short-circuits to an empty slice without
// contacting the engine.
func (s *Service) DrivingDistanceTime(ctx context.Context, origin Coordinate, destinations []Coordinate) ([]DriveResult, error) {
	if len(destinations) == 0 {
		return []DriveResult{}, nil
	}

	coords := make([]string, 0, len(destinations)+1)
	coords = append(coords, formatCoordinate(origin))
	destIdx := make([]string, 0, len(destinations))
	for i, d := range destinations {
		coords = append(coords, formatCoordinate(d))
		destIdx = append(destIdx, fmt.Sprintf("%d", i+1))
	}

	params := url.Values{}
	params.Add("sources", "0")
	params.Add("destinations", strings.Join(destIdx, ";"))
	params.Add("annotations", "distance,duration")

	reqURL := fmt.Sprintf("%s%s%s?%s", s.baseURL, tableProfilePath, strings.Join(coords, ";"), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error("osrm request failed", "error", err)
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		s.log.Error("osrm upstream error", "status", resp.StatusCode)
		return nil, fmt.Errorf("upstream routing error: %d", resp.StatusCode)
	}

	var table osrmTableResponse
	if err := json.NewDecoder(resp.Body).Decode(&table); err != nil {
		s.log.Error("failed to decode osrm payload", "error", err)
		return nil, err
	}

	return buildResults(table, len(destinations))
}

func buildResults(table osrmTableResponse, wantCount int) ([]DriveResult, error) {
	if table.Code != "Ok" {
		return nil, fmt.Errorf("routing engine rejected request: %s %s", table.Code, table.Message)
	}
	if len(table.Distances) != 1 || len(table.Durations) != 1 {
		return nil, fmt.Errorf("routing engine returned %d source rows, want 1", len(table.Distances))
	}

	distances := table.Distances[0]
	durations := table.Durations[0]
	if len(distances) != wantCount || len(durations) != wantCount {
		return nil, fmt.Errorf("routing engine returned %d pairs, want %d", len(distances), wantCount)
	}

	results := make([]DriveResult, 0, wantCount)
	for i := range distances {
		if distances[i] == nil || durations[i] == nil {
			return nil, fmt.Errorf("destination %d is unroutable", i)
		}
		results = append(results, DriveResult{
			DistanceMiles:   *distances[i] / metersPerMile,
			DurationMinutes: *durations[i] / secondsPerMinute,
		})
	}

	return results, nil
}

// formatCoordinate renders lon,lat as OSRM expects.
func formatCoordinate(c Coordinate) string {
	return fmt.Sprintf("%f,%f", c.Longitude, c.Latitude)
}
