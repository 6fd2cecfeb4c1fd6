package maps

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// DriveResult is the driving distance and time from a single origin to one
// destination.
type DriveResult struct {
	DistanceMiles   float64
	DurationMinutes float64
}

// osrmTableResponse mirrors the relevant parts of the OSRM table payload.
// Distances are meters, durations are seconds. An unreachable pair comes back
// as null, which decodes into a nil pointer.
type osrmTableResponse struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}
