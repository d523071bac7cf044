package domain

import (
	"math"
	"strconv"
	"strings"
)

// RawPoint is a coordinate pair exactly as it appeared in the source.
type RawPoint struct {
	Name *string
	Lat  string
	Lon  string
	Line int
}

// Track holds the raw points of one GPX document grouped by category.
type Track struct {
	Waypoints   []RawPoint
	Trackpoints []RawPoint
	Routepoints []RawPoint
}

// Points returns the ordered sequence for a category.
func (t Track) Points(c Category) []RawPoint {
	switch c {
	case CategoryWaypoint:
		return t.Waypoints
	case CategoryTrackpoint:
		return t.Trackpoints
	case CategoryRoutepoint:
		return t.Routepoints
	default:
		return nil
	}
}

// Append adds a raw point to the sequence of its category.
func (t *Track) Append(c Category, p RawPoint) {
	switch c {
	case CategoryWaypoint:
		t.Waypoints = append(t.Waypoints, p)
	case CategoryTrackpoint:
		t.Trackpoints = append(t.Trackpoints, p)
	case CategoryRoutepoint:
		t.Routepoints = append(t.Routepoints, p)
	}
}

// Len returns the total number of raw points.
func (t Track) Len() int {
	return len(t.Waypoints) + len(t.Trackpoints) + len(t.Routepoints)
}

// Coordinate is a numeric, finite latitude/longitude pair.
type Coordinate struct {
	Lat float64
	Lon float64
}

// ParseCoordinate converts raw text into a Coordinate. ok is false when either
// value is not a number or not finite.
func ParseCoordinate(lat, lon string) (Coordinate, bool) {
	latValue, ok := parseFinite(lat)
	if !ok {
		return Coordinate{}, false
	}
	lonValue, ok := parseFinite(lon)
	if !ok {
		return Coordinate{}, false
	}
	return Coordinate{Lat: latValue, Lon: lonValue}, true
}

func parseFinite(raw string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}
