// Package incident turns raw traffic-event feeds into the list the dashboard
// renders: ingestion, ignore/maintenance filtering, nearest-camera enrichment
// and new-incident detection.
package incident

import (
	"math"
)

// Location is a WGS84 coordinate in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is finite and inside the lat/lon ranges.
func (l Location) Valid() bool {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lon) || math.IsInf(l.Lat, 0) || math.IsInf(l.Lon, 0) {
		return false
	}
	return l.Lat >= -90 && l.Lat <= 90 && l.Lon >= -180 && l.Lon <= 180
}

// RouteInfo holds the road details of an incident. Missing values carry the
// display placeholders from the alias table.
type RouteInfo struct {
	Route         string `json:"route"`
	RouteType     string `json:"routeType"`
	LanesAffected string `json:"lanesAffected"`
	Reporter      string `json:"reporter"`
}

// Record is one normalized traffic event.
type Record struct {
	// ID is the feed-assigned identifier; empty when HasID is false.
	ID    string `json:"id,omitempty"`
	HasID bool   `json:"-"`
	// DisplayKey is ID when present, otherwise a random token used only to
	// key table rows. It is never persisted.
	DisplayKey  string      `json:"key"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	County      string      `json:"county"`
	Location    *Location   `json:"location,omitempty"`
	Route       RouteInfo   `json:"routeInfo"`
	Class       Class       `json:"class"`
	NearestPOI  *NearestPOI `json:"nearestPoi"`
}

// POI is a point of interest (a traffic camera) used for nearest-neighbour
// enrichment.
type POI struct {
	ID       string    `json:"id"`
	Name     string    `json:"name,omitempty"`
	Location *Location `json:"location,omitempty"`
}

// NearestPOI is the closest camera to an incident.
type NearestPOI struct {
	POI           POI     `json:"poi"`
	DistanceMiles float64 `json:"distanceMiles"`
}

// Result is the output of one pipeline run.
type Result struct {
	Incidents []Record `json:"incidents"`
	Total     int      `json:"total"`
	// New is true when the run surfaced an incident id absent from the
	// previous run.
	New bool `json:"new"`
}

// IDs returns the ids of the records that carry one, in order.
func IDs(records []Record) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if r.HasID {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
