package generator

import (
	"fmt"
	"sort"
	"time"

	"github.com/Zachdehooge/grid-dashboard/internal/fetcher"
	"github.com/Zachdehooge/grid-dashboard/internal/incident"
	"github.com/Zachdehooge/grid-dashboard/internal/store"
)

const (
	pageTitle = "NWA Grid Dashboard"
	// cameraCountFallback is shown while the camera feed has not loaded.
	cameraCountFallback = "~547"
	descriptionLimit    = 50
)

// Dashboard is the full state published on every poll cycle. It is written
// to dashboard.json and rendered into dashboard.html.
type Dashboard struct {
	Weather             fetcher.Conditions    `json:"weather"`
	Incidents           []incident.Record     `json:"incidents"`
	Total               int                   `json:"total"`
	IncidentError       string                `json:"incidentError,omitempty"`
	Cameras             int                   `json:"cameras"`
	Ignored             []string              `json:"ignored"`
	History             []store.HistorySample `json:"history"`
	SuppressMaintenance bool                  `json:"suppressMaintenance"`
	AlertsEnabled       bool                  `json:"alertsEnabled"`
	MapURL              string                `json:"mapUrl"`
	Home                incident.Location     `json:"home"`
	RefreshSeconds      int                   `json:"refreshSeconds"`
	TimeZone            string                `json:"timeZone,omitempty"`
	LastUpdated         string                `json:"lastUpdated"`
	UpdatedAtUTC        int64                 `json:"updatedAtUTC"`
}

// Stamp sets the update times from now.
func (d *Dashboard) Stamp(now time.Time, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	d.LastUpdated = now.In(loc).Format("Jan 2, 2006 at 3:04:05 PM MST")
	d.UpdatedAtUTC = now.UTC().Unix()
}

// TemplateIncident is a table row: the record plus display-ready fields.
type TemplateIncident struct {
	incident.Record
	TypeClass  string
	ShortDesc  string
	CameraText string
	MapLink    string
}

// ClassCount is one line of the incident summary.
type ClassCount struct {
	Class incident.Class
	Count int
	Rank  int
}

var classRank = map[incident.Class]int{
	incident.ClassCrash:        1,
	incident.ClassClosure:      2,
	incident.ClassWeather:      3,
	incident.ClassConstruction: 4,
	incident.ClassOther:        5,
}

// convertIncidents builds the table rows in feed order.
func convertIncidents(records []incident.Record, mapURL string) []TemplateIncident {
	rows := make([]TemplateIncident, 0, len(records))
	for _, r := range records {
		row := TemplateIncident{
			Record:     r,
			TypeClass:  r.Class.CSSClass(),
			ShortDesc:  truncate(r.Description, descriptionLimit),
			CameraText: "--",
		}
		if r.NearestPOI != nil {
			row.CameraText = fmt.Sprintf("%.2f Miles", r.NearestPOI.DistanceMiles)
		}
		if r.Location != nil && mapURL != "" {
			row.MapLink = fmt.Sprintf("%s?lat=%v&lng=%v&zoom=15", mapURL, r.Location.Lat, r.Location.Lon)
		}
		rows = append(rows, row)
	}
	return rows
}

// sortedClassCounts summarizes incidents by class, most urgent first.
func sortedClassCounts(records []incident.Record) []ClassCount {
	counts := make(map[incident.Class]int)
	for _, r := range records {
		counts[r.Class]++
	}
	result := make([]ClassCount, 0, len(counts))
	for c, n := range counts {
		result = append(result, ClassCount{Class: c, Count: n, Rank: classRank[c]})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Rank != result[j].Rank {
			return result[i].Rank < result[j].Rank
		}
		return result[i].Count > result[j].Count
	})
	return result
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

// Title is the browser tab title, prefixed with the incident count.
func Title(total int) string {
	if total > 0 {
		return fmt.Sprintf("(%d) %s", total, pageTitle)
	}
	return pageTitle
}

// CameraCount is the camera counter text.
func CameraCount(n int) string {
	if n == 0 {
		return cameraCountFallback
	}
	return fmt.Sprintf("%d", n)
}
