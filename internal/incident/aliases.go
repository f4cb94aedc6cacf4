package incident

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Field is a logical attribute resolved from one of several feed keys.
type Field struct {
	Name    string
	Keys    []string
	Default string
}

// Alias tables. The first key present with a non-empty value wins.
var (
	FieldID            = Field{Name: "id", Keys: []string{"id", "event_id", "ID"}}
	FieldCategory      = Field{Name: "category", Keys: []string{"type", "event_type", "eventType"}, Default: "Unknown"}
	FieldDescription   = Field{Name: "description", Keys: []string{"description", "headline", "desc"}, Default: "No description"}
	FieldCounty        = Field{Name: "county", Keys: []string{"county", "County"}, Default: "--"}
	FieldRoute         = Field{Name: "route", Keys: []string{"route", "road_name", "Route"}, Default: "--"}
	FieldRouteType     = Field{Name: "routeType", Keys: []string{"route_type", "routeType", "RouteType"}, Default: "--"}
	FieldLanesAffected = Field{Name: "lanesAffected", Keys: []string{"lanes_affected", "lanesAffected", "Lanes"}, Default: "--"}
	FieldReporter      = Field{Name: "reporter", Keys: []string{"reported_by", "reportedBy", "source"}, Default: "ARDOT"}
	FieldLatitude      = Field{Name: "latitude", Keys: []string{"latitude", "lat"}}
	FieldLongitude     = Field{Name: "longitude", Keys: []string{"longitude", "lon", "lng"}}

	FieldPOIID   = Field{Name: "id", Keys: []string{"id", "camera_id", "ID"}}
	FieldPOIName = Field{Name: "name", Keys: []string{"name", "title", "description"}}
)

// Lookup returns the first non-empty value among the field's keys.
func (f Field) Lookup(obj map[string]any) (any, bool) {
	for _, k := range f.Keys {
		v, ok := obj[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// String resolves the field to display text, falling back to the default.
func (f Field) String(obj map[string]any) string {
	if s, ok := f.text(obj); ok {
		return s
	}
	return f.Default
}

func (f Field) text(obj map[string]any) (string, bool) {
	v, ok := f.Lookup(obj)
	if !ok {
		return "", false
	}
	return stringify(v)
}

// Float resolves the field as a number. Numeric strings are accepted.
func (f Field) Float(obj map[string]any) (float64, bool) {
	v, ok := f.Lookup(obj)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case json.Number:
		return numberText(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// numberText renders a JSON number the way a browser would print it:
// integers keep every digit, other values lose exponents and trailing zeros.
func numberText(n json.Number) string {
	if _, err := n.Int64(); err == nil {
		return n.String()
	}
	if f, err := n.Float64(); err == nil && !math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return n.String()
}

func toFloat(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		f, err = t.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
