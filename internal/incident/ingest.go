package incident

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrShapeMismatch is reported when a payload is not a list, a feature
// collection or an events wrapper. Ingestion still yields an empty list.
var ErrShapeMismatch = errors.New("payload does not match a known shape")

// rawObject is one logical record before normalization. geom is the
// flattened geometry position when the record came from a feature.
type rawObject struct {
	props map[string]any
	geom  *Location
}

// Decode parses an incident feed body. The returned slice is never nil; on
// malformed or unknown payloads it is empty and the error wraps
// ErrShapeMismatch.
func Decode(data []byte) ([]Record, error) {
	payload, err := decodeJSON(data)
	if err != nil {
		return []Record{}, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	objs, ok := objects(payload)
	if !ok {
		return []Record{}, ErrShapeMismatch
	}
	return normalizeAll(objs), nil
}

// Ingest normalizes an already-decoded payload. Unknown shapes yield an
// empty list.
func Ingest(payload any) []Record {
	objs, _ := objects(payload)
	return normalizeAll(objs)
}

// DecodePOIs parses a camera feed body (flat list or feature collection).
func DecodePOIs(data []byte) ([]POI, error) {
	payload, err := decodeJSON(data)
	if err != nil {
		return []POI{}, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	var objs []rawObject
	switch p := payload.(type) {
	case []any:
		objs = flatObjects(p)
	case map[string]any:
		features, ok := p["features"].([]any)
		if !ok {
			return []POI{}, ErrShapeMismatch
		}
		objs = featureObjects(features)
	default:
		return []POI{}, ErrShapeMismatch
	}

	pois := make([]POI, 0, len(objs))
	for _, o := range objs {
		poi := POI{Location: locationOf(o)}
		if id, ok := FieldPOIID.text(o.props); ok {
			poi.ID = id
		}
		if name, ok := FieldPOIName.text(o.props); ok {
			poi.Name = name
		}
		pois = append(pois, poi)
	}
	return pois, nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// objects unwraps the three accepted incident shapes, checked in order:
// plain list, feature collection, events wrapper.
func objects(payload any) ([]rawObject, bool) {
	switch p := payload.(type) {
	case []any:
		return flatObjects(p), true
	case map[string]any:
		if features, ok := p["features"].([]any); ok {
			return featureObjects(features), true
		}
		if events, ok := p["events"].([]any); ok {
			return flatObjects(events), true
		}
	}
	return nil, false
}

func flatObjects(items []any) []rawObject {
	out := make([]rawObject, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, rawObject{props: m})
		}
	}
	return out
}

func featureObjects(features []any) []rawObject {
	out := make([]rawObject, 0, len(features))
	for _, item := range features {
		f, ok := item.(map[string]any)
		if !ok {
			continue
		}
		props, _ := f["properties"].(map[string]any)
		if props == nil {
			props = map[string]any{}
		}
		o := rawObject{props: props}
		if geom, ok := f["geometry"].(map[string]any); ok {
			o.geom = firstPosition(geom["coordinates"], 0)
		}
		out = append(out, o)
	}
	return out
}

// firstPosition flattens GeoJSON coordinates ([lon, lat], or nested arrays of
// them) to the first position found.
func firstPosition(v any, depth int) *Location {
	coords, ok := v.([]any)
	if !ok || len(coords) == 0 || depth > 3 {
		return nil
	}
	if _, nested := coords[0].([]any); nested {
		return firstPosition(coords[0], depth+1)
	}
	if len(coords) < 2 {
		return nil
	}
	lon, okLon := toFloat(coords[0])
	lat, okLat := toFloat(coords[1])
	if !okLon || !okLat {
		return nil
	}
	return &Location{Lat: lat, Lon: lon}
}

func locationOf(o rawObject) *Location {
	loc := o.geom
	if loc == nil {
		lat, okLat := FieldLatitude.Float(o.props)
		lon, okLon := FieldLongitude.Float(o.props)
		if !okLat || !okLon {
			return nil
		}
		loc = &Location{Lat: lat, Lon: lon}
	}
	if !loc.Valid() {
		return nil
	}
	return loc
}

func normalizeAll(objs []rawObject) []Record {
	records := make([]Record, 0, len(objs))
	for _, o := range objs {
		records = append(records, normalize(o))
	}
	return records
}

func normalize(o rawObject) Record {
	r := Record{
		Category:    FieldCategory.String(o.props),
		Description: FieldDescription.String(o.props),
		County:      FieldCounty.String(o.props),
		Location:    locationOf(o),
		Route: RouteInfo{
			Route:         FieldRoute.String(o.props),
			RouteType:     FieldRouteType.String(o.props),
			LanesAffected: FieldLanesAffected.String(o.props),
			Reporter:      FieldReporter.String(o.props),
		},
	}
	if id, ok := FieldID.text(o.props); ok {
		r.ID, r.HasID, r.DisplayKey = id, true, id
	} else {
		r.DisplayKey = displayToken()
	}
	r.Class = Classify(r.Category)
	return r
}

// displayToken is a 9-character random key for rows without an id.
func displayToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}
