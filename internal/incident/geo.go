package incident

import "math"

// EarthRadiusMiles is the sphere radius used for all distances.
const EarthRadiusMiles = 3959

// Haversine returns the great-circle distance in miles between two points.
func Haversine(a, b Location) float64 {
	dLat := degToRad(b.Lat - a.Lat)
	dLon := degToRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusMiles * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Nearest returns the POI closest to loc, or nil when no POI has a valid
// location. On equal distances the earlier POI wins.
func Nearest(loc Location, pois []POI) *NearestPOI {
	var best *NearestPOI
	for _, p := range pois {
		if p.Location == nil || !p.Location.Valid() {
			continue
		}
		d := Haversine(loc, *p.Location)
		if best == nil || d < best.DistanceMiles {
			best = &NearestPOI{POI: p, DistanceMiles: d}
		}
	}
	return best
}

// Enrich returns copies of records with NearestPOI set. Records without a
// location get nil. The scan is records × POIs on every call.
func Enrich(records []Record, pois []POI) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		r.NearestPOI = nil
		if r.Location != nil && len(pois) > 0 {
			r.NearestPOI = Nearest(*r.Location, pois)
		}
		out[i] = r
	}
	return out
}
