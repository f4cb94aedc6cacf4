package generator

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/Zachdehooge/grid-dashboard/internal/incident"
)

// IncidentsGeoJSON encodes the located incidents as a FeatureCollection.
// Records without a location are left out.
func IncidentsGeoJSON(records []incident.Record) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, r := range records {
		if r.Location == nil {
			continue
		}
		f := geojson.NewFeature(orb.Point{r.Location.Lon, r.Location.Lat})
		if r.HasID {
			f.ID = r.ID
		}
		f.Properties["key"] = r.DisplayKey
		f.Properties["type"] = r.Category
		f.Properties["class"] = string(r.Class)
		f.Properties["description"] = r.Description
		f.Properties["county"] = r.County
		f.Properties["route"] = r.Route.Route
		f.Properties["route_type"] = r.Route.RouteType
		f.Properties["lanes_affected"] = r.Route.LanesAffected
		f.Properties["reported_by"] = r.Route.Reporter
		if r.NearestPOI != nil {
			f.Properties["nearest_camera"] = r.NearestPOI.POI.Name
			f.Properties["nearest_camera_miles"] = r.NearestPOI.DistanceMiles
		}
		fc.Append(f)
	}
	return fc.MarshalJSON()
}
