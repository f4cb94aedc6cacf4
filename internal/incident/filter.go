package incident

import "strings"

// maintenanceKeywords mark construction-style work. Each keyword is checked
// against category, description and route type independently.
var maintenanceKeywords = []string{
	"construction",
	"maintenance",
	"bridge",
}

// IgnoreSnapshot is a read-only view of the ignored ids.
type IgnoreSnapshot interface {
	Contains(id string) bool
}

// Filter drops ignored records and, when suppressMaintenanceLike is set,
// records that look like construction or bridge work. It does not modify
// its inputs and keeps the input order.
func Filter(records []Record, ignored IgnoreSnapshot, suppressMaintenanceLike bool) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.HasID && ignored != nil && ignored.Contains(r.ID) {
			continue
		}
		if suppressMaintenanceLike && IsMaintenanceLike(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// IsMaintenanceLike reports whether any of category, description or route
// type mentions a maintenance keyword, ignoring case.
func IsMaintenanceLike(r Record) bool {
	fields := []string{
		strings.ToLower(r.Category),
		strings.ToLower(r.Description),
		strings.ToLower(r.Route.RouteType),
	}
	for _, keyword := range maintenanceKeywords {
		for _, f := range fields {
			if strings.Contains(f, keyword) {
				return true
			}
		}
	}
	return false
}
