package incident

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func rec(id, category, description, routeType string) Record {
	return Record{
		ID:          id,
		HasID:       id != "",
		DisplayKey:  id,
		Category:    category,
		Description: description,
		Route:       RouteInfo{Route: "--", RouteType: routeType, LanesAffected: "--", Reporter: "ARDOT"},
		Class:       Classify(category),
	}
}

func TestFilter_Ignored(t *testing.T) {
	t.Parallel()

	records := []Record{
		rec("a", "Crash", "", "--"),
		rec("b", "Crash", "", "--"),
		rec("", "Crash", "", "--"),
	}
	got := Filter(records, NewIgnoreSet([]string{"b"}), false)
	assert.Equal(t, []string{"a"}, IDs(got))
	assert.Len(t, got, 2, "records without an id are never ignored")
}

func TestFilter_MaintenanceLike(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		r    Record
	}{
		{"category bridge", rec("1", "Bridge Inspection", "", "--")},
		{"description bridge", rec("2", "Lane closed", "Work on the BRIDGE deck", "--")},
		{"route type bridge", rec("3", "Other", "", "Bridge")},
		{"category construction", rec("4", "Road Construction", "", "--")},
		{"description maintenance", rec("5", "Other", "scheduled maintenance", "--")},
		{"route type maintenance", rec("6", "Other", "", "Maintenance route")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := []Record{tt.r}
			assert.Empty(t, Filter(in, nil, true), "dropped when suppressing")
			assert.Len(t, Filter(in, nil, false), 1, "kept when not suppressing")
		})
	}
}

func TestFilter_KeepsOrderAndIsIdempotent(t *testing.T) {
	t.Parallel()

	records := []Record{
		rec("c", "Crash", "", "--"),
		rec("x", "Construction", "", "--"),
		rec("a", "Flooding", "", "--"),
		rec("i", "Stalled", "", "--"),
		rec("b", "Road closed", "", "--"),
	}
	ignored := NewIgnoreSet([]string{"i"})

	once := Filter(records, ignored, true)
	twice := Filter(once, ignored, true)

	assert.Equal(t, []string{"c", "a", "b"}, IDs(once))
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second pass changed output (-once +twice):\n%s", diff)
	}
	assert.Len(t, records, 5, "input untouched")
}

func TestIsMaintenanceLike(t *testing.T) {
	t.Parallel()

	assert.False(t, IsMaintenanceLike(rec("1", "Unknown", "No description", "--")))
	assert.True(t, IsMaintenanceLike(rec("1", "Unknown", "No description", "BRIDGE")))
}
