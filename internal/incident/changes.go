package incident

import "sync"

// ChangeDetector remembers the id set of the previous run and reports when a
// run introduces an id that was not there before.
type ChangeDetector struct {
	mu       sync.Mutex
	previous map[string]struct{}
}

// Observe records ids as the latest set and reports whether any of them is
// new. The first observation, or any observation following an empty set,
// never reports.
func (d *ChangeDetector) Observe(ids []string) bool {
	current := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		current[id] = struct{}{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	fired := false
	if len(d.previous) > 0 {
		for id := range current {
			if _, seen := d.previous[id]; !seen {
				fired = true
				break
			}
		}
	}
	d.previous = current
	return fired
}

// Reset forgets the previous set.
func (d *ChangeDetector) Reset() {
	d.mu.Lock()
	d.previous = nil
	d.mu.Unlock()
}
