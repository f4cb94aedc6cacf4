package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
)

// Output file names inside the output directory.
const (
	HTMLFile    = "dashboard.html"
	JSONFile    = "dashboard.json"
	GeoJSONFile = "incidents.geojson"
	ChartFile   = "history.html"
)

// WriteFiles renders every output for d into dir. Each file is replaced
// atomically so a browser never sees a half-written page.
func WriteFiles(dir string, d Dashboard, loc *time.Location) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var page bytes.Buffer
	if err := RenderHTML(&page, d); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	jsonData, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard: %w", err)
	}
	geo, err := IncidentsGeoJSON(d.Incidents)
	if err != nil {
		return fmt.Errorf("failed to encode incidents geojson: %w", err)
	}
	var chart bytes.Buffer
	if err := RenderHistoryChart(&chart, d.History, loc); err != nil {
		return fmt.Errorf("failed to render history chart: %w", err)
	}

	outputs := []struct {
		name string
		data []byte
	}{
		{HTMLFile, page.Bytes()},
		{JSONFile, jsonData},
		{GeoJSONFile, geo},
		{ChartFile, chart.Bytes()},
	}
	for _, o := range outputs {
		path := filepath.Join(dir, o.name)
		if err := atomic.WriteFile(path, bytes.NewReader(o.data)); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}
