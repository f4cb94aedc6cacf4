package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 30*time.Second, c.IncidentInterval)
	assert.Equal(t, 5*time.Minute, c.WeatherInterval)
	assert.Equal(t, 10*time.Minute, c.CameraInterval)
	assert.True(t, c.SuppressMaintenance)
	assert.False(t, c.AlertSound)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GRID_NWS_STATION", "KXNA")
	t.Setenv("GRID_INCIDENT_INTERVAL", "45")
	t.Setenv("GRID_CAMERA_INTERVAL", "15m")
	t.Setenv("GRID_SUPPRESS_MAINTENANCE", "false")
	t.Setenv("GRID_HOME_LAT", "36.37")
	t.Setenv("GRID_WEATHER_INTERVAL", "soon")

	c := Load()
	assert.Equal(t, "KXNA", c.Station)
	assert.Equal(t, 45*time.Second, c.IncidentInterval)
	assert.Equal(t, 15*time.Minute, c.CameraInterval)
	assert.Equal(t, 5*time.Minute, c.WeatherInterval, "unparseable values keep the default")
	assert.False(t, c.SuppressMaintenance)
	assert.Equal(t, 36.37, c.Home.Lat)
}

func TestValidate(t *testing.T) {
	c := Default()
	c.IncidentInterval = 10 * time.Second
	c.TimeZone = "Mars/Olympus"
	c.Station = ""

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incident interval")
	assert.Contains(t, err.Error(), "Mars/Olympus")
	assert.Contains(t, err.Error(), "station")
}

func TestLocationFallback(t *testing.T) {
	c := Default()
	c.TimeZone = "nowhere"
	assert.Equal(t, time.UTC, c.Location())
}
