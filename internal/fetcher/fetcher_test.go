package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Zachdehooge/grid-dashboard/internal/incident"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchIncidents(t *testing.T) {
	t.Parallel()

	srv := serve(t, http.StatusOK, `{"events":[{"id":"1","type":"Crash"},{"id":"2"}]}`)
	records, err := NewClient(5*time.Second).FetchIncidents(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, incident.IDs(records))
}

func TestFetchIncidents_NetworkFailure(t *testing.T) {
	t.Parallel()

	srv := serve(t, http.StatusBadGateway, `upstream down`)
	records, err := NewClient(5*time.Second).FetchIncidents(context.Background(), srv.URL)
	assert.Nil(t, records)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.Contains(t, err.Error(), "502")

	_, err = NewClient(time.Second).FetchIncidents(context.Background(), "http://127.0.0.1:1/events")
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestFetchIncidents_ShapeMismatch(t *testing.T) {
	t.Parallel()

	srv := serve(t, http.StatusOK, `{"unexpected":true}`)
	records, err := NewClient(5*time.Second).FetchIncidents(context.Background(), srv.URL)
	assert.ErrorIs(t, err, incident.ErrShapeMismatch)
	assert.False(t, errors.Is(err, ErrNetwork))
	assert.Empty(t, records)
}

func TestFetchCameras(t *testing.T) {
	t.Parallel()

	srv := serve(t, http.StatusOK, `{"features":[{"geometry":{"coordinates":[-94.1,36.2]},"properties":{"id":"c1"}}]}`)
	pois, err := NewClient(5*time.Second).FetchCameras(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, pois, 1)
	assert.Equal(t, "c1", pois[0].ID)
}

func TestFetchObservation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stations/KASG/observations/latest", r.URL.Path)
		assert.Equal(t, "application/geo+json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"properties":{"temperature":{"value":30},"textDescription":"Clear"}}`))
	}))
	defer srv.Close()

	obs, err := NewClient(5*time.Second).FetchObservation(context.Background(), srv.URL+"/", "KASG")
	require.NoError(t, err)
	require.NotNil(t, obs.TemperatureC)
	assert.Equal(t, 30.0, *obs.TemperatureC)
	assert.Nil(t, obs.DewpointC)
	assert.Equal(t, "Clear", obs.Description)
}

func TestParseObservation_Invalid(t *testing.T) {
	t.Parallel()

	_, err := ParseObservation([]byte(`<html>`))
	assert.Error(t, err)
}
