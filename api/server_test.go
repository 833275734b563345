package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/verdantlab/plantmon/logbook"
	"github.com/verdantlab/plantmon/monitor"
	"github.com/verdantlab/plantmon/scheduler"
)

type nopSource struct{}

func (nopSource) Next(*gocv.Mat) bool { return false }
func (nopSource) Close() error        { return nil }

type nopAppender struct{}

func (nopAppender) Append(context.Context, logbook.Record) error { return nil }

type nopSaver struct{}

func (nopSaver) Save(gocv.Mat) (string, error) { return "captures/x.jpg", nil }

func newTestServer(t *testing.T) (*Server, *monitor.Monitor, *logbook.Store) {
	t.Helper()
	mon := monitor.New(monitor.DefaultConfig(), nopSource{})
	store, err := logbook.OpenStore(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	runner := logbook.NewRunner(mon.Latest(), mon.Calibration(), nopAppender{}, store, nopSaver{})
	sched := scheduler.New(func() error { return nil })
	t.Cleanup(sched.Stop)

	return NewServer(mon, runner, sched, store), mon, store
}

func TestStatusEndpoint(t *testing.T) {
	server, mon, _ := newTestServer(t)
	mon.Status().Set("Calibrating...")

	rec := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Calibrating...", body["status"])
	assert.Equal(t, false, body["calibrated"])
	assert.Equal(t, false, body["scheduler_active"])
}

func TestMeasurementEndpointFormatsValues(t *testing.T) {
	server, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/measurement", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "0.00", body["height_mm"])
	assert.Equal(t, float64(0), body["leaf_count"])
	assert.Equal(t, "0.00", body["area_mm2"])
}

func TestLogRejectedBeforeCalibration(t *testing.T) {
	server, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/log", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSchedulerEndpoints(t *testing.T) {
	server, mon, _ := newTestServer(t)

	// Starting before calibration is rejected.
	rec := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, postForm("/scheduler/start", url.Values{"interval": {"minute"}}))
	assert.Equal(t, http.StatusConflict, rec.Code)

	mon.Calibration().Lock(10)

	rec = httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, postForm("/scheduler/start", url.Values{"interval": {"minute"}}))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, postForm("/scheduler/start", url.Values{"interval": {"bogus"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scheduler/stop", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecalibrateEndpoint(t *testing.T) {
	server, mon, _ := newTestServer(t)
	mon.Calibration().Lock(10)

	rec := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/recalibrate", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, mon.Calibration().Locked())
}

func TestReportRequiresRecords(t *testing.T) {
	server, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportRendersChart(t *testing.T) {
	server, _, store := newTestServer(t)
	require.NoError(t, store.Insert(logbook.Record{HeightMM: 10, LeafCount: 2, AreaMM2: 50}))

	rec := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Plant Growth")
}

func TestMethodGuards(t *testing.T) {
	server, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/log", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
