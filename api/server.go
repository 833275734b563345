// Package api exposes the monitor's operator surface over HTTP:
// status, manual log trigger, recalibration, scheduler control, and
// the growth report.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/verdantlab/plantmon/logbook"
	"github.com/verdantlab/plantmon/monitor"
	"github.com/verdantlab/plantmon/report"
	"github.com/verdantlab/plantmon/scheduler"
)

type Server struct {
	mon    *monitor.Monitor
	runner *logbook.Runner
	sched  *scheduler.Scheduler
	store  *logbook.Store
}

func NewServer(mon *monitor.Monitor, runner *logbook.Runner, sched *scheduler.Scheduler, store *logbook.Store) *Server {
	return &Server{
		mon:    mon,
		runner: runner,
		sched:  sched,
		store:  store,
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/measurement", s.measurementHandler)
	mux.HandleFunc("/log", s.logHandler)
	mux.HandleFunc("/recalibrate", s.recalibrateHandler)
	mux.HandleFunc("/scheduler/start", s.schedulerStartHandler)
	mux.HandleFunc("/scheduler/stop", s.schedulerStopHandler)
	mux.HandleFunc("/records", s.recordsHandler)
	mux.HandleFunc("/report", s.reportHandler)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Plant Growth Monitor\n"))
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	pixelsPerMM, locked := s.mon.Calibration().Get()
	writeJSON(w, map[string]interface{}{
		"status":           s.mon.Status().Get(),
		"calibrated":       locked,
		"pixels_per_mm":    pixelsPerMM,
		"scheduler_active": s.sched.Active(),
		"logging_busy":     s.runner.Busy(),
	})
}

// measurementHandler reports the smoothed display values: millimeter
// fields with two decimals, leaf count as an integer.
func (s *Server) measurementHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	m := s.mon.Smoothed()
	writeJSON(w, map[string]interface{}{
		"height_mm":  fmt.Sprintf("%.2f", m.HeightMM),
		"leaf_count": m.LeafCount,
		"area_mm2":   fmt.Sprintf("%.2f", m.AreaMM2),
	})
}

func (s *Server) logHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.mon.Calibration().Locked() {
		http.Error(w, "Please calibrate first", http.StatusConflict)
		return
	}
	if s.runner.Busy() {
		http.Error(w, "A log action is already in flight", http.StatusConflict)
		return
	}
	s.runner.TriggerAsync(context.Background(), r.FormValue("notes"))
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintln(w, "Log action started")
}

func (s *Server) recalibrateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mon.Recalibrate()
	fmt.Fprintln(w, "Recalibrating")
}

func (s *Server) schedulerStartHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.mon.Calibration().Locked() {
		http.Error(w, "Please calibrate first", http.StatusConflict)
		return
	}
	interval, err := scheduler.ParseInterval(r.FormValue("interval"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.sched.Start(interval); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fmt.Fprintf(w, "Auto-logging %s\n", interval)
}

func (s *Server) schedulerStopHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.sched.Stop()
	fmt.Fprintln(w, "Scheduler stopped")
}

func (s *Server) recordsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	records, err := s.store.Records()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to read records: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, records)
}

func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	records, err := s.store.Records()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to read records: %v", err), http.StatusInternalServerError)
		return
	}
	if len(records) == 0 {
		http.Error(w, "No measurements logged yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderGrowthChart(w, records); err != nil {
		http.Error(w, fmt.Sprintf("Failed to render chart: %v", err), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
