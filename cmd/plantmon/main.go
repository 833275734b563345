package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gocv.io/x/gocv"

	"github.com/verdantlab/plantmon/api"
	"github.com/verdantlab/plantmon/capture"
	"github.com/verdantlab/plantmon/logbook"
	"github.com/verdantlab/plantmon/monitor"
	"github.com/verdantlab/plantmon/sampling"
	"github.com/verdantlab/plantmon/scheduler"
)

const (
	// DefaultCapturesDir is where logged frames are written.
	DefaultCapturesDir = "captures"
	// DefaultDBFile is the local mirror of logged measurements.
	DefaultDBFile = "plantmon.db"
)

func main() {
	var (
		deviceID    int
		videoPath   string
		listen      string
		capturesDir string
		dbFile      string
		credentials string
		sheetID     string
		worksheet   string
		window      time.Duration
		poll        time.Duration
		autoLog     string
		showWindow  bool
	)
	flag.IntVar(&deviceID, "device", 0, "Camera device ID")
	flag.StringVar(&videoPath, "video", "", "Path to a video file to replay instead of the camera")
	flag.StringVar(&listen, "listen", ":8080", "HTTP listen address for the operator API")
	flag.StringVar(&capturesDir, "captures-dir", DefaultCapturesDir, "Directory for saved frames")
	flag.StringVar(&dbFile, "db", DefaultDBFile, "Path to the local measurement mirror")
	flag.StringVar(&credentials, "credentials", "credentials.json", "Path to the Google service account credentials")
	flag.StringVar(&sheetID, "sheet-id", "", "Google Sheets spreadsheet ID (empty logs locally only)")
	flag.StringVar(&worksheet, "worksheet", "Sheet1", "Worksheet tab name")
	flag.DurationVar(&window, "sample-window", sampling.DefaultWindow, "Best-of-window sampling duration")
	flag.DurationVar(&poll, "sample-poll", sampling.DefaultPoll, "Best-of-window polling cadence")
	flag.StringVar(&autoLog, "auto-log", "", "Start auto-logging at this interval once calibrated (second, minute, hour, day)")
	flag.BoolVar(&showWindow, "show-window", false, "Show the annotated video window")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source, err := openSource(videoPath, deviceID)
	if err != nil {
		log.Fatalf("opening frame source: %v", err)
	}
	defer source.Close()

	mon := monitor.New(monitor.DefaultConfig(), source)

	sink, err := logbook.NewArtifactSink(capturesDir)
	if err != nil {
		log.Fatalf("creating artifact sink: %v", err)
	}
	store, err := logbook.OpenStore(dbFile)
	if err != nil {
		log.Fatalf("opening measurement store: %v", err)
	}
	defer store.Close()

	appender, err := openAppender(ctx, credentials, sheetID, worksheet)
	if err != nil {
		log.Fatalf("connecting to Google Sheets: %v", err)
	}

	runner := logbook.NewRunner(mon.Latest(), mon.Calibration(), appender, store, sink)
	runner.SetWindow(window, poll)
	runner.OnStatus = mon.Status().Set

	sched := scheduler.New(func() error {
		return runner.Trigger(ctx, "[scheduled]")
	})
	defer sched.Stop()

	if autoLog != "" {
		interval, err := scheduler.ParseInterval(autoLog)
		if err != nil {
			log.Fatalf("parsing -auto-log: %v", err)
		}
		go startWhenCalibrated(ctx, mon, sched, interval)
	}

	server := api.NewServer(mon, runner, sched, store)
	go func() {
		log.Printf("operator API listening on %s", listen)
		if err := http.ListenAndServe(listen, server.ServeMux()); err != nil && err != http.ErrServerClosed {
			log.Printf("api server: %v", err)
		}
	}()

	if showWindow {
		win := gocv.NewWindow("Plant Growth Monitor")
		defer win.Close()
		mon.OnFrame = func(annotated gocv.Mat) {
			win.IMShow(annotated)
			win.WaitKey(1)
		}
	}

	log.Print("starting capture cycle")
	if err := mon.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("capture cycle: %v", err)
	}
	log.Print("shut down")
}

// openSource picks the camera or a replay file.
func openSource(videoPath string, deviceID int) (capture.Source, error) {
	if videoPath != "" {
		return capture.OpenVideoFile(videoPath)
	}
	return capture.OpenCamera(deviceID)
}

// openAppender connects to Google Sheets, or falls back to a local
// log-only appender when no spreadsheet is configured.
func openAppender(ctx context.Context, credentials, sheetID, worksheet string) (logbook.Appender, error) {
	if sheetID == "" {
		log.Print("no -sheet-id given; records go to the local mirror only")
		return logbook.LogOnlyAppender{}, nil
	}
	return logbook.NewSheetsClient(ctx, logbook.SheetsConfig{
		CredentialsFile: credentials,
		SpreadsheetID:   sheetID,
		Worksheet:       worksheet,
	})
}

// startWhenCalibrated polls until the calibration locks, then starts
// the auto-log schedule.
func startWhenCalibrated(ctx context.Context, mon *monitor.Monitor, sched *scheduler.Scheduler, interval scheduler.Interval) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if mon.Calibration().Locked() {
				if err := sched.Start(interval); err != nil {
					log.Printf("starting scheduler: %v", err)
				}
				return
			}
		}
	}
}
