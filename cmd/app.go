package main

import (
	"context"
	"path/filepath"
	"sync"

	"motion-logger/controller"
	"motion-logger/services/announce"
	"motion-logger/utils"
)

// app is the assembled pipeline:
//
//	sensor readers ──► SensorsController ──► RecordingController ──► CSV
//	                          │                      ▲
//	                     sample hub           SequenceController ──► Gate ──► Speaker
//	                          │                      │
//	                     /ws/samples            status hub ──► /ws/status
type app struct {
	recorder *controller.RecordingController
	gate     *announce.Gate
	sequence *controller.SequenceController
	sensors  *controller.SensorsController
	library  *controller.Library

	wg sync.WaitGroup
}

func newApp(cfg *utils.Config) (*app, error) {
	if !filepath.IsAbs(cfg.Recording.Dir) {
		if abs, err := filepath.Abs(cfg.Recording.Dir); err == nil {
			cfg.Recording.Dir = abs
		}
	}

	opts, err := controller.SequenceOptionsFrom(cfg.Schedule)
	if err != nil {
		return nil, err
	}

	a := &app{}
	a.recorder = controller.NewRecordingController(controller.RecordingOptionsFrom(cfg.Recording), nil)
	a.gate = announce.NewGate(announce.FromConfig(cfg.Announcements), cfg.Announcements.Enabled, nil)
	a.sequence = controller.NewSequenceController(a.recorder, a.gate, opts, nil)
	a.sensors = controller.NewSensorsController(cfg.Sensors, a.recorder, nil)
	a.library = controller.NewLibrary(cfg.Recording.Dir, a.recorder.ActivePath)
	return a, nil
}

// start launches the speech delivery loop and the sensor readers.
func (a *app) start(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.gate.Run(ctx)
	}()
	a.sensors.Start(ctx)
}

// shutdown stops any session still open and waits for the goroutines
// started by start. ctx must already be cancelled.
func (a *app) shutdown() {
	if a.recorder.IsRecording() {
		path, err := a.sequence.StopRecording()
		switch {
		case err == nil:
			utils.L().Info("session saved to: %s", path)
		case path != "":
			utils.L().Error("session saved to %s with errors: %v", path, err)
		}
	}
	a.sequence.Wait()
	a.sensors.Wait()
	a.wg.Wait()
}

func (a *app) logStats() {
	utils.L().Info("── stats ─────────────────────────")
	a.sensors.LogStats()
	if info, ok := a.recorder.Session(); ok {
		utils.L().Info("  activity=%s  enqueued=%d  written=%d  pending=%d",
			info.Activity, info.Enqueued, info.Written, info.Pending)
	}
	requested, interrupted := a.gate.Stats()
	utils.L().Info("  announcements requested=%d  interrupted=%d", requested, interrupted)
	utils.L().Info("  rows written by finished sessions: %d", a.recorder.RowsWritten())
	utils.L().Info("──────────────────────────────────")
}
