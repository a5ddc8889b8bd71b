package controller

import (
	"context"
	"sort"
	"sync"

	"motion-logger/models"
	"motion-logger/services/ingest"
	"motion-logger/utils"
)

// SampleSink receives every sample a reader produces.
type SampleSink interface {
	Enqueue(s models.Sample)
}

// SensorsController owns the lifecycle of every sensor reader goroutine.
// Each reader's output is drained into the recorder and the live sample hub.
type SensorsController struct {
	readers []*ingest.MotionReader
	sink    SampleSink
	samples *Hub[models.Sample]
	wg      sync.WaitGroup
}

// NewSensorsController creates reader instances for every enabled sensor.
// Unknown sensor names are skipped with a warning.
func NewSensorsController(cfg utils.SensorsConfig, sink SampleSink, clock utils.Clock) *SensorsController {
	sc := &SensorsController{sink: sink, samples: NewHub[models.Sample]()}

	for _, kind := range models.SourceKinds {
		sensor, ok := cfg.Sensors[kind.String()]
		if !ok || !sensor.Enabled {
			continue
		}
		sc.readers = append(sc.readers, ingest.NewMotionReader(kind, sensor.RateHz, cfg.Simulate, clock))
	}
	for name := range cfg.Sensors {
		if _, err := models.ParseSourceKind(name); err != nil {
			utils.L().Warn("sensors controller: %v, ignored", err)
		}
	}
	return sc
}

// Start launches all enabled sensor goroutines.
func (sc *SensorsController) Start(ctx context.Context) {
	for _, r := range sc.readers {
		r.Start(ctx)
		sc.wg.Add(1)
		go sc.drain(r.Out)
	}
	utils.L().Info("sensors controller: %d readers launched", len(sc.readers))
}

// Wait blocks until every reader has stopped and its output is drained.
func (sc *SensorsController) Wait() {
	sc.wg.Wait()
}

func (sc *SensorsController) drain(ch <-chan models.Sample) {
	defer sc.wg.Done()
	for s := range ch {
		if sc.sink != nil {
			sc.sink.Enqueue(s)
		}
		sc.samples.Publish(s)
	}
}

// Samples returns the hub carrying every produced sample.
func (sc *SensorsController) Samples() *Hub[models.Sample] {
	return sc.samples
}

// AvailableSensors lists the enabled sensors by name.
func (sc *SensorsController) AvailableSensors() []string {
	names := make([]string, 0, len(sc.readers))
	for _, r := range sc.readers {
		names = append(names, r.Kind().String())
	}
	sort.Strings(names)
	return names
}

// SensorInfo describes every enabled sensor.
func (sc *SensorsController) SensorInfo() []ingest.ReaderInfo {
	out := make([]ingest.ReaderInfo, 0, len(sc.readers))
	for _, r := range sc.readers {
		out = append(out, r.Info())
	}
	return out
}

// LogStats prints current produce/drop counters for each active sensor.
func (sc *SensorsController) LogStats() {
	for _, r := range sc.readers {
		p, d := r.Stats()
		utils.L().Info("  %-15s produced=%d  dropped=%d", r.Kind(), p, d)
	}
	p, d := sc.samples.Stats()
	utils.L().Info("  live listeners=%d  published=%d  dropped=%d", sc.samples.Subscribers(), p, d)
}
