package ingest

import (
	"context"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"motion-logger/models"
	"motion-logger/utils"
)

// NormalDelay is the sampling period used when no rate is configured.
const NormalDelay = 200 * time.Millisecond

// MinPeriod is the fastest sampling period a reader will use.
const MinPeriod = time.Millisecond

// PeriodForRate converts a rate in Hz to a sampling period. The period is
// computed in whole microseconds and never drops below MinPeriod; a rate
// of zero or less selects NormalDelay.
func PeriodForRate(rateHz int) time.Duration {
	if rateHz <= 0 {
		return NormalDelay
	}
	p := time.Duration(1_000_000/rateHz) * time.Microsecond
	if p < MinPeriod {
		p = MinPeriod
	}
	return p
}

// ReaderInfo describes a sensor as exposed to the control surface.
type ReaderInfo struct {
	Name     string        `json:"name"`
	Vendor   string        `json:"vendor"`
	Kind     string        `json:"type"`
	RateHz   int           `json:"rate_hz"`
	Period   time.Duration `json:"period"`
	Simulate bool          `json:"simulate"`
}

// MotionReader produces samples of one sensor kind at a fixed period (or
// simulates them).
type MotionReader struct {
	kind   models.SourceKind
	rateHz int
	sim    bool
	clock  utils.Clock

	Out      chan models.Sample
	dropped  uint64
	produced uint64
}

// NewMotionReader creates a reader for kind sampling at rateHz.
func NewMotionReader(kind models.SourceKind, rateHz int, simulate bool, clock utils.Clock) *MotionReader {
	if clock == nil {
		clock = utils.WallClock
	}
	return &MotionReader{
		kind:   kind,
		rateHz: rateHz,
		sim:    simulate,
		clock:  clock,
		Out:    make(chan models.Sample, 512),
	}
}

// Kind returns the sensor kind this reader produces.
func (r *MotionReader) Kind() models.SourceKind { return r.kind }

// Info describes the reader.
func (r *MotionReader) Info() ReaderInfo {
	vendor := "host"
	if r.sim {
		vendor = "simulated"
	}
	return ReaderInfo{
		Name:     r.kind.String(),
		Vendor:   vendor,
		Kind:     r.kind.String(),
		RateHz:   r.rateHz,
		Period:   PeriodForRate(r.rateHz),
		Simulate: r.sim,
	}
}

func (r *MotionReader) Start(ctx context.Context) {
	go r.run(ctx, r.clock.NewTicker(PeriodForRate(r.rateHz)))
	utils.L().Info("%-15s reader started (rate=%dHz, period=%s, simulate=%v)",
		r.kind, r.rateHz, PeriodForRate(r.rateHz), r.sim)
}

func (r *MotionReader) run(ctx context.Context, ticker utils.Ticker) {
	defer close(r.Out)
	defer ticker.Stop()

	var step float64
	for {
		select {
		case <-ctx.Done():
			utils.L().Info("%-15s reader stopped (produced=%d, dropped=%d)",
				r.kind, atomic.LoadUint64(&r.produced), atomic.LoadUint64(&r.dropped))
			return
		case now := <-ticker.C():
			s := r.read(now, step)
			step += 0.01

			select {
			case r.Out <- s:
				atomic.AddUint64(&r.produced, 1)
			default:
				atomic.AddUint64(&r.dropped, 1)
			}
		}
	}
}

func (r *MotionReader) read(now time.Time, step float64) models.Sample {
	if !r.sim {
		return models.NewSample(r.kind, now, make([]float64, r.kind.Axes()), 0)
	}

	var v []float64
	switch r.kind {
	case models.SourceAccelerometer:
		v = []float64{
			0.8*math.Sin(step*6) + rand.Float64()*0.05,
			0.4*math.Cos(step*6) + rand.Float64()*0.05,
			9.81 + 0.3*math.Sin(step*12) + rand.Float64()*0.02,
		}
	case models.SourceGyroscope:
		v = []float64{
			0.1*math.Sin(step*2) + rand.Float64()*0.005,
			0.1*math.Cos(step*2) + rand.Float64()*0.005,
			0.02 + rand.Float64()*0.002,
		}
	case models.SourceMagnetometer:
		v = []float64{
			25.0 + rand.Float64()*0.5,
			-10.0 + rand.Float64()*0.5,
			45.0 + rand.Float64()*0.5,
		}
	default:
		half := step / 2
		v = []float64{0, 0, math.Sin(half), math.Cos(half)}
	}
	return models.NewSample(r.kind, now, v, 3)
}

// Stats returns produced and dropped sample counts.
func (r *MotionReader) Stats() (uint64, uint64) {
	return atomic.LoadUint64(&r.produced), atomic.LoadUint64(&r.dropped)
}
