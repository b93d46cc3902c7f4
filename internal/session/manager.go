package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/your-org/veridex/internal/detect"
)

// ErrSuperseded is returned to a caller whose in-flight analysis was
// replaced by a newer submission on the same surface.
var ErrSuperseded = errors.New("analysis superseded by a newer submission")

// Phase is the per-surface analysis state visible to UI consumers.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// Detector runs one detection call. *detect.Client satisfies it.
type Detector interface {
	Detect(ctx context.Context, req detect.Request) (*detect.Result, error)
}

// Observer receives phase transitions. res is non-nil only for
// PhaseSucceeded, err only for PhaseFailed.
type Observer func(surfaceID string, phase Phase, res *detect.Result, err error)

type flight struct {
	cancel context.CancelFunc
	gen    uint64
}

// Manager enforces at most one live analysis per surface. Submitting
// while an earlier call is in flight cancels it, so the result a
// surface sees always belongs to its latest submission.
type Manager struct {
	detector Detector
	observer Observer

	mu      sync.Mutex
	gen     uint64
	flights map[string]*flight
}

func NewManager(detector Detector, observer Observer) *Manager {
	if observer == nil {
		observer = func(string, Phase, *detect.Result, error) {}
	}
	return &Manager{
		detector: detector,
		observer: observer,
		flights:  make(map[string]*flight),
	}
}

// Submit runs one analysis for the given surface, superseding any
// in-flight call on the same surface. A superseded caller gets
// ErrSuperseded; its result is discarded, never delivered.
func (m *Manager) Submit(ctx context.Context, surfaceID string, req detect.Request) (*detect.Result, error) {
	flightCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	if prev, ok := m.flights[surfaceID]; ok {
		prev.cancel()
		slog.Debug("superseding in-flight analysis", "surface", surfaceID)
	}
	m.gen++
	myGen := m.gen
	m.flights[surfaceID] = &flight{cancel: cancel, gen: myGen}
	m.mu.Unlock()

	m.observer(surfaceID, PhaseSubmitting, nil, nil)

	res, err := m.detector.Detect(flightCtx, req)
	cancel()

	m.mu.Lock()
	current, ok := m.flights[surfaceID]
	if !ok || current.gen != myGen {
		// A newer submission took over while we were in flight.
		m.mu.Unlock()
		return nil, ErrSuperseded
	}
	delete(m.flights, surfaceID)
	m.mu.Unlock()

	if err != nil {
		m.observer(surfaceID, PhaseFailed, nil, err)
		return nil, err
	}
	m.observer(surfaceID, PhaseSucceeded, res, nil)
	return res, nil
}

// Cancel aborts the in-flight analysis for a surface, if any.
func (m *Manager) Cancel(surfaceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.flights[surfaceID]; ok {
		f.cancel()
		delete(m.flights, surfaceID)
	}
}

// ActiveCount returns the number of in-flight analyses.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.flights)
}

// CancelAll aborts every in-flight analysis. Used on shutdown.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, f := range m.flights {
		f.cancel()
		delete(m.flights, id)
	}
}
