package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/veridex/internal/detect"
)

type stubDetector struct {
	fn func(ctx context.Context, req detect.Request) (*detect.Result, error)
}

func (s *stubDetector) Detect(ctx context.Context, req detect.Request) (*detect.Result, error) {
	return s.fn(ctx, req)
}

func result(confidence float64) *detect.Result {
	return &detect.Result{
		MediaType:         detect.MediaImage,
		Prediction:        detect.PredictionReal,
		ConfidencePercent: confidence,
	}
}

func TestSubmit_DeliversResult(t *testing.T) {
	m := NewManager(&stubDetector{
		fn: func(ctx context.Context, req detect.Request) (*detect.Result, error) {
			return result(90), nil
		},
	}, nil)

	res, err := m.Submit(context.Background(), "surface-1", detect.Request{MediaType: detect.MediaImage})
	require.NoError(t, err)
	assert.InDelta(t, 90, res.ConfidencePercent, 1e-9)
	assert.Equal(t, 0, m.ActiveCount())
}

func TestSubmit_SecondSubmissionSupersedesFirst(t *testing.T) {
	req := require.New(t)

	firstInFlight := make(chan struct{})
	detector := &stubDetector{
		fn: func(ctx context.Context, r detect.Request) (*detect.Result, error) {
			if r.Filename == "first.png" {
				close(firstInFlight)
				// Simulate a slow backend call; it ends only when
				// the manager cancels it.
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return result(75), nil
		},
	}
	m := NewManager(detector, nil)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = m.Submit(context.Background(), "surface-1", detect.Request{
			MediaType: detect.MediaImage, Filename: "first.png",
		})
	}()

	select {
	case <-firstInFlight:
	case <-time.After(time.Second):
		t.Fatal("first submission never started")
	}

	res, err := m.Submit(context.Background(), "surface-1", detect.Request{
		MediaType: detect.MediaImage, Filename: "second.png",
	})
	req.NoError(err)
	req.InDelta(75, res.ConfidencePercent, 1e-9)

	wg.Wait()
	// The slow first call must never deliver a result.
	req.ErrorIs(firstErr, ErrSuperseded)
	req.Equal(0, m.ActiveCount())
}

func TestSubmit_SeparateSurfacesDoNotInterfere(t *testing.T) {
	bothInFlight := make(chan struct{}, 2)
	proceed := make(chan struct{})
	m := NewManager(&stubDetector{
		fn: func(ctx context.Context, r detect.Request) (*detect.Result, error) {
			bothInFlight <- struct{}{}
			select {
			case <-proceed:
				return result(80), nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}, nil)

	results := make(chan error, 2)
	for _, surface := range []string{"surface-a", "surface-b"} {
		go func(s string) {
			_, err := m.Submit(context.Background(), s, detect.Request{MediaType: detect.MediaAudio})
			results <- err
		}(surface)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-bothInFlight:
		case <-time.After(time.Second):
			t.Fatal("submissions never started")
		}
	}
	assert.Equal(t, 2, m.ActiveCount())
	close(proceed)

	for i := 0; i < 2; i++ {
		require.NoError(t, <-results)
	}
}

func TestCancel_AbortsInFlightAnalysis(t *testing.T) {
	inFlight := make(chan struct{})
	m := NewManager(&stubDetector{
		fn: func(ctx context.Context, r detect.Request) (*detect.Result, error) {
			close(inFlight)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := m.Submit(context.Background(), "analysis-42", detect.Request{MediaType: detect.MediaVideo})
		done <- err
	}()

	select {
	case <-inFlight:
	case <-time.After(time.Second):
		t.Fatal("submission never started")
	}

	m.Cancel("analysis-42")

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("cancelled submission never returned")
	}
}

func TestSubmit_ObserverSeesPhases(t *testing.T) {
	var mu sync.Mutex
	var phases []Phase
	observer := func(surfaceID string, phase Phase, res *detect.Result, err error) {
		mu.Lock()
		phases = append(phases, phase)
		mu.Unlock()
	}

	m := NewManager(&stubDetector{
		fn: func(ctx context.Context, r detect.Request) (*detect.Result, error) {
			return result(66.1), nil
		},
	}, observer)

	_, err := m.Submit(context.Background(), "surface-1", detect.Request{MediaType: detect.MediaVideo})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Phase{PhaseSubmitting, PhaseSucceeded}, phases)
}

func TestSubmit_FailedPhaseOnError(t *testing.T) {
	var gotPhase Phase
	var gotErr error
	m := NewManager(&stubDetector{
		fn: func(ctx context.Context, r detect.Request) (*detect.Result, error) {
			return nil, context.DeadlineExceeded
		},
	}, func(surfaceID string, phase Phase, res *detect.Result, err error) {
		gotPhase, gotErr = phase, err
	})

	_, err := m.Submit(context.Background(), "surface-1", detect.Request{MediaType: detect.MediaText, Text: "hi"})
	require.Error(t, err)
	assert.Equal(t, PhaseFailed, gotPhase)
	assert.ErrorIs(t, gotErr, context.DeadlineExceeded)
}
