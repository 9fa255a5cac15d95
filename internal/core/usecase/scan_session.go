package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/fitconnect/mealscan/internal/core/domain"
	"github.com/fitconnect/mealscan/internal/core/ports"
)

// ScanSessionFactory builds one live scan session per connected client.
type ScanSessionFactory struct {
	camera     ports.CaptureSource
	preproc    ports.FramePreprocessor
	classifier ports.FoodClassifier
	saver      ports.MealSaver
	threshold  float64
}

func NewScanSessionFactory(
	camera ports.CaptureSource,
	preproc ports.FramePreprocessor,
	classifier ports.FoodClassifier,
	saver ports.MealSaver,
	threshold float64,
) *ScanSessionFactory {
	return &ScanSessionFactory{
		camera:     camera,
		preproc:    preproc,
		classifier: classifier,
		saver:      saver,
		threshold:  threshold,
	}
}

func (f *ScanSessionFactory) New(userID string) *ScanSession {
	return &ScanSession{
		camera:     f.camera,
		preproc:    f.preproc,
		classifier: f.classifier,
		saver:      f.saver,
		threshold:  f.threshold,
		userID:     userID,
		state:      domain.StateIdle,
	}
}

// ScanSession drives the live capture pipeline as an explicit state machine.
// All operations are safe for concurrent use; at most one capture or save is
// in flight at a time, and a duplicate trigger while busy is a no-op. After
// Close, results of in-flight operations are discarded without mutating
// state.
type ScanSession struct {
	camera     ports.CaptureSource
	preproc    ports.FramePreprocessor
	classifier ports.FoodClassifier
	saver      ports.MealSaver
	threshold  float64
	userID     string

	mu         sync.Mutex
	state      domain.SessionState
	generation uint64
	busy       bool
	closed     bool

	normalized []byte
	prediction *domain.FoodPrediction
	mealID     string
	mealType   domain.MealType
	saved      *domain.MealEntry
}

var errSessionClosed = errors.New("scan session closed")

// Start requests camera access and opens the device session. A denied or
// restricted permission state is surfaced as ErrPermissionDenied so the
// client can route to its settings redirect.
func (s *ScanSession) Start(ctx context.Context) error {
	perm, err := s.camera.RequestAccess(ctx)
	if err != nil {
		return fmt.Errorf("request camera access: %w", err)
	}
	switch perm {
	case domain.PermissionDenied, domain.PermissionRestricted:
		return domain.WrapError(domain.ErrPermissionDenied, "start scan session",
			fmt.Errorf("permission state %s", perm))
	}
	if err := s.camera.StartSession(ctx); err != nil {
		return fmt.Errorf("start camera session: %w", err)
	}
	return nil
}

// Capture triggers one still exposure and classification. Calling it from a
// result state or from save_failed is the retry path: the previous frame and
// prediction are discarded and the pipeline restarts. A call while another
// capture or save is in flight, or from a state with no capture edge, leaves
// the session untouched and reports the current state.
func (s *ScanSession) Capture(ctx context.Context) (domain.SessionState, error) {
	s.mu.Lock()
	if s.closed {
		state := s.state
		s.mu.Unlock()
		return state, errSessionClosed
	}
	if s.busy || !domain.CanTransition(s.state, domain.StateCapturing) {
		state := s.state
		s.mu.Unlock()
		return state, nil
	}
	s.busy = true
	s.state = domain.StateCapturing
	s.normalized = nil
	s.prediction = nil
	s.mealID = ""
	gen := s.generation
	s.mu.Unlock()

	frame, err := s.camera.Capture(ctx)
	if err != nil {
		return s.settle(gen, func() {
			s.state = domain.StateIdle
		}), fmt.Errorf("capture frame: %w", err)
	}

	normalized, err := normalizeImage(s.preproc, frame.Image, frame)
	if err != nil {
		return s.settle(gen, func() {
			s.state = domain.StateIdle
		}), err
	}

	if state, stale := s.advance(gen, domain.StateClassifying); stale {
		return state, nil
	}

	pred, err := s.classifier.Classify(ctx, normalized)
	if err != nil {
		if domain.IsKind(err, domain.ErrNoPrediction) {
			// Soft outcome: same branch as a low-confidence result.
			return s.settle(gen, func() {
				s.state = domain.StateLowConfidenceResult
			}), nil
		}
		return s.settle(gen, func() {
			s.state = domain.StateIdle
		}), fmt.Errorf("classify frame: %w", err)
	}

	return s.settle(gen, func() {
		s.normalized = normalized
		s.prediction = &pred
		s.state = domain.ResultStateFor(pred.Confidence, s.threshold)
	}), nil
}

// Confirm records the chosen meal type and pins the meal ID used by every
// save attempt of this confirmation. Only a high-confidence result offers
// the save action.
func (s *ScanSession) Confirm(mealType domain.MealType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errSessionClosed
	}
	if !mealType.Valid() {
		return domain.WrapError(domain.ErrInvalidInput, "confirm meal", fmt.Errorf("unknown meal type %q", mealType))
	}
	if s.state != domain.StateHighConfidenceResult || s.prediction == nil {
		return domain.WrapError(domain.ErrInvalidInput, "confirm meal",
			fmt.Errorf("save is not offered in state %s", s.state))
	}
	s.mealType = mealType
	s.mealID = uuid.NewString()
	s.state = domain.StateConfirming
	return nil
}

// Save persists the confirmed meal. On failure the session lands in
// save_failed, from which Save may be called again without recapturing; the
// stable meal ID keeps a retried write from duplicating the entry.
func (s *ScanSession) Save(ctx context.Context) (*domain.MealEntry, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errSessionClosed
	}
	if s.busy || !domain.CanTransition(s.state, domain.StateSaving) {
		s.mu.Unlock()
		return nil, nil
	}
	if s.prediction == nil {
		s.mu.Unlock()
		return nil, domain.WrapError(domain.ErrInvalidInput, "save meal", fmt.Errorf("no prediction to save"))
	}
	s.busy = true
	s.state = domain.StateSaving
	req := ports.SaveMealRequest{
		MealID:     s.mealID,
		UserID:     s.userID,
		MealType:   s.mealType,
		Prediction: *s.prediction,
		Image:      s.normalized,
	}
	gen := s.generation
	s.mu.Unlock()

	entry, err := s.saver.Save(ctx, req)
	if err != nil {
		s.settle(gen, func() {
			s.state = domain.StateSaveFailed
		})
		return nil, err
	}

	s.settle(gen, func() {
		s.saved = entry
		s.state = domain.StateSaved
	})
	return entry, nil
}

func (s *ScanSession) ToggleTorch(ctx context.Context) error {
	return s.camera.ToggleTorch(ctx)
}

// Close releases the camera and invalidates any in-flight work. Results that
// arrive afterwards are discarded without touching session state.
func (s *ScanSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.generation++
	s.busy = false
	s.normalized = nil
	s.prediction = nil
	s.mu.Unlock()

	return s.camera.StopSession()
}

func (s *ScanSession) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *ScanSession) Prediction() *domain.FoodPrediction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prediction == nil {
		return nil
	}
	copyPred := *s.prediction
	return &copyPred
}

func (s *ScanSession) SavedEntry() *domain.MealEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

// settle applies a state mutation unless the session epoch moved on (Close
// was called, or a newer epoch took over). It returns the state observed
// after the attempt.
func (s *ScanSession) settle(gen uint64, apply func()) domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation {
		return s.state
	}
	s.busy = false
	apply()
	return s.state
}

// advance moves to an intermediate state, reporting staleness so the caller
// can abandon the pipeline run.
func (s *ScanSession) advance(gen uint64, to domain.SessionState) (domain.SessionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation {
		return s.state, true
	}
	s.state = to
	return s.state, false
}
