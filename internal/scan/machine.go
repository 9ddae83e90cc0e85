package scan

import (
	"context"
	"errors"
	"sync"
	"time"

	"redeem/internal/models"
	"redeem/internal/verifyclient"
)

// Phase is the coarse position in the session lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePermissionPending
	PhaseScanning
	PhaseDetected
	PhaseVerifying
	PhaseResolved
)

// Resolution qualifies PhaseResolved.
type Resolution int

const (
	ResolutionNone Resolution = iota
	ResolutionSuccess
	ResolutionAlreadyUsed
	ResolutionRejected
)

// State is the single source of truth for the scan surface. It is a
// tagged value: Resolution, Record, Reason and Notice are only populated
// for the phases they belong to, so contradictory flag combinations
// cannot be expressed.
type State struct {
	Phase      Phase
	Resolution Resolution
	// Code is the normalized code being processed, set from PhaseDetected
	// onward.
	Code string
	// Record is attached for Success and AlreadyUsed resolutions.
	Record *models.RedemptionSnapshot
	// Reason explains a Rejected resolution.
	Reason string
	// Retryable marks a Rejected resolution caused by a network failure.
	Retryable bool
	// Notice is an inline message shown while scanning resumed
	// automatically after a rejection.
	Notice string
}

var ErrVerificationInFlight = errors.New("a verification is already in flight")

const defaultVerifyTimeout = 10 * time.Second

// Verifier is the outbound dependency of the session; satisfied by
// *verifyclient.Client and by test doubles.
type Verifier interface {
	Verify(ctx context.Context, code string) verifyclient.Result
}

// SessionConfig tunes a redemption session.
type SessionConfig struct {
	// VerifyTimeout bounds each verification round-trip. A timeout is
	// treated as a network failure and scanning is restored.
	VerifyTimeout time.Duration
	// OnChange, when set, observes every state transition.
	OnChange func(State)
}

// Session composes the capture session and the verification client into
// one state machine. At most one verification is in flight at any time;
// detections arriving while one is outstanding are dropped, not queued.
type Session struct {
	capture  *CaptureSession
	verifier Verifier
	cfg      SessionConfig

	mu         sync.Mutex
	state      State
	inFlight   bool
	closed     bool
	generation uint64
}

func NewSession(capture *CaptureSession, verifier Verifier, cfg SessionConfig) *Session {
	if capture == nil {
		panic("capture session is required")
	}
	if verifier == nil {
		panic("verifier is required")
	}
	if cfg.VerifyTimeout <= 0 {
		cfg.VerifyTimeout = defaultVerifyTimeout
	}
	return &Session{
		capture:  capture,
		verifier: verifier,
		cfg:      cfg,
		state:    State{Phase: PhaseIdle},
	}
}

// State returns the current UI state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartScan requests camera permission and, when granted, opens the live
// capture. Denial or device failure resolves to Rejected; manual entry
// stays available regardless.
func (s *Session) StartScan(ctx context.Context) {
	if !s.transition(State{Phase: PhasePermissionPending}, PhaseIdle, PhaseResolved) {
		return
	}

	if err := s.capture.RequestPermission(ctx); err != nil {
		s.setState(State{
			Phase:      PhaseResolved,
			Resolution: ResolutionRejected,
			Reason:     err.Error(),
		})
		return
	}

	if err := s.capture.StartScanning(ctx, s.handleDetection, s.handleCameraError); err != nil {
		s.setState(State{
			Phase:      PhaseResolved,
			Resolution: ResolutionRejected,
			Reason:     err.Error(),
		})
		return
	}

	s.setState(State{Phase: PhaseScanning})
}

// SubmitManual verifies an operator-typed code. It is never gated on
// camera state. Input-format errors are returned inline and cause no
// network call; a rapid duplicate submit while a verification is
// outstanding is rejected by the in-flight guard.
func (s *Session) SubmitManual(raw string) error {
	code, err := Normalize(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("session is closed")
	}
	if s.inFlight {
		s.mu.Unlock()
		return ErrVerificationInFlight
	}
	s.inFlight = true
	gen := s.generation
	s.state = State{Phase: PhaseVerifying, Code: code}
	s.mu.Unlock()
	s.notify()

	go s.runVerify(gen, code)
	return nil
}

// ResumeScanning returns from a Resolved state to live scanning on
// explicit operator action.
func (s *Session) ResumeScanning() {
	s.mu.Lock()
	if s.closed || s.state.Phase != PhaseResolved {
		s.mu.Unlock()
		return
	}
	s.state = State{Phase: PhaseScanning}
	s.mu.Unlock()
	s.capture.Resume()
	s.notify()
}

// Reset returns the session to Idle, releasing the camera.
func (s *Session) Reset() {
	s.capture.StopScanning()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.generation++ // discard any in-flight result
	s.inFlight = false
	s.state = State{Phase: PhaseIdle}
	s.mu.Unlock()
	s.notify()
}

// Close tears the session down. The camera is released and any
// outstanding verification result is discarded; a closed session is
// never mutated again.
func (s *Session) Close() {
	s.capture.StopScanning()
	s.mu.Lock()
	s.closed = true
	s.generation++
	s.inFlight = false
	s.state = State{Phase: PhaseIdle}
	s.mu.Unlock()
}

// handleDetection receives raw detector output. The capture session has
// already paused itself, so at most one detection reaches verification
// per physical scan.
func (s *Session) handleDetection(raw string) {
	code, err := Normalize(raw)
	if err != nil {
		if errors.Is(err, ErrNoCodeFound) {
			// Expected while hunting for a code; keep scanning silently.
			s.capture.Resume()
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.state = State{Phase: PhaseScanning, Notice: err.Error()}
		s.mu.Unlock()
		s.capture.Resume()
		s.notify()
		return
	}

	s.mu.Lock()
	if s.closed || s.inFlight {
		// A verification is outstanding; this detection is dropped.
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	gen := s.generation
	s.state = State{Phase: PhaseDetected, Code: code}
	s.mu.Unlock()
	s.notify()

	go s.runVerify(gen, code)
}

// handleCameraError surfaces mid-scan camera failures with the same
// taxonomy as permission requests.
func (s *Session) handleCameraError(err error) {
	s.mu.Lock()
	if s.closed || s.inFlight {
		s.mu.Unlock()
		return
	}
	s.state = State{
		Phase:      PhaseResolved,
		Resolution: ResolutionRejected,
		Reason:     err.Error(),
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Session) runVerify(gen uint64, code string) {
	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.state = State{Phase: PhaseVerifying, Code: code}
	s.mu.Unlock()
	s.notify()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.VerifyTimeout)
	defer cancel()
	result := s.verifier.Verify(ctx, code)

	s.mu.Lock()
	// The guard clears on every exit path, including discarded results.
	s.inFlight = false
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return
	}

	switch result.Outcome {
	case verifyclient.OutcomeVerified:
		s.state = State{
			Phase:      PhaseResolved,
			Resolution: ResolutionSuccess,
			Code:       code,
			Record:     result.Record,
		}
		s.mu.Unlock()
		s.notify()

	case verifyclient.OutcomeAlreadyUsed:
		// Informational, not an error. Scanning resumes only on explicit
		// operator action.
		s.state = State{
			Phase:      PhaseResolved,
			Resolution: ResolutionAlreadyUsed,
			Code:       code,
			Record:     result.Record,
		}
		s.mu.Unlock()
		s.notify()

	default:
		s.resolveRejected(code, result)
	}
}

// resolveRejected handles ownership violations, validation failures and
// network failures. When the camera is live, scanning resumes
// automatically so the operator can retry without an extra tap.
// Called with s.mu held; releases it.
func (s *Session) resolveRejected(code string, result verifyclient.Result) {
	reason := result.Reason
	if reason == "" && result.Err != nil {
		reason = result.Err.Error()
	}
	retryable := result.Outcome == verifyclient.OutcomeNetworkFailure

	if s.capture.Scanning() {
		s.state = State{Phase: PhaseScanning, Notice: reason}
		s.mu.Unlock()
		s.capture.Resume()
		s.notify()
		return
	}

	s.state = State{
		Phase:      PhaseResolved,
		Resolution: ResolutionRejected,
		Code:       code,
		Reason:     reason,
		Retryable:  retryable,
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.mu.Unlock()
	s.notify()
}

// transition moves to next if the current phase is one of from.
func (s *Session) transition(next State, from ...Phase) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	allowed := false
	for _, p := range from {
		if s.state.Phase == p {
			allowed = true
			break
		}
	}
	if !allowed {
		s.mu.Unlock()
		return false
	}
	s.state = next
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *Session) notify() {
	if s.cfg.OnChange == nil {
		return
	}
	s.cfg.OnChange(s.State())
}
