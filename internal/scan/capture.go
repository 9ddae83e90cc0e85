package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// PermissionState tracks camera consent for one capture session.
type PermissionState int

const (
	PermissionUnrequested PermissionState = iota
	PermissionGranted
	PermissionDenied
)

// Direction selects which camera the session captures from.
type Direction int

const (
	DirectionBack Direction = iota
	DirectionFront
)

// CameraErrorKind classifies camera and permission failures.
type CameraErrorKind int

const (
	CameraDenied CameraErrorKind = iota
	CameraNoDevice
	CameraBusy
	CameraUnsupported
)

// CameraError is a camera failure with a user-facing message distinct per
// kind.
type CameraError struct {
	Kind  CameraErrorKind
	Cause error
}

func (e *CameraError) Error() string {
	var msg string
	switch e.Kind {
	case CameraDenied:
		msg = "camera access was denied"
	case CameraNoDevice:
		msg = "no camera device found"
	case CameraBusy:
		msg = "camera is in use by another application"
	default:
		msg = "camera capture is not supported on this device"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *CameraError) Unwrap() error { return e.Cause }

// asCameraError keeps source-provided classifications and wraps anything
// else as unsupported.
func asCameraError(err error) *CameraError {
	var cerr *CameraError
	if errors.As(err, &cerr) {
		return cerr
	}
	return &CameraError{Kind: CameraUnsupported, Cause: err}
}

// Frame is one captured frame handed to the detector. Its encoding is a
// contract between the camera source and the detector implementation.
type Frame []byte

// CameraStream is a live capture handle.
type CameraStream interface {
	// Frame returns the next captured frame.
	Frame(ctx context.Context) (Frame, error)
	Close() error
}

// CameraSource acquires camera streams. Implementations should return
// *CameraError so failures keep their classification.
type CameraSource interface {
	Acquire(ctx context.Context, direction Direction) (CameraStream, error)
}

// CodeDetector extracts raw code text from a frame. A frame without a
// code yields found=false and no error.
type CodeDetector interface {
	Detect(ctx context.Context, frame Frame) (raw string, found bool, err error)
}

var (
	ErrPermissionNotGranted = errors.New("camera permission has not been granted")
	ErrAlreadyScanning      = errors.New("capture session is already scanning")
)

const defaultCadence = 300 * time.Millisecond

// CaptureConfig tunes a capture session.
type CaptureConfig struct {
	// Cadence is the detector polling interval. Defaults to 300ms.
	Cadence   time.Duration
	Direction Direction
}

// CaptureSession owns the camera lifecycle for one scan surface. It feeds
// detections to a callback at a bounded rate, forwarding each detection
// exactly once and pausing itself until resumed.
type CaptureSession struct {
	source   CameraSource
	detector CodeDetector
	cadence  time.Duration

	mu         sync.Mutex
	permission PermissionState
	direction  Direction
	scanning   bool
	paused     bool
	lastErr    error
	stream     CameraStream
	cancel     context.CancelFunc
}

func NewCaptureSession(source CameraSource, detector CodeDetector, cfg CaptureConfig) *CaptureSession {
	if source == nil {
		panic("camera source is required")
	}
	if detector == nil {
		panic("code detector is required")
	}
	cadence := cfg.Cadence
	if cadence <= 0 {
		cadence = defaultCadence
	}
	return &CaptureSession{
		source:    source,
		detector:  detector,
		cadence:   cadence,
		direction: cfg.Direction,
	}
}

// Permission returns the current consent state.
func (s *CaptureSession) Permission() PermissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission
}

// Scanning reports whether a live capture loop is running.
func (s *CaptureSession) Scanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// LastError returns the most recent camera failure, if any.
func (s *CaptureSession) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// RequestPermission probes device acquisition and releases the probe
// stream immediately; the permission check never holds the camera open.
// It never retries on its own.
func (s *CaptureSession) RequestPermission(ctx context.Context) error {
	s.mu.Lock()
	direction := s.direction
	s.mu.Unlock()

	stream, err := s.source.Acquire(ctx, direction)
	if err != nil {
		cerr := asCameraError(err)
		s.mu.Lock()
		s.lastErr = cerr
		if cerr.Kind == CameraDenied {
			s.permission = PermissionDenied
		}
		s.mu.Unlock()
		return cerr
	}
	_ = stream.Close()

	s.mu.Lock()
	s.permission = PermissionGranted
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// StartScanning opens the live capture and invokes the detector on the
// configured cadence. Each non-empty detection is forwarded to onDetect
// exactly once; the session then pauses itself until Resume is called, so
// a still-visible code cannot re-fire. Camera failures during scanning
// stop the capture and are reported through onError with the same
// taxonomy as RequestPermission.
func (s *CaptureSession) StartScanning(ctx context.Context, onDetect func(raw string), onError func(err error)) error {
	s.mu.Lock()
	if s.permission != PermissionGranted {
		s.mu.Unlock()
		return ErrPermissionNotGranted
	}
	if s.scanning {
		s.mu.Unlock()
		return ErrAlreadyScanning
	}
	direction := s.direction
	s.mu.Unlock()

	stream, err := s.source.Acquire(ctx, direction)
	if err != nil {
		cerr := asCameraError(err)
		s.mu.Lock()
		s.lastErr = cerr
		s.mu.Unlock()
		return cerr
	}

	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.stream = stream
	s.cancel = cancel
	s.scanning = true
	s.paused = false
	s.mu.Unlock()

	go s.loop(runCtx, stream, onDetect, onError)
	return nil
}

func (s *CaptureSession) loop(ctx context.Context, stream CameraStream, onDetect func(string), onError func(error)) {
	ticker := time.NewTicker(s.cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		paused := s.paused
		scanning := s.scanning
		s.mu.Unlock()
		if !scanning {
			return
		}
		if paused {
			continue
		}

		frame, err := stream.Frame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.fail(err, onError)
			return
		}

		raw, found, err := s.detector.Detect(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.fail(err, onError)
			return
		}
		if !found || raw == "" {
			// No code in this frame. Expected, not an error.
			continue
		}

		s.mu.Lock()
		if !s.scanning {
			s.mu.Unlock()
			return
		}
		s.paused = true
		s.mu.Unlock()

		onDetect(raw)
	}
}

func (s *CaptureSession) fail(err error, onError func(error)) {
	cerr := asCameraError(err)
	s.mu.Lock()
	s.lastErr = cerr
	s.mu.Unlock()
	s.StopScanning()
	if onError != nil {
		onError(cerr)
	}
}

// Resume re-enables detection forwarding after a detection paused the
// session.
func (s *CaptureSession) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanning {
		s.paused = false
	}
}

// StopScanning tears down the live capture. Safe to call at any time and
// from any goroutine, including repeatedly.
func (s *CaptureSession) StopScanning() {
	s.mu.Lock()
	if !s.scanning {
		s.mu.Unlock()
		return
	}
	stream := s.stream
	cancel := s.cancel
	s.stream = nil
	s.cancel = nil
	s.scanning = false
	s.paused = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stream != nil {
		_ = stream.Close()
	}
}

// SwitchDirection changes the capture direction with a full
// stop-then-start cycle. The camera stream is never swapped live.
func (s *CaptureSession) SwitchDirection(ctx context.Context, direction Direction, onDetect func(string), onError func(error)) error {
	s.StopScanning()
	s.mu.Lock()
	s.direction = direction
	s.mu.Unlock()
	return s.StartScanning(ctx, onDetect, onError)
}
