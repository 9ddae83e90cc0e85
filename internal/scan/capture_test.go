package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	mu       sync.Mutex
	frames   []Frame
	frameErr error
	closes   int
}

func (s *fakeStream) Frame(ctx context.Context) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frameErr != nil {
		return nil, s.frameErr
	}
	if len(s.frames) == 0 {
		return Frame(""), nil
	}
	f := s.frames[0]
	if len(s.frames) > 1 {
		s.frames = s.frames[1:]
	}
	return f, nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *fakeStream) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

type fakeSource struct {
	mu       sync.Mutex
	stream   *fakeStream
	err      error
	acquires int
}

func (f *fakeSource) Acquire(ctx context.Context, _ Direction) (CameraStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires++
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

type textDetector struct{}

func (textDetector) Detect(_ context.Context, frame Frame) (string, bool, error) {
	if len(frame) == 0 {
		return "", false, nil
	}
	return string(frame), true, nil
}

type failingDetector struct{ err error }

func (d failingDetector) Detect(_ context.Context, _ Frame) (string, bool, error) {
	return "", false, d.err
}

func newTestCapture(source CameraSource, detector CodeDetector) *CaptureSession {
	return NewCaptureSession(source, detector, CaptureConfig{Cadence: 2 * time.Millisecond})
}

func TestCaptureSession_RequestPermission(t *testing.T) {
	t.Run("grant releases the probe stream", func(t *testing.T) {
		stream := &fakeStream{}
		source := &fakeSource{stream: stream}
		s := newTestCapture(source, textDetector{})

		require.NoError(t, s.RequestPermission(context.Background()))
		assert.Equal(t, PermissionGranted, s.Permission())
		assert.Equal(t, 1, stream.closeCount())
		assert.False(t, s.Scanning())
	})

	t.Run("denial maps to denied state", func(t *testing.T) {
		source := &fakeSource{err: &CameraError{Kind: CameraDenied}}
		s := newTestCapture(source, textDetector{})

		err := s.RequestPermission(context.Background())
		var cerr *CameraError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, CameraDenied, cerr.Kind)
		assert.Equal(t, PermissionDenied, s.Permission())
	})

	t.Run("busy device keeps permission unrequested", func(t *testing.T) {
		source := &fakeSource{err: &CameraError{Kind: CameraBusy}}
		s := newTestCapture(source, textDetector{})

		err := s.RequestPermission(context.Background())
		var cerr *CameraError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, CameraBusy, cerr.Kind)
		assert.Equal(t, PermissionUnrequested, s.Permission())
		assert.Contains(t, err.Error(), "in use")
	})

	t.Run("unknown errors are classified unsupported", func(t *testing.T) {
		source := &fakeSource{err: errors.New("boom")}
		s := newTestCapture(source, textDetector{})

		err := s.RequestPermission(context.Background())
		var cerr *CameraError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, CameraUnsupported, cerr.Kind)
	})
}

func TestCaptureSession_StartScanning(t *testing.T) {
	t.Run("requires granted permission", func(t *testing.T) {
		s := newTestCapture(&fakeSource{stream: &fakeStream{}}, textDetector{})
		err := s.StartScanning(context.Background(), func(string) {}, nil)
		assert.ErrorIs(t, err, ErrPermissionNotGranted)
	})

	t.Run("forwards a detection exactly once and pauses", func(t *testing.T) {
		stream := &fakeStream{frames: []Frame{Frame("RED-AB12")}}
		source := &fakeSource{stream: stream}
		s := newTestCapture(source, textDetector{})
		require.NoError(t, s.RequestPermission(context.Background()))

		var mu sync.Mutex
		var got []string
		require.NoError(t, s.StartScanning(context.Background(), func(raw string) {
			mu.Lock()
			got = append(got, raw)
			mu.Unlock()
		}, nil))
		defer s.StopScanning()

		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(got) == 1
		}, time.Second, time.Millisecond)

		// The same code stays visible; the paused session must not re-fire.
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		assert.Equal(t, []string{"RED-AB12"}, got)
		mu.Unlock()

		// Resuming picks the still-visible code up again.
		s.Resume()
		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(got) == 2
		}, time.Second, time.Millisecond)
	})

	t.Run("double start is rejected", func(t *testing.T) {
		source := &fakeSource{stream: &fakeStream{}}
		s := newTestCapture(source, textDetector{})
		require.NoError(t, s.RequestPermission(context.Background()))
		require.NoError(t, s.StartScanning(context.Background(), func(string) {}, nil))
		defer s.StopScanning()

		assert.ErrorIs(t, s.StartScanning(context.Background(), func(string) {}, nil), ErrAlreadyScanning)
	})

	t.Run("frame errors stop scanning and surface the camera taxonomy", func(t *testing.T) {
		stream := &fakeStream{frameErr: &CameraError{Kind: CameraBusy}}
		source := &fakeSource{stream: stream}
		s := newTestCapture(source, textDetector{})
		require.NoError(t, s.RequestPermission(context.Background()))

		errs := make(chan error, 1)
		require.NoError(t, s.StartScanning(context.Background(), func(string) {}, func(err error) {
			errs <- err
		}))

		select {
		case err := <-errs:
			var cerr *CameraError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, CameraBusy, cerr.Kind)
		case <-time.After(time.Second):
			t.Fatal("expected a camera error")
		}
		assert.Eventually(t, func() bool { return !s.Scanning() }, time.Second, time.Millisecond)
	})

	t.Run("detector errors are surfaced the same way", func(t *testing.T) {
		stream := &fakeStream{frames: []Frame{Frame("x")}}
		source := &fakeSource{stream: stream}
		s := newTestCapture(source, failingDetector{err: errors.New("decoder crashed")})
		require.NoError(t, s.RequestPermission(context.Background()))

		errs := make(chan error, 1)
		require.NoError(t, s.StartScanning(context.Background(), func(string) {}, func(err error) {
			errs <- err
		}))

		select {
		case err := <-errs:
			var cerr *CameraError
			require.ErrorAs(t, err, &cerr)
		case <-time.After(time.Second):
			t.Fatal("expected a detector error")
		}
	})
}

func TestCaptureSession_StopScanning(t *testing.T) {
	stream := &fakeStream{}
	source := &fakeSource{stream: stream}
	s := newTestCapture(source, textDetector{})
	require.NoError(t, s.RequestPermission(context.Background()))
	require.NoError(t, s.StartScanning(context.Background(), func(string) {}, nil))

	s.StopScanning()
	assert.False(t, s.Scanning())

	// Idempotent: calling again, or when not scanning, is safe.
	s.StopScanning()
	s.StopScanning()
	assert.False(t, s.Scanning())
	// Probe close plus live close.
	assert.Equal(t, 2, stream.closeCount())
}

func TestCaptureSession_SwitchDirection(t *testing.T) {
	stream := &fakeStream{}
	source := &fakeSource{stream: stream}
	s := newTestCapture(source, textDetector{})
	require.NoError(t, s.RequestPermission(context.Background()))
	require.NoError(t, s.StartScanning(context.Background(), func(string) {}, nil))

	require.NoError(t, s.SwitchDirection(context.Background(), DirectionFront, func(string) {}, nil))
	defer s.StopScanning()

	// Full stop-then-start: probe, first live, second live.
	source.mu.Lock()
	acquires := source.acquires
	source.mu.Unlock()
	assert.Equal(t, 3, acquires)
	assert.True(t, s.Scanning())
}
