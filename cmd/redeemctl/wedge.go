package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"redeem/internal/scan"
)

// wedgeSource adapts a keyboard-wedge barcode scanner (or plain typing)
// to the CameraSource interface: every input line is one "frame".
type wedgeSource struct {
	in io.Reader
}

func (w *wedgeSource) Acquire(ctx context.Context, _ scan.Direction) (scan.CameraStream, error) {
	return &wedgeStream{r: bufio.NewReader(w.in)}, nil
}

type wedgeStream struct {
	r *bufio.Reader
}

func (s *wedgeStream) Frame(ctx context.Context) (scan.Frame, error) {
	line, err := s.r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line == "" {
			return nil, &scan.CameraError{Kind: scan.CameraNoDevice, Cause: io.EOF}
		}
		if err != io.EOF {
			return nil, err
		}
	}
	return scan.Frame(strings.TrimRight(line, "\r\n")), nil
}

// Close is a no-op; the wedge reads stdin, which stays open for the
// process.
func (s *wedgeStream) Close() error { return nil }

// lineDetector treats a non-empty frame as a detection carrying the raw
// scanned text.
type lineDetector struct{}

func (lineDetector) Detect(_ context.Context, frame scan.Frame) (string, bool, error) {
	raw := strings.TrimSpace(string(frame))
	if raw == "" {
		return "", false, nil
	}
	return raw, true, nil
}
