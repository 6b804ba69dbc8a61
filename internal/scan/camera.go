package scan

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// CameraOptions are hints passed to the camera when a live session starts.
type CameraOptions struct {
	// Facing is the preferred camera, "environment" for the rear camera.
	Facing string
	// HighlightScanRegion asks the preview to outline the decode area.
	HighlightScanRegion bool
}

// DefaultCameraOptions prefers the rear camera and highlights the scan region.
func DefaultCameraOptions() CameraOptions {
	return CameraOptions{Facing: "environment", HighlightScanRegion: true}
}

// DecodeFunc is invoked by a camera for every QR payload it decodes. It may
// be called from the camera's own goroutine and must not block.
type DecodeFunc func(code string)

// Camera acquires a video device and decodes QR codes from it.
type Camera interface {
	// Start acquires the device. Failure (permission denied, no device)
	// leaves nothing to release.
	Start(ctx context.Context, opts CameraOptions, onDecode DecodeFunc) (CameraHandle, error)
}

// CameraHandle releases an acquired device.
type CameraHandle interface {
	// Stop releases the device. After Stop returns no further DecodeFunc
	// calls are made. Safe to call more than once.
	Stop() error
}

// ErrNoInput is returned by ReaderCamera when it has no reader.
var ErrNoInput = errors.New("camera has no input")

// ReaderCamera decodes one code per line from an io.Reader. It backs the
// CLI's live mode (codes piped from a hardware wedge scanner or typed in)
// and tests.
type ReaderCamera struct {
	R io.Reader
}

func (c ReaderCamera) Start(ctx context.Context, _ CameraOptions, onDecode DecodeFunc) (CameraHandle, error) {
	if c.R == nil {
		return nil, ErrNoInput
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &readerHandle{cancel: cancel, done: make(chan struct{})}
	lines := make(chan string)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.R)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		defer close(h.done)
		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-lines:
				if !ok {
					return
				}
				if code := strings.TrimSpace(line); code != "" {
					onDecode(code)
				}
			}
		}
	}()
	return h, nil
}

type readerHandle struct {
	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

// Stop waits for the dispatch goroutine so no decode callback runs after it
// returns. A reader blocked in Read is abandoned.
func (h *readerHandle) Stop() error {
	h.once.Do(h.cancel)
	<-h.done
	return nil
}

// Finished is closed once the reader is exhausted or the handle is stopped.
func (h *readerHandle) Finished() <-chan struct{} {
	return h.done
}
