package scan

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/assetaudit/internal/audit"
	"github.com/roach88/assetaudit/internal/catalog"
	"github.com/roach88/assetaudit/internal/reconcile"
)

// ErrSessionClosed is returned by Start after Close.
var ErrSessionClosed = errors.New("live scan session closed")

// LiveSession turns QR decodes from a camera into scan events on one audit
// task. Decodes are debounced on the camera's goroutine and queued; a single
// drain goroutine classifies each code and records it, so events for the
// task are applied in decode order.
//
// Thread-safety: all exported methods are safe for concurrent use.
type LiveSession struct {
	camera    Camera
	engine    *reconcile.Engine
	recorder  Recorder
	taskID    string
	debouncer *Debouncer
	camOpts   CameraOptions
	logger    *slog.Logger
	onScan    func(audit.ScannedAsset)

	mu      sync.Mutex
	handle  CameraHandle
	queue   *codeQueue
	done    chan struct{}
	closed  bool
	err     error
	history []audit.ScannedAsset // newest first
}

// SessionOption configures a LiveSession.
type SessionOption func(*LiveSession)

// WithDebouncer replaces the default 2s debouncer.
func WithDebouncer(d *Debouncer) SessionOption {
	return func(s *LiveSession) { s.debouncer = d }
}

// WithCameraOptions overrides DefaultCameraOptions.
func WithCameraOptions(o CameraOptions) SessionOption {
	return func(s *LiveSession) { s.camOpts = o }
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *LiveSession) { s.logger = l }
}

// WithOnScan registers a callback run on the drain goroutine after each
// scan event is recorded.
func WithOnScan(fn func(audit.ScannedAsset)) SessionOption {
	return func(s *LiveSession) { s.onScan = fn }
}

// NewLiveSession creates a stopped session for taskID.
func NewLiveSession(cam Camera, engine *reconcile.Engine, rec Recorder, taskID string, opts ...SessionOption) *LiveSession {
	s := &LiveSession{
		camera:   cam,
		engine:   engine,
		recorder: rec,
		taskID:   taskID,
		camOpts:  DefaultCameraOptions(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.debouncer == nil {
		s.debouncer = NewDebouncer(DefaultCooldown, nil)
	}
	return s
}

// Start acquires the camera and begins processing decodes. A camera failure
// is returned as a CAMERA_ACCESS error and leaves the session stopped, so
// Start may be retried. Starting a running session is a no-op.
func (s *LiveSession) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.handle != nil {
		return nil
	}

	q := newCodeQueue()
	h, err := s.camera.Start(ctx, s.camOpts, func(code string) { s.decoded(q, code) })
	if err != nil {
		s.logger.Warn("camera unavailable", "task_id", s.taskID, "error", err)
		return audit.NewCameraAccessError(err)
	}

	s.handle = h
	s.queue = q
	s.done = make(chan struct{})
	s.err = nil
	s.debouncer.Reset()

	go s.drain(ctx, q, s.done)
	s.logger.Info("live scan started", "task_id", s.taskID)
	return nil
}

// decoded runs on the camera goroutine: debounce and hand off, never block.
func (s *LiveSession) decoded(q *codeQueue, raw string) {
	key := catalog.NormalizeCode(raw)
	if key == "" {
		return
	}
	if !s.debouncer.Allow(key) {
		s.logger.Debug("duplicate decode suppressed", "task_id", s.taskID, "code", key)
		return
	}
	q.Enqueue(raw)
}

func (s *LiveSession) drain(ctx context.Context, q *codeQueue, done chan struct{}) {
	defer close(done)
	for {
		for {
			code, ok := q.TryDequeue()
			if !ok {
				break
			}
			if !s.record(ctx, q, code) {
				return
			}
		}
		if q.Drained() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-q.Wait():
		}
	}
}

// record records one code. It returns false when the session can no longer
// record events for its task.
func (s *LiveSession) record(ctx context.Context, q *codeQueue, code string) bool {
	asset := s.engine.Classify(code)
	if _, err := s.recorder.RecordScanEvent(ctx, s.taskID, asset); err != nil {
		s.logger.Warn("scan event not recorded", "task_id", s.taskID, "code", code, "error", err)
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		if audit.IsNotFound(err) || ctx.Err() != nil {
			s.releaseCamera()
			q.Close()
			return false
		}
		return true
	}

	s.mu.Lock()
	s.history = append([]audit.ScannedAsset{asset}, s.history...)
	s.mu.Unlock()

	s.logger.Debug("scan event recorded", "task_id", s.taskID, "code", code, "status", asset.Status)
	if s.onScan != nil {
		s.onScan(asset)
	}
	return true
}

func (s *LiveSession) releaseCamera() {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.mu.Unlock()
	if h != nil {
		if err := h.Stop(); err != nil {
			s.logger.Warn("camera release failed", "task_id", s.taskID, "error", err)
		}
	}
}

// Stop releases the camera, lets already-queued decodes finish, and waits
// for the drain goroutine. The session may be started again.
func (s *LiveSession) Stop() {
	s.releaseCamera()

	s.mu.Lock()
	q, done := s.queue, s.done
	s.queue, s.done = nil, nil
	s.mu.Unlock()

	if q != nil {
		q.Close()
	}
	if done != nil {
		<-done
		s.logger.Info("live scan stopped", "task_id", s.taskID)
	}
}

// Close stops the session for good.
func (s *LiveSession) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Stop()
}

// Running reports whether the camera is held.
func (s *LiveSession) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}

// CameraFinished is closed when the camera stops producing decodes on its
// own (end of input). Nil when the camera has no such signal or the
// session is stopped.
func (s *LiveSession) CameraFinished() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.handle.(interface{ Finished() <-chan struct{} }); ok {
		return f.Finished()
	}
	return nil
}

// History returns the scans recorded by this session, newest first.
func (s *LiveSession) History() []audit.ScannedAsset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.ScannedAsset, len(s.history))
	copy(out, s.history)
	return out
}

// Err returns the last recording error, if any.
func (s *LiveSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
