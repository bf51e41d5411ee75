// Package workflow drives an audio recording from upload to a ready report.
//
// A run moves through
//
//	Idle -> Uploading -> PollingStatus -> FetchingReport -> Ready
//
// and ends early in Failed, TimedOut or Canceled. Polling is bounded by
// PollConfig and every wait honors the run's context.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"yeoneunal/internal/api"
	"yeoneunal/internal/logging"
	"yeoneunal/internal/session"

	"github.com/google/uuid"
)

// State is a workflow state.
type State string

const (
	StateIdle           State = "idle"
	StateUploading      State = "uploading"
	StatePollingStatus  State = "polling_status"
	StateFetchingReport State = "fetching_report"
	StateReady          State = "ready"
	StateFailed         State = "failed"
	StateTimedOut       State = "timed_out"
	StateCanceled       State = "canceled"
)

// Terminal reports whether no further transitions follow.
func (s State) Terminal() bool {
	switch s {
	case StateReady, StateFailed, StateTimedOut, StateCanceled:
		return true
	}
	return false
}

var (
	// ErrMissingWard rejects a run when no ward is selected.
	ErrMissingWard = errors.New("no ward selected; register or select a ward first")
	// ErrNoRecord rejects a resume when no recording is in progress.
	ErrNoRecord = errors.New("no recording in progress")
	// ErrRecordFailed is returned when the backend reports analysis failure.
	ErrRecordFailed = errors.New("audio analysis failed")
)

// Backend is the subset of the API client a run needs.
type Backend interface {
	UploadAudio(ctx context.Context, wardID int64, up api.AudioUpload) (int64, error)
	GetRecord(ctx context.Context, recordID int64) (*api.AudioRecord, error)
	GetReportByRecord(ctx context.Context, recordID int64) (*api.Report, error)
}

// Transition is one state change. Poll progress is reported as a
// transition from PollingStatus to itself.
type Transition struct {
	From     State
	To       State
	RecordID int64
	Attempt  int
	Status   api.RecordStatus
	Err      error
	At       time.Time
}

// Observer receives transitions on the run's goroutine.
type Observer func(Transition)

// Result is the outcome of a run.
type Result struct {
	State    State
	RecordID int64
	Report   *api.Report
	Attempts int
	Err      error
	// SessionErr is set when the uploaded record id could not be saved.
	// The run itself may still succeed, but Resume will not find it.
	SessionErr error
}

// Engine runs upload and resume workflows against a backend, persisting
// progress to the session.
type Engine struct {
	backend Backend
	session *session.Session
	cache   *ReportCache
	poll    PollConfig

	mu        sync.RWMutex
	observers []Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithPollConfig sets the polling bounds.
func WithPollConfig(cfg PollConfig) Option {
	return func(e *Engine) { e.poll = cfg.normalized() }
}

// WithReportCache shares a report cache between engines.
func WithReportCache(c *ReportCache) Option {
	return func(e *Engine) {
		if c != nil {
			e.cache = c
		}
	}
}

// WithObserver registers an observer at construction.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// NewEngine creates an engine.
func NewEngine(backend Backend, sess *session.Session, opts ...Option) *Engine {
	e := &Engine{
		backend: backend,
		session: sess,
		cache:   NewReportCache(),
		poll:    DefaultPollConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Observe registers an observer.
func (e *Engine) Observe(o Observer) {
	e.mu.Lock()
	e.observers = append(e.observers, o)
	e.mu.Unlock()
}

// Cache returns the engine's report cache.
func (e *Engine) Cache() *ReportCache { return e.cache }

// PollConfig returns the polling bounds in use.
func (e *Engine) PollConfig() PollConfig { return e.poll }

// run carries the state of one workflow execution.
type run struct {
	engine   *Engine
	id       string
	state    State
	recordID int64
	attempts int
	started  time.Time
	audit    *logging.AuditLogger

	sessionErr error
}

func (e *Engine) newRun(mode string, recordID int64) *run {
	id := uuid.NewString()
	r := &run{
		engine:   e,
		id:       id,
		state:    StateIdle,
		recordID: recordID,
		started:  time.Now(),
		audit:    logging.AuditRun(id),
	}
	r.audit.Start(mode, recordID)
	logging.Workflow("run %s: %s started", id, mode)
	return r
}

func (r *run) emit(t Transition) {
	t.At = time.Now()
	r.engine.mu.RLock()
	observers := append([]Observer(nil), r.engine.observers...)
	r.engine.mu.RUnlock()
	for _, o := range observers {
		o(t)
	}
}

func (r *run) to(next State, err error) {
	prev := r.state
	r.state = next
	r.audit.Transition(r.recordID, string(prev), string(next), r.attempts, err)
	logging.WorkflowDebug("run %s: %s -> %s (record %d)", r.id, prev, next, r.recordID)
	r.emit(Transition{From: prev, To: next, RecordID: r.recordID, Attempt: r.attempts, Err: err})
}

// finish moves to a terminal state and builds the result.
func (r *run) finish(ctx context.Context, next State, rep *api.Report, err error) (*Result, error) {
	if err != nil && ctx.Err() != nil {
		next, err = StateCanceled, ctx.Err()
	}
	r.to(next, err)
	r.audit.End(r.recordID, string(next), time.Since(r.started), err)
	fields := map[string]interface{}{
		"run":    r.id,
		"record": r.recordID,
		"state":  string(next),
		"polls":  r.attempts,
	}
	lvl := "info"
	if err != nil {
		lvl = "warn"
		fields["error"] = err.Error()
	}
	if r.sessionErr != nil {
		fields["session_error"] = r.sessionErr.Error()
	}
	logging.Get(logging.CategoryWorkflow).StructuredLog(lvl, "run finished", fields)
	return &Result{
		State:      next,
		RecordID:   r.recordID,
		Report:     rep,
		Attempts:   r.attempts,
		Err:        err,
		SessionErr: r.sessionErr,
	}, err
}

// Run uploads a recording for the selected ward and follows it to a report.
// The returned error equals Result.Err; errors.Is(err, ErrPollTimeout)
// identifies the soft TimedOut outcome.
func (e *Engine) Run(ctx context.Context, up api.AudioUpload) (*Result, error) {
	wardID, ok := e.session.WardID()
	if !ok {
		return &Result{State: StateIdle, Err: ErrMissingWard}, ErrMissingWard
	}

	r := e.newRun("upload", 0)
	r.to(StateUploading, nil)

	recordID, err := e.backend.UploadAudio(ctx, wardID, up)
	if err != nil {
		return r.finish(ctx, StateFailed, nil, fmt.Errorf("upload: %w", err))
	}
	r.recordID = recordID
	if err := e.session.BeginRecord(recordID); err != nil {
		logging.WorkflowWarn("run %s: persist record %d: %v", r.id, recordID, err)
		r.sessionErr = err
	}
	r.to(StatePollingStatus, nil)

	return e.follow(ctx, r)
}

// Resume continues polling the recording persisted in the session.
func (e *Engine) Resume(ctx context.Context) (*Result, error) {
	recordID, ok := e.session.RecordID()
	if !ok {
		return &Result{State: StateIdle, Err: ErrNoRecord}, ErrNoRecord
	}
	r := e.newRun("resume", recordID)
	r.to(StatePollingStatus, nil)
	return e.follow(ctx, r)
}

// follow polls the record status and fetches the report once complete.
func (e *Engine) follow(ctx context.Context, r *run) (*Result, error) {
	attempts, err := Poll(ctx, e.poll, func(ctx context.Context, attempt int) (Verdict, error) {
		r.attempts = attempt
		rec, err := e.backend.GetRecord(ctx, r.recordID)
		if err != nil {
			r.audit.Poll(r.recordID, attempt, "", err)
			r.emit(Transition{From: StatePollingStatus, To: StatePollingStatus, RecordID: r.recordID, Attempt: attempt, Err: err})
			return Continue, err
		}
		r.audit.Poll(r.recordID, attempt, string(rec.Status), nil)
		r.emit(Transition{From: StatePollingStatus, To: StatePollingStatus, RecordID: r.recordID, Attempt: attempt, Status: rec.Status})
		switch {
		case rec.Status.Completed():
			return Done, nil
		case rec.Status.Failed():
			return Fail, fmt.Errorf("%w: record %d status %s", ErrRecordFailed, r.recordID, rec.Status)
		}
		return Continue, nil
	})
	r.attempts = attempts
	switch {
	case errors.Is(err, ErrPollTimeout):
		return r.finish(ctx, StateTimedOut, nil, err)
	case err != nil:
		return r.finish(ctx, StateFailed, nil, err)
	}

	r.to(StateFetchingReport, nil)
	rep, err := e.cache.Get(ctx, r.recordID, e.backend.GetReportByRecord)
	if err != nil {
		return r.finish(ctx, StateFailed, nil, fmt.Errorf("fetch report: %w", err))
	}
	if err := e.session.MarkReportSurfaced(r.recordID); err != nil {
		logging.WorkflowWarn("run %s: persist report flags: %v", r.id, err)
	}
	return r.finish(ctx, StateReady, rep, nil)
}
