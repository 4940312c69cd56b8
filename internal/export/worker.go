package export

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"civicdesk/internal/audit"
	"civicdesk/internal/blob"
	"civicdesk/internal/observability"
	"civicdesk/pkg/session"
)

// Status describes the lifecycle stage of an export job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Done reports whether the job reached a terminal status.
func (s Status) Done() bool { return s == StatusSucceeded || s == StatusFailed }

// Request describes one export. Build it with NewRequest.
type Request struct {
	Entity string
	// Key is the destination name; an existing object under it is replaced.
	Key    string
	Rows   int
	Fields []string

	encode func() ([]byte, error)
}

// NewRequest captures records for a later, off-loop serialization. records is
// copied so the caller may keep mutating its view.
func NewRequest[T any](entity, key string, records []T, fields []string) Request {
	rows := slices.Clone(records)
	cols := slices.Clone(fields)
	return Request{
		Entity: entity,
		Key:    key,
		Rows:   len(rows),
		Fields: cols,
		encode: func() ([]byte, error) { return CSV(rows, cols) },
	}
}

// Job tracks an export request and its outcome.
type Job struct {
	ID          string
	Entity      string
	Key         string
	Rows        int
	Actor       string
	Status      Status
	Err         error
	Info        blob.Info
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Worker serializes and writes exports on its own goroutine.
type Worker struct {
	store   blob.Store
	confirm Confirmer
	audit   audit.Logger
	log     *zap.Logger
	metrics observability.Recorder

	queue chan task
	mu    sync.RWMutex
	jobs  map[string]*jobState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type task struct {
	id  string
	req Request
}

type jobState struct {
	job  Job
	done chan struct{}
}

// Option configures a Worker.
type Option func(*Worker)

// WithConfirmer sets the approval gate. The default approves everything.
func WithConfirmer(c Confirmer) Option { return func(w *Worker) { w.confirm = c } }

// WithAudit records every finished job.
func WithAudit(l audit.Logger) Option { return func(w *Worker) { w.audit = l } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.log = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r observability.Recorder) Option {
	return func(w *Worker) {
		if r != nil {
			w.metrics = r
		}
	}
}

// WithQueueSize bounds the number of pending jobs.
func WithQueueSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.queue = make(chan task, n)
		}
	}
}

// NewWorker constructs an export worker writing to store.
func NewWorker(store blob.Store, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		store:   store,
		confirm: AlwaysConfirm,
		log:     zap.NewNop(),
		metrics: observability.Nop{},
		queue:   make(chan task, 32),
		jobs:    make(map[string]*jobState),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion. Jobs still queued
// fail with ErrStopped.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	w.cancel()
	w.mu.Unlock()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		w.drain()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case t := <-w.queue:
			w.process(t)
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case t := <-w.queue:
			w.finish(t.id, blob.Info{}, ErrStopped, time.Time{})
		default:
			return
		}
	}
}

// Enqueue validates and confirms req, then schedules it. Empty views fail with
// ErrNoRecords and a declined prompt with ErrDeclined; neither creates a job.
func (w *Worker) Enqueue(ctx context.Context, req Request) (Job, error) {
	if w.ctx.Err() != nil {
		return Job{}, ErrStopped
	}
	if req.encode == nil {
		return Job{}, fmt.Errorf("export request for %q was not built with NewRequest", req.Entity)
	}
	if req.Rows == 0 {
		return Job{}, ErrNoRecords
	}
	if strings.TrimSpace(req.Key) == "" {
		req.Key = FileName(req.Entity, time.Now())
	}
	prompt := fmt.Sprintf("Export %d %s record(s) to %s?", req.Rows, req.Entity, req.Key)
	ok, err := w.confirm.Confirm(ctx, prompt)
	if err != nil {
		return Job{}, fmt.Errorf("confirm export: %w", err)
	}
	if !ok {
		return Job{}, ErrDeclined
	}

	now := time.Now().UTC()
	state := &jobState{
		job: Job{
			ID:        uuid.NewString(),
			Entity:    req.Entity,
			Key:       req.Key,
			Rows:      req.Rows,
			Actor:     session.Actor(ctx),
			Status:    StatusQueued,
			CreatedAt: now,
			UpdatedAt: now,
		},
		done: make(chan struct{}),
	}

	// Stop cancels under mu, so a task sent here is either run or drained.
	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		return Job{}, ErrStopped
	}
	queued := state.job
	select {
	case w.queue <- task{id: queued.ID, req: req}:
		w.jobs[queued.ID] = state
	default:
		w.mu.Unlock()
		return Job{}, ErrQueueFull
	}
	w.mu.Unlock()
	w.log.Info("export queued",
		zap.String("job", queued.ID),
		zap.String("entity", queued.Entity),
		zap.Int("rows", queued.Rows),
		zap.String("key", queued.Key))
	return queued, nil
}

// Job returns a snapshot of the job.
func (w *Worker) Job(id string) (Job, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	state, ok := w.jobs[id]
	if !ok {
		return Job{}, false
	}
	return state.job, true
}

// Wait blocks until the job finishes and returns its final snapshot together
// with its failure, if any.
func (w *Worker) Wait(ctx context.Context, id string) (Job, error) {
	w.mu.RLock()
	state, ok := w.jobs[id]
	w.mu.RUnlock()
	if !ok {
		return Job{}, fmt.Errorf("export job %s not found", id)
	}
	select {
	case <-state.done:
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
	job, _ := w.Job(id)
	return job, job.Err
}

// Export enqueues req and waits for it.
func (w *Worker) Export(ctx context.Context, req Request) (Job, error) {
	job, err := w.Enqueue(ctx, req)
	if err != nil {
		return Job{}, err
	}
	return w.Wait(ctx, job.ID)
}

func (w *Worker) process(t task) {
	start := time.Now()
	w.setStatus(t.id, StatusRunning)

	payload, err := t.req.encode()
	if err != nil {
		w.finish(t.id, blob.Info{}, &StageError{Stage: StageSerialize, Err: err}, start)
		return
	}
	info, err := w.store.Put(w.ctx, t.req.Key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: ContentType,
		Overwrite:   true,
		Metadata: map[string]string{
			"entity": t.req.Entity,
			"rows":   strconv.Itoa(t.req.Rows),
		},
	})
	if err != nil {
		w.finish(t.id, blob.Info{}, &StageError{Stage: StageWrite, Err: err}, start)
		return
	}
	w.finish(t.id, info, nil, start)
}

func (w *Worker) setStatus(id string, status Status) {
	w.mu.Lock()
	if state, ok := w.jobs[id]; ok {
		state.job.Status = status
		state.job.UpdatedAt = time.Now().UTC()
	}
	w.mu.Unlock()
	w.log.Debug("export status", zap.String("job", id), zap.String("status", string(status)))
}

func (w *Worker) finish(id string, info blob.Info, cause error, started time.Time) {
	now := time.Now().UTC()
	w.mu.Lock()
	state, ok := w.jobs[id]
	if !ok {
		w.mu.Unlock()
		return
	}
	state.job.UpdatedAt = now
	state.job.CompletedAt = &now
	state.job.Info = info
	state.job.Err = cause
	state.job.Status = StatusSucceeded
	if cause != nil {
		state.job.Status = StatusFailed
	}
	job := state.job
	close(state.done)
	w.mu.Unlock()

	fields := []zap.Field{zap.String("job", id), zap.String("entity", job.Entity), zap.String("key", job.Key)}
	if cause != nil {
		w.log.Warn("export failed", append(fields, zap.Error(cause))...)
	} else {
		w.log.Info("export written", append(fields, zap.String("location", info.Location), zap.Bool("replaced", info.Replaced))...)
	}
	if !started.IsZero() {
		w.metrics.Observe(w.ctx, "export."+job.Entity, cause == nil, time.Since(started))
	}
	w.record(job)
}

func (w *Worker) record(job Job) {
	if w.audit == nil {
		return
	}
	entry := audit.Entry{
		Actor:   job.Actor,
		Action:  audit.ActionExport,
		Entity:  job.Entity,
		Outcome: audit.OutcomeOK,
		Detail:  fmt.Sprintf("%d rows to %s", job.Rows, job.Info.Location),
	}
	if job.Err != nil {
		entry.Outcome = audit.OutcomeFailed
		entry.Detail = job.Err.Error()
	}
	if err := w.audit.Record(context.WithoutCancel(w.ctx), entry); err != nil {
		w.log.Warn("audit export", zap.String("job", job.ID), zap.Error(err))
	}
}
