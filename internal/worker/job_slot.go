package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrBusy is returned by TryStart while another job holds the slot.
var ErrBusy = errors.New("an operation is already running")

// JobKind names the operation occupying the slot.
type JobKind string

const (
	JobPullData       JobKind = "pull-data"
	JobUpdateAnalysis JobKind = "update-analysis"
)

var startMessages = map[JobKind]string{
	JobPullData:       "Starting data pipeline...",
	JobUpdateAnalysis: "Updating analysis...",
}

// Status is the snapshot served by GET /status.
type Status struct {
	IsRunning  bool    `json:"is_running"`
	Progress   string  `json:"progress"`
	LastUpdate *string `json:"last_update"`
	Error      *string `json:"error"`
}

// JobFunc is the work run in the slot. progress replaces the status text.
type JobFunc func(ctx context.Context, progress func(string)) error

// Task is the handle for one started job.
type Task struct {
	ID   uuid.UUID
	Kind JobKind

	done chan struct{}
	err  error
}

// Done is closed when the job has finished and the slot is free again.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the job's error. Only valid after Done is closed.
func (t *Task) Err() error { return t.err }

// JobSlot runs at most one job at a time. A second TryStart while a job is
// running is rejected, not queued. Jobs cannot be cancelled once started.
type JobSlot struct {
	running atomic.Bool

	mu      sync.RWMutex
	status  Status
	current *Task

	subsMu sync.Mutex
	subs   map[chan Status]struct{}

	log zerolog.Logger
	now func() time.Time
}

// NewJobSlot creates an idle slot.
func NewJobSlot(log zerolog.Logger) *JobSlot {
	return &JobSlot{
		status: Status{Progress: "Idle"},
		subs:   make(map[chan Status]struct{}),
		log:    log.With().Str("component", "job_slot").Logger(),
		now:    time.Now,
	}
}

// TryStart claims the slot and runs fn on its own goroutine. It returns
// ErrBusy without starting anything when the slot is taken.
func (s *JobSlot) TryStart(kind JobKind, fn JobFunc) (*Task, error) {
	task := &Task{ID: uuid.New(), Kind: kind, done: make(chan struct{})}

	// current is published under the same lock as the claim, so Wait never
	// sees a claimed slot without its task.
	s.mu.Lock()
	if !s.running.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.status.IsRunning = true
	s.status.Error = nil
	s.status.Progress = startMessages[kind]
	s.current = task
	snap := s.status
	s.mu.Unlock()

	s.log.Info().Str("task_id", task.ID.String()).Str("kind", string(kind)).Msg("job started")
	s.broadcast(snap)

	go s.run(task, fn)
	return task, nil
}

func (s *JobSlot) run(task *Task, fn JobFunc) {
	defer close(task.done)

	started := s.now()
	err := s.invoke(fn)

	s.mu.Lock()
	s.status.IsRunning = false
	if err != nil {
		msg := err.Error()
		s.status.Error = &msg
		s.status.Progress = "Error: " + msg
	} else {
		ts := s.now().Format(time.RFC3339)
		s.status.LastUpdate = &ts
	}
	s.current = nil
	task.err = err
	snap := s.status
	s.mu.Unlock()

	s.running.Store(false)
	s.broadcast(snap)

	logEvt := s.log.Info()
	if err != nil {
		logEvt = s.log.Error().Err(err)
	}
	logEvt.
		Str("task_id", task.ID.String()).
		Str("kind", string(task.Kind)).
		Dur("took", s.now().Sub(started)).
		Msg("job finished")
}

// invoke runs fn, turning a panic into an error so the slot is always released.
func (s *JobSlot) invoke(fn JobFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return fn(context.Background(), s.SetProgress)
}

// SetProgress replaces the progress text and notifies subscribers.
func (s *JobSlot) SetProgress(msg string) {
	s.mu.Lock()
	s.status.Progress = msg
	snap := s.status
	s.mu.Unlock()

	s.log.Info().Str("progress", msg).Msg("progress")
	s.broadcast(snap)
}

// Status returns a snapshot without waiting for the running job.
func (s *JobSlot) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Wait blocks until the running job, if any, finishes or ctx ends.
func (s *JobSlot) Wait(ctx context.Context) error {
	s.mu.RLock()
	task := s.current
	s.mu.RUnlock()
	if task == nil {
		return nil
	}
	select {
	case <-task.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns a channel receiving every status change. Slow
// subscribers miss intermediate snapshots rather than blocking the job.
func (s *JobSlot) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 8)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, ch)
			s.subsMu.Unlock()
			close(ch)
		})
	}
}

func (s *JobSlot) broadcast(st Status) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- st:
		default:
		}
	}
}
