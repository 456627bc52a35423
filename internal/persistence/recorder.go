package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/sensor-relay/internal/telemetry"
)

const (
	defaultQueueSize    = 1024
	defaultWriteTimeout = 5 * time.Second
)

// Logger interface for recorder logging.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Observer receives recorder activity for metrics.
type Observer interface {
	ReadingFiltered()
	ReadingDropped()
	QueueLength(n int)
	ReadingStored(d time.Duration)
	StoreFailed()
}

type pending struct {
	reading    telemetry.Reading
	recordedAt time.Time
}

// Recorder filters readings off the event stream and writes the
// significant ones through a Repository on a single worker goroutine.
type Recorder struct {
	repo         Repository
	writeTimeout time.Duration
	logger       Logger
	observer     Observer
	now          func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan pending

	startOnce sync.Once
	done      chan struct{}
}

// NewRecorder creates a Recorder. queueSize and writeTimeout fall back to
// 1024 and 5s when not positive. Call Start before events arrive.
func NewRecorder(repo Repository, queueSize int, writeTimeout time.Duration, logger Logger) *Recorder {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Recorder{
		repo:         repo,
		writeTimeout: writeTimeout,
		logger:       logger,
		now:          time.Now,
		queue:        make(chan pending, queueSize),
		done:         make(chan struct{}),
	}
}

// SetObserver sets the metrics observer. Call before Start.
func (r *Recorder) SetObserver(o Observer) {
	r.observer = o
}

// Start launches the write worker.
func (r *Recorder) Start() {
	r.startOnce.Do(func() {
		go r.run()
	})
}

// HandleEvent queues a significant reading. Non-reading events and
// filtered readings are ignored. It never blocks.
func (r *Recorder) HandleEvent(ev telemetry.Event) {
	if ev.Kind != telemetry.KindReading {
		return
	}
	if !ShouldStore(ev.Reading) {
		if r.observer != nil {
			r.observer.ReadingFiltered()
		}
		return
	}

	item := pending{reading: ev.Reading, recordedAt: r.now().UTC()}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- item:
		if r.observer != nil {
			r.observer.QueueLength(len(r.queue))
		}
	default:
		r.logger.Warn("store queue full, dropping reading",
			"light", ev.Reading.Light(),
			"sound", ev.Reading.Sound(),
			"motion", ev.Reading.Motion(),
		)
		if r.observer != nil {
			r.observer.ReadingDropped()
		}
	}
}

// Close stops accepting readings and waits for the queue to drain or ctx
// to expire. Close must only be called after Start.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)

	for item := range r.queue {
		r.write(item)
		if r.observer != nil {
			r.observer.QueueLength(len(r.queue))
		}
	}
}

func (r *Recorder) write(item pending) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	start := time.Now()
	if err := r.repo.AppendReading(ctx, item.reading, item.recordedAt); err != nil {
		r.logger.Error("storing reading failed", "error", err)
		if r.observer != nil {
			r.observer.StoreFailed()
		}
		return
	}

	r.logger.Debug("reading stored", "recorded_at", item.recordedAt)
	if r.observer != nil {
		r.observer.ReadingStored(time.Since(start))
	}
}
