package decisionlog

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"nudge/internal/types"
)

// Logger dispatches explanations to the sink on a background goroutine.
// Log never blocks the decision path: a full queue drops the entry and
// counts it. The engine owns the logger's lifecycle; Close flushes
// deterministically instead of leaking unstructured concurrency.
type Logger struct {
	sink   Sink
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	ch     chan types.DecisionExplanation
	done   chan struct{}

	dropped atomic.Int64
}

// DefaultQueueSize bounds pending explanations.
const DefaultQueueSize = 256

// NewLogger starts the background writer.
func NewLogger(sink Sink, logger *zap.Logger, queueSize int) *Logger {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	l := &Logger{
		sink:   sink,
		logger: logger.Named("decisionlog"),
		ch:     make(chan types.DecisionExplanation, queueSize),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Logger) run() {
	defer close(l.done)
	for e := range l.ch {
		// Sink failures are reported here and nowhere else.
		if err := l.sink.Append(context.Background(), e); err != nil {
			l.logger.Error("failed to append decision explanation",
				zap.String("decision_id", e.ID), zap.Error(err))
		}
	}
}

// Log enqueues an explanation, best effort.
func (l *Logger) Log(e types.DecisionExplanation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		l.dropped.Add(1)
		return
	}
	select {
	case l.ch <- e:
	default:
		l.dropped.Add(1)
		l.logger.Warn("decision log queue full, dropping entry",
			zap.String("decision_id", e.ID))
	}
}

// Dropped returns how many entries were discarded.
func (l *Logger) Dropped() int64 {
	return l.dropped.Load()
}

// Close stops accepting entries and flushes the queue, or gives up when
// ctx expires. Pending entries past the deadline are dropped explicitly.
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.ch)
	l.mu.Unlock()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
