package report

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mohammad-safakhou/tickerbrief/models"
)

var (
	// ErrStreamTimeout is returned by Next when no event arrives in time.
	ErrStreamTimeout = errors.New("timed out waiting for event")
	// ErrStreamClosed is returned by Next after Close once the queue is drained.
	ErrStreamClosed = errors.New("event stream closed")
)

// Sink receives pipeline progress notifications. Implementations must
// not block the pipeline indefinitely.
type Sink interface {
	Emit(eventType models.EventType, data interface{})
}

// NopSink discards events. Used for non-streaming report generation.
type NopSink struct{}

func (NopSink) Emit(models.EventType, interface{}) {}

// Bus is a bounded queue bridging the pipeline to a single stream
// reader. Events carry a monotonic sequence id; each is consumed at
// most once.
type Bus struct {
	ch    chan models.ProgressEvent
	done  chan struct{}
	seq   uint64
	nowFn func() time.Time
	once  sync.Once
}

// NewBus creates a bus with the given buffer size.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		ch:    make(chan models.ProgressEvent, buffer),
		done:  make(chan struct{}),
		nowFn: time.Now,
	}
}

// Emit enqueues an event, blocking until the reader catches up. A
// closed bus swallows the event: the reader is gone and the pipeline
// must keep going.
func (b *Bus) Emit(eventType models.EventType, data interface{}) {
	e := models.ProgressEvent{
		Type:      eventType,
		Data:      data,
		Timestamp: b.nowFn(),
		Sequence:  atomic.AddUint64(&b.seq, 1),
	}
	select {
	case <-b.done:
	case b.ch <- e:
	}
}

// Next returns the next event, waiting up to timeout. Buffered events
// are still delivered after Close.
func (b *Bus) Next(timeout time.Duration) (models.ProgressEvent, error) {
	select {
	case e := <-b.ch:
		return e, nil
	default:
	}
	select {
	case e := <-b.ch:
		return e, nil
	case <-b.done:
		return models.ProgressEvent{}, ErrStreamClosed
	case <-time.After(timeout):
		return models.ProgressEvent{}, ErrStreamTimeout
	}
}

// Close detaches the reader. Safe to call more than once.
func (b *Bus) Close() {
	b.once.Do(func() { close(b.done) })
}
