package report

import (
	"errors"
	"testing"
	"time"

	"github.com/mohammad-safakhou/tickerbrief/models"
)

func TestBusDeliversInOrderWithSequenceIDs(t *testing.T) {
	b := NewBus(8)
	b.Emit(models.EventStockData, "first")
	b.Emit(models.EventNews, "second")
	b.Emit(models.EventAnalysis, "third")

	var last uint64
	for _, want := range []models.EventType{models.EventStockData, models.EventNews, models.EventAnalysis} {
		e, err := b.Next(time.Second)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if e.Type != want {
			t.Fatalf("expected %s, got %s", want, e.Type)
		}
		if e.Sequence <= last {
			t.Fatalf("sequence not monotonic: %d after %d", e.Sequence, last)
		}
		last = e.Sequence
	}
}

func TestBusNextTimesOut(t *testing.T) {
	b := NewBus(1)
	_, err := b.Next(20 * time.Millisecond)
	if !errors.Is(err, ErrStreamTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestBusDrainsBufferedEventsAfterClose(t *testing.T) {
	b := NewBus(4)
	b.Emit(models.EventStockData, "buffered")
	b.Close()

	e, err := b.Next(time.Second)
	if err != nil {
		t.Fatalf("buffered event should survive close: %v", err)
	}
	if e.Type != models.EventStockData {
		t.Fatalf("unexpected event: %s", e.Type)
	}
	if _, err := b.Next(time.Second); !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestBusEmitAfterCloseDoesNotBlock(t *testing.T) {
	b := NewBus(1)
	b.Emit(models.EventStockData, "fills the buffer")
	b.Close()

	done := make(chan struct{})
	go func() {
		b.Emit(models.EventNews, "dropped")
		b.Emit(models.EventNews, "dropped too")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a closed bus")
	}
}

func TestBusCloseIsIdempotent(t *testing.T) {
	b := NewBus(1)
	b.Close()
	b.Close()
}
