package presence

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"
)

func TestChannel_FIFO(t *testing.T) {
	tx, rx := NewChannel()

	want := []Event{
		Started(TrackInfo{Title: "A"}),
		Stopped(),
		Started(TrackInfo{Title: "B"}),
		Stopped(),
	}
	for _, e := range want {
		if err := tx.Send(e); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	if rx.Len() != len(want) {
		t.Errorf("Len() = %d, want %d", rx.Len(), len(want))
	}

	for i, w := range want {
		got, ok := rx.Receive(context.Background(), time.Second)
		if !ok {
			t.Fatalf("Receive() #%d timed out", i)
		}
		if got != w {
			t.Errorf("Receive() #%d = %v, want %v", i, got, w)
		}
	}
}

func TestChannel_Unbounded(t *testing.T) {
	tx, rx := NewChannel()
	for range 1000 {
		if err := tx.Send(Stopped()); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	if rx.Len() != 1000 {
		t.Errorf("Len() = %d, want 1000", rx.Len())
	}
}

func TestChannel_ReceiveTimesOut(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		_, rx := NewChannel()

		start := time.Now()
		_, ok := rx.Receive(context.Background(), 5*time.Second)
		if ok {
			t.Fatal("Receive() returned an event from an empty channel")
		}
		if elapsed := time.Since(start); elapsed != 5*time.Second {
			t.Errorf("Receive() waited %v, want 5s", elapsed)
		}
	})
}

func TestChannel_ReceiveWakesOnSend(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tx, rx := NewChannel()

		go func() {
			time.Sleep(time.Second)
			_ = tx.Send(Started(TrackInfo{Title: "Late"}))
		}()

		start := time.Now()
		got, ok := rx.Receive(context.Background(), time.Minute)
		if !ok {
			t.Fatal("Receive() timed out")
		}
		if got.Track.Title != "Late" {
			t.Errorf("Track.Title = %q, want %q", got.Track.Title, "Late")
		}
		if elapsed := time.Since(start); elapsed != time.Second {
			t.Errorf("Receive() returned after %v, want 1s", elapsed)
		}
	})
}

func TestChannel_ReceiveStopsOnCancel(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		_, rx := NewChannel()
		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			time.Sleep(time.Second)
			cancel()
		}()

		if _, ok := rx.Receive(ctx, time.Hour); ok {
			t.Fatal("Receive() returned an event after cancel")
		}
	})
}

func TestChannel_SendAfterCloseFails(t *testing.T) {
	tx, rx := NewChannel()
	if err := tx.Send(Stopped()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	rx.Close()

	err := tx.Send(Stopped())
	if !errors.Is(err, ErrReceiverClosed) {
		t.Errorf("Send() after Close() = %v, want ErrReceiverClosed", err)
	}
	if rx.Len() != 0 {
		t.Errorf("Len() after Close() = %d, want 0", rx.Len())
	}
}
