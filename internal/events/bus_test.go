package events

import (
	"testing"

	"github.com/park285/Cheese-Analysis-Board/internal/board"
)

func TestBusFanOut(t *testing.T) {
	b := NewBus(nil)
	_, ch1, cancel1 := b.Subscribe(4)
	_, ch2, cancel2 := b.Subscribe(4)
	defer cancel1()
	defer cancel2()

	b.Emit(MoveMade{SAN: "e4", Mover: board.White})
	for i, ch := range []<-chan Event{ch1, ch2} {
		ev := <-ch
		mm, ok := ev.(MoveMade)
		if !ok || mm.SAN != "e4" {
			t.Fatalf("subscriber %d got %#v", i, ev)
		}
	}
}

func TestBusDropsForSlowSubscriber(t *testing.T) {
	b := NewBus(nil)
	_, ch, cancel := b.Subscribe(1)
	defer cancel()

	b.Emit(GameReset{StartIndex: 1})
	b.Emit(GameReset{StartIndex: 2})

	ev := <-ch
	if ev.(GameReset).StartIndex != 1 {
		t.Fatalf("expected first event to be kept")
	}
	select {
	case ev := <-ch:
		t.Fatalf("expected second event to be dropped, got %#v", ev)
	default:
	}
}

func TestCancelClosesChannel(t *testing.T) {
	b := NewBus(nil)
	_, ch, cancel := b.Subscribe(1)
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if b.Len() != 0 {
		t.Fatalf("subscriber not removed")
	}
	b.Emit(OrientationChanged{Flipped: true})
}
