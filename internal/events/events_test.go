package events

import "testing"

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe(4)
	b := bus.Subscribe(4)

	bus.Publish(SilentModeStateChanged{Active: true, App: "Zoom"})

	for name, ch := range map[string]chan Event{"a": a, "b": b} {
		select {
		case e := <-ch:
			sm, ok := e.(SilentModeStateChanged)
			if !ok {
				t.Fatalf("%s: expected SilentModeStateChanged, got %T", name, e)
			}
			if !sm.Active || sm.App != "Zoom" {
				t.Errorf("%s: unexpected payload %+v", name, sm)
			}
		default:
			t.Errorf("%s: expected an event", name)
		}
	}
}

func TestPublishDoesNotBlock(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(1)

	bus.Publish(Notice{Title: "first"})
	bus.Publish(Notice{Title: "second"})

	e := <-ch
	if n := e.(Notice); n.Title != "first" {
		t.Errorf("Expected the first notice to be kept, got %q", n.Title)
	}
	select {
	case e := <-ch:
		t.Errorf("Expected the overflow event to be dropped, got %+v", e)
	default:
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(1)
	bus.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("Expected channel to be closed after Unsubscribe")
	}

	// Publishing after unsubscribe must not panic on the closed channel.
	bus.Publish(Notice{Title: "late"})
}
