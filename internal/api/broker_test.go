package api

import (
    "testing"
    "time"
)

func TestBrokerFanout(t *testing.T) {
    b := NewBroker()
    a := b.Subscribe(TopicRuns)
    c := b.Subscribe(TopicRuns)

    evt := Event{Type: "run.completed", Data: map[string]any{"runId": "r1"}}
    b.Publish(TopicRuns, evt)

    for _, ch := range []chan Event{a, c} {
        select {
        case got := <-ch:
            if got.Type != evt.Type {
                t.Errorf("got type %q", got.Type)
            }
        case <-time.After(time.Second):
            t.Fatalf("subscriber did not receive event")
        }
    }
}

func TestBrokerTopicIsolation(t *testing.T) {
    b := NewBroker()
    ch := b.Subscribe("other")
    b.Publish(TopicRuns, Event{Type: "run.completed"})

    select {
    case evt := <-ch:
        t.Fatalf("event leaked across topics: %+v", evt)
    case <-time.After(50 * time.Millisecond):
    }
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
    b := NewBroker()
    ch := b.Subscribe(TopicRuns)
    b.Unsubscribe(TopicRuns, ch)

    if _, open := <-ch; open {
        t.Fatalf("channel should be closed after unsubscribe")
    }
    // publishing after unsubscribe must not panic
    b.Publish(TopicRuns, Event{Type: "run.completed"})
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
    b := NewBroker()
    ch := b.Subscribe(TopicRuns)
    // fill the buffer and keep publishing; slow consumers lose events, the
    // publisher never blocks
    for i := 0; i < 100; i++ {
        b.Publish(TopicRuns, Event{Type: "run.completed"})
    }
    if len(ch) != cap(ch) {
        t.Errorf("buffer len = %d, want full (%d)", len(ch), cap(ch))
    }
}
