package engine

import "sync"

// eventQueue is a thread-safe FIFO queue of events awaiting dispatch.
//
// The queue is unbounded so cascading rule firings can enqueue arbitrarily
// many follow-on events without blocking. Thread-safety covers external
// drivers injecting events while the session loop drains; in practice most
// usage is single-threaded.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
}

func newEventQueue() *eventQueue {
	return &eventQueue{events: make([]Event, 0, 16)}
}

// Enqueue adds an event to the back of the queue.
func (q *eventQueue) Enqueue(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, e)
}

// TryDequeue removes and returns the front event, if any.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return Event{}, false
	}
	e := q.events[0]
	// Nil out the slot so the Event's context map can be collected even
	// while the backing array is retained.
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
