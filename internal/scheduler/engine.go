// Package scheduler emits wake-up events at precise times so snooze and
// focus expiries are noticed without waiting for the next poll.
package scheduler

import (
	"container/heap"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidTriggerTime = errors.New("scheduler: invalid trigger time")
	ErrEngineStopped      = errors.New("scheduler: engine stopped")
)

type EventKind string

const (
	KindSnoozeExpiry EventKind = "snooze_expiry"
	KindFocusExpiry  EventKind = "focus_expiry"
)

// WakeEvent fires at TriggerAt. Key identifies the event for replacement and
// cancellation; at most one event per key is queued.
type WakeEvent struct {
	Key       string
	Kind      EventKind
	TriggerAt time.Time
}

type queueItem struct {
	event WakeEvent
	index int
}

type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].event.TriggerAt.Before(pq[j].event.TriggerAt)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[0 : n-1]
	return item
}

type Engine struct {
	mu      sync.Mutex
	queue   priorityQueue
	byKey   map[string]*queueItem
	out     chan WakeEvent
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		queue:  make(priorityQueue, 0),
		byKey:  make(map[string]*queueItem),
		out:    make(chan WakeEvent, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (e *Engine) C() <-chan WakeEvent {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.stopped = true
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

// Schedule queues ev, replacing any queued event with the same key.
func (e *Engine) Schedule(ev WakeEvent) error {
	if ev.TriggerAt.IsZero() {
		return ErrInvalidTriggerTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrEngineStopped
	}

	if existing, ok := e.byKey[ev.Key]; ok && ev.Key != "" {
		existing.event = ev
		heap.Fix(&e.queue, existing.index)
	} else {
		item := &queueItem{event: ev}
		heap.Push(&e.queue, item)
		if ev.Key != "" {
			e.byKey[ev.Key] = item
		}
	}
	e.signalWakeup()
	return nil
}

// Cancel drops the queued event with key. It reports whether one was queued.
func (e *Engine) Cancel(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	item, ok := e.byKey[key]
	if !ok {
		return false
	}
	heap.Remove(&e.queue, item.index)
	delete(e.byKey, key)
	e.signalWakeup()
	return true
}

func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		wait := time.Until(next.TriggerAt)
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			due := e.popDue(time.Now().UTC())
			for _, ev := range due {
				select {
				case e.out <- ev:
				default:
					atomic.AddUint64(&e.dropped, 1)
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			if timer != nil {
				stopTimer(timer)
			}
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (WakeEvent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return WakeEvent{}, false
	}
	return e.queue[0].event, true
}

func (e *Engine) popDue(now time.Time) []WakeEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]WakeEvent, 0)
	for len(e.queue) > 0 {
		next := e.queue[0].event
		if next.TriggerAt.After(now) {
			break
		}
		item := heap.Pop(&e.queue).(*queueItem)
		if item.event.Key != "" {
			delete(e.byKey, item.event.Key)
		}
		out = append(out, item.event)
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}

func SnoozeKey(taskID int64) string {
	return "snooze:" + strconv.FormatInt(taskID, 10)
}

func FocusKey(sessionID int64) string {
	return "focus:" + strconv.FormatInt(sessionID, 10)
}
