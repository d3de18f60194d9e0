package sandbox

import (
	"container/heap"
	"context"
	"errors"
	"time"

	"github.com/dop251/goja"
)

var ErrTaskLimit = errors.New("event loop task limit exceeded")

// task is a scheduled continuation. preserved is the embedder slot value that
// was current when the task was scheduled.
type task struct {
	id        int64
	fn        goja.Callable
	args      []goja.Value
	preserved any
	due       time.Duration
	seq       uint64
}

type timerQueue []*task

func (q timerQueue) Len() int { return len(q) }
func (q timerQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}
func (q timerQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *timerQueue) Push(x any)   { *q = append(*q, x.(*task)) }
func (q *timerQueue) Pop() any {
	old := *q
	t := old[len(old)-1]
	*q = old[:len(old)-1]
	return t
}

// eventLoop runs continuations after the main script on a virtual clock. It
// is also the isolate's continuation-preserving embedder slot: every task
// resumes with the slot value captured when it was scheduled, and so does
// every promise reaction, through goja's AsyncContextTracker.
type eventLoop struct {
	slot       any
	resumed    []any
	now        time.Duration
	seq        uint64
	nextID     int64
	microtasks []*task
	timers     timerQueue
	cancelled  map[int64]struct{}
}

func newEventLoop() *eventLoop {
	return &eventLoop{cancelled: make(map[int64]struct{})}
}

func (l *eventLoop) ContinuationPreservedEmbedderData() any {
	return l.slot
}

func (l *eventLoop) SetContinuationPreservedEmbedderData(value any) {
	l.slot = value
}

var _ goja.AsyncContextTracker = (*eventLoop)(nil)

// Grab is called when a promise reaction is registered (then, catch, await).
func (l *eventLoop) Grab() any {
	return l.slot
}

// Resumed installs the slot grabbed for the reaction about to run.
func (l *eventLoop) Resumed(preserved any) {
	l.resumed = append(l.resumed, l.slot)
	l.slot = preserved
}

// Exited puts back the slot that was current before the reaction ran.
func (l *eventLoop) Exited() {
	n := len(l.resumed)
	if n == 0 {
		return
	}
	l.slot = l.resumed[n-1]
	l.resumed = l.resumed[:n-1]
}

func (l *eventLoop) newTask(fn goja.Callable, args []goja.Value) *task {
	l.nextID++
	l.seq++
	return &task{
		id:        l.nextID,
		fn:        fn,
		args:      args,
		preserved: l.slot,
		seq:       l.seq,
	}
}

func (l *eventLoop) queueMicrotask(fn goja.Callable, args []goja.Value) int64 {
	t := l.newTask(fn, args)
	l.microtasks = append(l.microtasks, t)
	return t.id
}

func (l *eventLoop) setTimer(fn goja.Callable, delay time.Duration, args []goja.Value) int64 {
	if delay < 0 {
		delay = 0
	}
	t := l.newTask(fn, args)
	t.due = l.now + delay
	heap.Push(&l.timers, t)
	return t.id
}

func (l *eventLoop) clearTimer(id int64) {
	l.cancelled[id] = struct{}{}
}

func (l *eventLoop) pending() int {
	return len(l.microtasks) + len(l.timers)
}

func (l *eventLoop) next() *task {
	for {
		var t *task
		switch {
		case len(l.microtasks) > 0:
			t = l.microtasks[0]
			l.microtasks = l.microtasks[1:]
		case len(l.timers) > 0:
			t = heap.Pop(&l.timers).(*task)
			if t.due > l.now {
				l.now = t.due
			}
		default:
			return nil
		}
		if _, ok := l.cancelled[t.id]; ok {
			delete(l.cancelled, t.id)
			continue
		}
		return t
	}
}

// run drains the queues. Each task runs with its preserved slot installed;
// the slot in effect before the task is put back afterwards.
func (l *eventLoop) run(ctx context.Context, maxTasks int, invoke func(*task) error) (int, error) {
	executed := 0
	for {
		if err := ctx.Err(); err != nil {
			return executed, err
		}
		t := l.next()
		if t == nil {
			return executed, nil
		}
		executed++
		if maxTasks > 0 && executed > maxTasks {
			return executed, ErrTaskLimit
		}

		prev := l.slot
		l.slot = t.preserved
		err := invoke(t)
		l.slot = prev
		if err != nil {
			return executed, err
		}
	}
}

// clear drops queued work. The slot is kept: it belongs to the isolate.
func (l *eventLoop) clear() {
	l.microtasks = nil
	l.timers = nil
	l.cancelled = make(map[int64]struct{})
	l.resumed = nil
	l.now = 0
}
