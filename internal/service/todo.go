package service

import (
	"fmt"
	"sync"
	"time"
)

// AlreadySubmittedError rejects a second submission for the same task.
// Submission is one-shot: the first result wins and later results are
// refused rather than silently overwriting it.
type AlreadySubmittedError struct {
	TaskID any
}

func (e *AlreadySubmittedError) Error() string {
	return fmt.Sprintf("task %v: result already submitted", e.TaskID)
}

// CallbackError reports that a submission was committed but its completion
// callback failed. The task stays submitted; the caller decides whether the
// callback failure needs follow-up.
type CallbackError struct {
	TaskID any
	Err    error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("task %v: submission committed, callback failed: %v", e.TaskID, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

// TaskNotFoundError reports a submission against an unknown task ID.
type TaskNotFoundError struct {
	TaskID any
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task %v: not found", e.TaskID)
}

type taskState[V any] struct {
	submitted   bool
	result      V
	submittedAt time.Time
}

// TodoList is an ordered queue of pending work items keyed by ID. Tasks move
// created→pending→submitted; a submitted task keeps its result and never
// returns to pending.
//
// Submit commits the state change under the list's lock and runs the
// completion callback after releasing it, so callbacks may safely call back
// into structures that share locks with the caller. A failed callback does
// not roll the submission back; it surfaces as *CallbackError.
type TodoList[K comparable, V any] struct {
	mu        sync.Mutex
	order     []K // pending IDs, oldest first
	tasks     map[K]*taskState[V]
	submitted []K // submission order, oldest first
	onSubmit  func(id K, v V) error
}

// NewTodoList creates a queue whose submissions complete through onSubmit.
// A nil callback is allowed; submissions then just record the result.
func NewTodoList[K comparable, V any](onSubmit func(id K, v V) error) *TodoList[K, V] {
	return &TodoList[K, V]{
		tasks:    make(map[K]*taskState[V]),
		onSubmit: onSubmit,
	}
}

// AddTask enqueues a pending task. Returns false when the ID already exists,
// in either state.
func (l *TodoList[K, V]) AddTask(id K) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.tasks[id]; exists {
		return false
	}
	l.tasks[id] = &taskState[V]{}
	l.order = append(l.order, id)
	return true
}

// Submit records the result for a pending task and runs the completion
// callback. Unknown IDs return *TaskNotFoundError; repeated submission
// returns *AlreadySubmittedError.
func (l *TodoList[K, V]) Submit(id K, v V) error {
	l.mu.Lock()
	st, ok := l.tasks[id]
	if !ok {
		l.mu.Unlock()
		return &TaskNotFoundError{TaskID: id}
	}
	if st.submitted {
		l.mu.Unlock()
		return &AlreadySubmittedError{TaskID: id}
	}
	st.submitted = true
	st.result = v
	st.submittedAt = time.Now()
	l.submitted = append(l.submitted, id)
	for i, pending := range l.order {
		if pending == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	cb := l.onSubmit
	l.mu.Unlock()

	// Deferred apply: the submission above is committed regardless of what
	// the callback does.
	if cb != nil {
		if err := cb(id, v); err != nil {
			return &CallbackError{TaskID: id, Err: err}
		}
	}
	return nil
}

// Pending returns up to limit pending task IDs starting at offset, oldest
// first. limit <= 0 means all remaining.
func (l *TodoList[K, V]) Pending(limit, offset int) []K {
	l.mu.Lock()
	defer l.mu.Unlock()
	if offset < 0 {
		offset = 0
	}
	if offset >= len(l.order) {
		return nil
	}
	rest := l.order[offset:]
	if limit > 0 && limit < len(rest) {
		rest = rest[:limit]
	}
	out := make([]K, len(rest))
	copy(out, rest)
	return out
}

// PendingCount returns the number of tasks not yet submitted.
func (l *TodoList[K, V]) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// SubmittedCount returns the number of completed tasks.
func (l *TodoList[K, V]) SubmittedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.submitted)
}

// RecentlySubmitted returns the last n submitted task IDs, newest first.
// n <= 0 means all.
func (l *TodoList[K, V]) RecentlySubmitted(n int) []K {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := len(l.submitted)
	if n <= 0 || n > total {
		n = total
	}
	out := make([]K, 0, n)
	for i := total - 1; i >= total-n; i-- {
		out = append(out, l.submitted[i])
	}
	return out
}

// Result returns the submitted result for id. ok is false while the task is
// still pending or unknown.
func (l *TodoList[K, V]) Result(id K) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, exists := l.tasks[id]
	if !exists || !st.submitted {
		var zero V
		return zero, false
	}
	return st.result, true
}
