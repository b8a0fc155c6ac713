package service

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodoList_Lifecycle(t *testing.T) {
	t.Parallel()
	l := NewTodoList[string, string](nil)

	require.True(t, l.AddTask("a"))
	require.True(t, l.AddTask("b"))
	assert.False(t, l.AddTask("a"), "duplicate IDs are rejected")
	assert.Equal(t, 2, l.PendingCount())

	_, ok := l.Result("a")
	assert.False(t, ok, "no result while pending")

	require.NoError(t, l.Submit("a", "done"))
	assert.Equal(t, 1, l.PendingCount())
	assert.Equal(t, 1, l.SubmittedCount())

	got, ok := l.Result("a")
	require.True(t, ok)
	assert.Equal(t, "done", got)
}

func TestTodoList_DuplicateSubmit(t *testing.T) {
	t.Parallel()
	l := NewTodoList[string, int](nil)
	l.AddTask("x")
	require.NoError(t, l.Submit("x", 1))

	err := l.Submit("x", 2)
	var dup *AlreadySubmittedError
	require.ErrorAs(t, err, &dup)

	got, _ := l.Result("x")
	assert.Equal(t, 1, got, "first result wins")
}

func TestTodoList_SubmitUnknown(t *testing.T) {
	t.Parallel()
	l := NewTodoList[string, int](nil)
	err := l.Submit("ghost", 1)
	var nf *TaskNotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestTodoList_CallbackFailureStillCommits(t *testing.T) {
	t.Parallel()
	boom := fmt.Errorf("boom")
	l := NewTodoList[string, int](func(id string, v int) error { return boom })
	l.AddTask("t")

	err := l.Submit("t", 7)
	var cbErr *CallbackError
	require.ErrorAs(t, err, &cbErr)
	assert.ErrorIs(t, err, boom)

	// The submission committed despite the callback failure.
	assert.Zero(t, l.PendingCount())
	got, ok := l.Result("t")
	require.True(t, ok)
	assert.Equal(t, 7, got)

	err = l.Submit("t", 8)
	var dup *AlreadySubmittedError
	require.ErrorAs(t, err, &dup)
}

func TestTodoList_PendingPagination(t *testing.T) {
	t.Parallel()
	l := NewTodoList[string, int](nil)
	for i := 0; i < 5; i++ {
		l.AddTask(fmt.Sprintf("t%d", i))
	}

	assert.Equal(t, []string{"t0", "t1"}, l.Pending(2, 0))
	assert.Equal(t, []string{"t2", "t3"}, l.Pending(2, 2))
	assert.Equal(t, []string{"t4"}, l.Pending(2, 4))
	assert.Empty(t, l.Pending(2, 9))
	assert.Len(t, l.Pending(0, 0), 5, "non-positive limit returns all")
}

func TestTodoList_RecentlySubmittedOrder(t *testing.T) {
	t.Parallel()
	l := NewTodoList[string, int](nil)
	for _, id := range []string{"a", "b", "c"} {
		l.AddTask(id)
		require.NoError(t, l.Submit(id, 0))
	}
	assert.Equal(t, []string{"c", "b"}, l.RecentlySubmitted(2))
	assert.Equal(t, []string{"c", "b", "a"}, l.RecentlySubmitted(0))
}

func TestTodoList_ConcurrentSubmitFirstWins(t *testing.T) {
	t.Parallel()
	l := NewTodoList[string, int](nil)
	l.AddTask("race")

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = l.Submit("race", i)
		}(i)
	}
	wg.Wait()

	okCount := 0
	for _, err := range errs {
		if err == nil {
			okCount++
		} else {
			var dup *AlreadySubmittedError
			assert.ErrorAs(t, err, &dup)
		}
	}
	assert.Equal(t, 1, okCount, "exactly one submission wins")
	assert.Equal(t, 1, l.SubmittedCount())
}
