package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MisakaVan/code-index/internal/symbol"
)

func newAnalysis(t *testing.T) *RepoAnalysisService {
	t.Helper()
	return NewRepoAnalysisService(setupService(t, "json"), nil)
}

func TestReadyDescribeDefinitions(t *testing.T) {
	t.Parallel()
	a := newAnalysis(t)

	added, err := a.ReadyDescribeDefinitions()
	require.NoError(t, err)
	// parse_json, parse_xml, run
	assert.Equal(t, 3, added)

	tasks := a.PendingDescribeTasks(0)
	require.Len(t, tasks, 3)
	names := make(map[string]bool)
	for _, task := range tasks {
		assert.NotEmpty(t, task.ID)
		names[task.Name] = true
	}
	assert.True(t, names["parse_json"])
	assert.True(t, names["run"])

	// Idempotent: a second scan adds nothing while tasks are outstanding.
	added, err = a.ReadyDescribeDefinitions()
	require.NoError(t, err)
	assert.Zero(t, added)
}

func TestSubmitNote_AppliesAnnotation(t *testing.T) {
	t.Parallel()
	a := newAnalysis(t)
	_, err := a.ReadyDescribeDefinitions()
	require.NoError(t, err)

	task := a.PendingDescribeTasks(1)[0]
	note := symbol.Note{Summary: "parses input text"}
	require.NoError(t, a.SubmitNote(task.ID, note))

	got, ok, err := a.svc.Note(task.Name, task.Location)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "parses input text", got.Summary)

	done, total := a.Progress()
	assert.Equal(t, 1, done)
	assert.Equal(t, 3, total)

	recent := a.RecentlySubmitted(1)
	require.Len(t, recent, 1)
	assert.Equal(t, task.ID, recent[0].ID)
}

func TestSubmitNote_DuplicateRejected(t *testing.T) {
	t.Parallel()
	a := newAnalysis(t)
	_, err := a.ReadyDescribeDefinitions()
	require.NoError(t, err)

	task := a.PendingDescribeTasks(1)[0]
	require.NoError(t, a.SubmitNote(task.ID, symbol.Note{Summary: "first"}))

	err = a.SubmitNote(task.ID, symbol.Note{Summary: "second"})
	var dup *AlreadySubmittedError
	require.ErrorAs(t, err, &dup)

	got, _, err := a.svc.Note(task.Name, task.Location)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Summary, "the first note stays applied")
}

func TestSubmitNote_UnknownTask(t *testing.T) {
	t.Parallel()
	a := newAnalysis(t)
	err := a.SubmitNote("no-such-task", symbol.Note{Summary: "x"})
	var nf *TaskNotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestReadyDescribeDefinitions_SkipsAnnotated(t *testing.T) {
	t.Parallel()
	a := newAnalysis(t)
	_, err := a.ReadyDescribeDefinitions()
	require.NoError(t, err)

	for _, task := range a.PendingDescribeTasks(0) {
		require.NoError(t, a.SubmitNote(task.ID, symbol.Note{Summary: "done"}))
	}

	added, err := a.ReadyDescribeDefinitions()
	require.NoError(t, err)
	assert.Zero(t, added, "annotated definitions need no new tasks")

	done, total := a.Progress()
	assert.Equal(t, done, total)
}

func TestConcurrentAgents(t *testing.T) {
	t.Parallel()
	a := newAnalysis(t)
	_, err := a.ReadyDescribeDefinitions()
	require.NoError(t, err)

	tasks := a.PendingDescribeTasks(0)
	var wg sync.WaitGroup
	// Several agents race to submit every task; one winner per task.
	for agent := 0; agent < 4; agent++ {
		wg.Add(1)
		go func(agent int) {
			defer wg.Done()
			for _, task := range tasks {
				err := a.SubmitNote(task.ID, symbol.Note{Summary: "from agent"})
				if err != nil {
					var dup *AlreadySubmittedError
					assert.ErrorAs(t, err, &dup)
				}
			}
		}(agent)
	}
	wg.Wait()

	done, total := a.Progress()
	assert.Equal(t, len(tasks), done)
	assert.Equal(t, len(tasks), total)
	assert.Empty(t, a.PendingDescribeTasks(0))
}
