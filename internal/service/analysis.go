package service

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/MisakaVan/code-index/internal/symbol"
)

// DescribeTask asks an agent to write a note for one definition.
type DescribeTask struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Location symbol.Location `json:"location"`
}

// RepoAnalysisService drives the annotation workflow: it enumerates
// definitions that still need notes, hands them out as tasks, and applies
// submitted notes back onto the index. One operation-level lock spans queue
// mutation and index access so concurrent agents see a consistent queue.
type RepoAnalysisService struct {
	mu  sync.Mutex
	log *slog.Logger
	svc *IndexService

	todo  *TodoList[string, symbol.Note]
	tasks map[string]DescribeTask
	total int
}

// NewRepoAnalysisService builds an analysis service over svc.
func NewRepoAnalysisService(svc *IndexService, logger *slog.Logger) *RepoAnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	a := &RepoAnalysisService{
		log:   logger.With("component", "repo-analysis"),
		svc:   svc,
		tasks: make(map[string]DescribeTask),
	}
	a.todo = NewTodoList(func(id string, note symbol.Note) error {
		t, ok := a.tasks[id]
		if !ok {
			return fmt.Errorf("task %s: no definition recorded", id)
		}
		return a.svc.Annotate(t.Name, t.Location, note)
	})
	return a
}

var (
	defaultAnalysis   atomic.Pointer[RepoAnalysisService]
	defaultAnalysisMu sync.Mutex
)

// DefaultAnalysis returns the process-wide analysis service bound to the
// default IndexService.
func DefaultAnalysis() *RepoAnalysisService {
	if a := defaultAnalysis.Load(); a != nil {
		return a
	}
	defaultAnalysisMu.Lock()
	defer defaultAnalysisMu.Unlock()
	if a := defaultAnalysis.Load(); a != nil {
		return a
	}
	a := NewRepoAnalysisService(Default(), slog.Default())
	defaultAnalysis.Store(a)
	return a
}

// ReadyDescribeDefinitions scans the index and enqueues a describe task for
// every definition that has no note and no task yet. Returns the number of
// tasks added. Calling it again after re-indexing picks up new definitions
// without duplicating existing tasks.
func (a *RepoAnalysisService) ReadyDescribeDefinitions() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	names, err := a.svc.AllSymbols()
	if err != nil {
		return 0, err
	}

	claimed := make(map[string]map[symbol.Location]bool)
	for _, t := range a.tasks {
		locs := claimed[t.Name]
		if locs == nil {
			locs = make(map[symbol.Location]bool)
			claimed[t.Name] = locs
		}
		locs[t.Location] = true
	}

	added := 0
	for _, name := range names {
		m, err := a.svc.QueryExact(name)
		if err != nil {
			return added, err
		}
		for _, d := range m.Definitions {
			if d.IsDeclaration {
				continue
			}
			if claimed[name][d.Location] {
				continue
			}
			if _, ok, _ := a.svc.Note(name, d.Location); ok {
				continue
			}
			id := uuid.NewString()
			a.tasks[id] = DescribeTask{ID: id, Name: name, Location: d.Location}
			a.todo.AddTask(id)
			added++
		}
	}
	a.total += added
	a.log.Info("describe tasks ready", "added", added, "pending", a.todo.PendingCount())
	return added, nil
}

// SubmitNote records the note for a task and applies it to the index. The
// queue state commits even when applying the note fails; that failure comes
// back as *CallbackError.
func (a *RepoAnalysisService) SubmitNote(taskID string, note symbol.Note) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.todo.Submit(taskID, note)
}

// PendingDescribeTasks returns up to n pending tasks, oldest first. n <= 0
// means all.
func (a *RepoAnalysisService) PendingDescribeTasks(n int) []DescribeTask {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := a.todo.Pending(n, 0)
	out := make([]DescribeTask, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.tasks[id])
	}
	return out
}

// RecentlySubmitted returns the last n completed tasks, newest first.
func (a *RepoAnalysisService) RecentlySubmitted(n int) []DescribeTask {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := a.todo.RecentlySubmitted(n)
	out := make([]DescribeTask, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.tasks[id])
	}
	return out
}

// Progress reports completed and total task counts for the current run.
func (a *RepoAnalysisService) Progress() (done, total int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.todo.SubmittedCount(), a.total
}
