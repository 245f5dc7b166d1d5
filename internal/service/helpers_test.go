package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"progman-api/internal/config"
	"progman-api/internal/domain"
	"progman-api/internal/repository"
	"progman-api/internal/testutil"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

type broadcastCall struct {
	Room    string
	Event   string
	Payload interface{}
}

// recordingBroadcaster captures every broadcast. Err makes each call fail after recording it.
type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
	Err   error
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, room, event string, payload interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, broadcastCall{Room: room, Event: event, Payload: payload})
	return b.Err
}

func (b *recordingBroadcaster) Calls() []broadcastCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]broadcastCall(nil), b.calls...)
}

func (b *recordingBroadcaster) Events() []string {
	var out []string
	for _, c := range b.Calls() {
		out = append(out, c.Event)
	}
	return out
}

func (b *recordingBroadcaster) Last(event string) (broadcastCall, bool) {
	calls := b.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Event == event {
			return calls[i], true
		}
	}
	return broadcastCall{}, false
}

var errBroadcastDown = errors.New("broadcast channel unavailable")

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

var testTemplate = []config.TemplateCategory{
	{Category: "Design", Items: []string{"Wireframes", "Review"}},
	{Category: "Milestone", Items: []string{"Launch"}},
}

// testEnv wires every service over one in-memory database
type testEnv struct {
	db          *gorm.DB
	repos       ProjectRepositories
	broadcaster *recordingBroadcaster
	schedules   ScheduleService
	projects    ProjectService
	comments    CommentService
	milestones  MilestoneService
}

func newTestEnv(t *testing.T, hidden ...string) *testEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	logger := zap.NewNop()
	b := &recordingBroadcaster{}

	repos := ProjectRepositories{
		Projects:   repository.NewProjectRepository(db),
		Schedules:  repository.NewScheduleRepository(db),
		Comments:   repository.NewCommentRepository(db),
		Progress:   repository.NewProgressRepository(db),
		Milestones: repository.NewMilestoneRepository(db),
		Imports:    repository.NewImportRepository(db),
	}
	tx := repository.NewTransactor(db)

	schedules := NewScheduleService(repos.Schedules, repos.Projects, repos.Milestones, tx, b, hidden, nil, logger)
	return &testEnv{
		db:          db,
		repos:       repos,
		broadcaster: b,
		schedules:   schedules,
		projects:    NewProjectService(repos, tx, schedules, testTemplate, nil, logger),
		comments: NewCommentService(repos.Comments, repos.Progress, repos.Projects, tx, b,
			config.CommentsConfig{OverallKey: domain.OverallOwner, LeftSections: []string{"Design"}, AutosaveDelay: 800 * time.Millisecond},
			fixedClock, nil, logger),
		milestones: NewMilestoneService(repos.Milestones, repos.Schedules, b, "Milestone", logger),
	}
}

func (e *testEnv) seedProject(t *testing.T, name string, baseDate *string) *domain.Project {
	t.Helper()
	p := &domain.Project{Name: name, BaseDate: baseDate}
	if err := e.repos.Projects.Create(context.Background(), p); err != nil {
		t.Fatalf("failed to seed project: %v", err)
	}
	return p
}

func (e *testEnv) seedRows(t *testing.T, rows ...*domain.Schedule) {
	t.Helper()
	for i, r := range rows {
		r.SortOrder = i
		r.Normalize()
	}
	if err := e.repos.Schedules.CreateBatch(context.Background(), rows); err != nil {
		t.Fatalf("failed to seed rows: %v", err)
	}
}
