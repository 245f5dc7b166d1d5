package syncstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"progman-api/internal/dto"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// fakeScheduleAPI serves rows from memory. updateGate, when set, blocks
// UpdateSchedule until it is closed.
type fakeScheduleAPI struct {
	mu         sync.Mutex
	rows       []dto.ScheduleResponse
	listCalls  int
	updates    []uint
	updateErr  error
	updateGate chan struct{}
}

func (f *fakeScheduleAPI) ListSchedules(_ context.Context, _ uint) ([]dto.ScheduleResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return cloneRows(f.rows), nil
}

func (f *fakeScheduleAPI) UpdateSchedule(_ context.Context, id uint, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error) {
	if f.updateGate != nil {
		<-f.updateGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, id)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for i, r := range f.rows {
		if r.ID == id {
			f.rows[i] = applyEdit(r, req)
			out := f.rows[i]
			return &out, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeScheduleAPI) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeScheduleAPI) setRows(rows []dto.ScheduleResponse) {
	f.mu.Lock()
	f.rows = rows
	f.mu.Unlock()
}

func seedRows() []dto.ScheduleResponse {
	return []dto.ScheduleResponse{
		{ID: 1, ProjectID: 7, Category: "Design", Item: "Wireframes", SortOrder: 1, StartDate: strPtr("2024-01-10"), Duration: intPtr(5), EndDate: strPtr("2024-01-14")},
		{ID: 2, ProjectID: 7, Category: "Build", Item: "API", SortOrder: 3},
		{ID: 3, ProjectID: 7, Category: "Design", Item: "Review", SortOrder: 0},
	}
}

func newLoadedStore(t *testing.T, api *fakeScheduleAPI, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithResyncDelay(20 * time.Millisecond)}, opts...)
	s := NewStore(api, zap.NewNop(), opts...)
	require.NoError(t, s.Load(context.Background(), 7))
	t.Cleanup(s.Close)
	return s
}

func TestStore_ApplyLocalEditIsOptimistic(t *testing.T) {
	api := &fakeScheduleAPI{rows: seedRows(), updateGate: make(chan struct{})}
	s := newLoadedStore(t, api)

	done, err := s.ApplyLocalEdit(1, &dto.UpdateScheduleRequest{Duration: dto.Some(10)})
	require.NoError(t, err)

	// Visible before the server answers, with the end date derived locally
	row, ok := s.Row(1)
	require.True(t, ok)
	assert.Equal(t, 10, *row.Duration)
	assert.Equal(t, "2024-01-19", *row.EndDate)
	assert.Equal(t, 1, s.InFlight())

	close(api.updateGate)
	require.NoError(t, <-done)
	assert.Equal(t, 0, s.InFlight())
}

func TestStore_FailedSaveKeepsLocalValue(t *testing.T) {
	api := &fakeScheduleAPI{rows: seedRows(), updateErr: errors.New("server down")}
	s := newLoadedStore(t, api)

	done, err := s.ApplyLocalEdit(2, &dto.UpdateScheduleRequest{Owner: dto.Some("Kim")})
	require.NoError(t, err)
	assert.EqualError(t, <-done, "server down")

	row, _ := s.Row(2)
	require.NotNil(t, row.Owner)
	assert.Equal(t, "Kim", *row.Owner)
	assert.EqualError(t, s.Err(), "server down")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, api.ListCalls(), "no resync after a failed save")
}

func TestStore_ApplyLocalEditRejects(t *testing.T) {
	api := &fakeScheduleAPI{rows: seedRows()}
	s := newLoadedStore(t, api)

	_, err := s.ApplyLocalEdit(99, &dto.UpdateScheduleRequest{Owner: dto.Some("x")})
	assert.ErrorIs(t, err, ErrUnknownRow)

	_, err = s.ApplyLocalEdit(1, &dto.UpdateScheduleRequest{StartDate: dto.Some("2024-02-30")})
	assert.Error(t, err)
}

func TestStore_ResyncAfterSave(t *testing.T) {
	api := &fakeScheduleAPI{rows: seedRows()}
	s := newLoadedStore(t, api)

	// Another session renames a row; the resync after our save picks it up wholesale
	rows := seedRows()
	rows[1].Item = "API v2"
	api.setRows(rows)

	done, err := s.ApplyLocalEdit(1, &dto.UpdateScheduleRequest{Progress: dto.Some(40.0)})
	require.NoError(t, err)
	require.NoError(t, <-done)

	assert.Eventually(t, func() bool {
		row, _ := s.Row(2)
		return row.Item == "API v2"
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, api.ListCalls())
}

func TestStore_NoResyncWhileAnotherSaveIsInFlight(t *testing.T) {
	api := &fakeScheduleAPI{rows: seedRows()}
	s := newLoadedStore(t, api, WithResyncDelay(50*time.Millisecond))

	first, err := s.ApplyLocalEdit(1, &dto.UpdateScheduleRequest{Progress: dto.Some(10.0)})
	require.NoError(t, err)
	require.NoError(t, <-first)

	api.mu.Lock()
	api.updateGate = make(chan struct{})
	api.mu.Unlock()

	second, err := s.ApplyLocalEdit(2, &dto.UpdateScheduleRequest{Progress: dto.Some(20.0)})
	require.NoError(t, err)

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 1, api.ListCalls())

	close(api.updateGate)
	require.NoError(t, <-second)
	assert.Eventually(t, func() bool { return api.ListCalls() == 2 }, time.Second, 10*time.Millisecond)
}

func TestStore_MergeServerSnapshotKeepsLocalEdits(t *testing.T) {
	api := &fakeScheduleAPI{rows: seedRows(), updateGate: make(chan struct{})}
	s := newLoadedStore(t, api)
	defer close(api.updateGate)

	_, err := s.ApplyLocalEdit(1, &dto.UpdateScheduleRequest{
		StartDate: dto.Some("2024-02-01"),
		Owner:     dto.Some("Lee"),
	})
	require.NoError(t, err)

	// A snapshot triggered by another session's write, without our edit yet
	incoming := seedRows()
	incoming[0].Item = "Wireframes (final)"
	incoming[0].Progress = 60
	s.MergeServerSnapshot(incoming)

	row, _ := s.Row(1)
	assert.Equal(t, "2024-02-01", *row.StartDate, "local start date is kept")
	assert.Equal(t, "Lee", *row.Owner, "local owner is kept")
	assert.Equal(t, "2024-02-05", *row.EndDate, "end date follows the kept start date")
	assert.Equal(t, "Wireframes (final)", row.Item, "other fields take the incoming value")
	assert.Equal(t, 60, row.Progress)
}

func TestStore_MergeServerSnapshotTakesIncomingWhenLocalIsEmpty(t *testing.T) {
	api := &fakeScheduleAPI{rows: seedRows()}
	s := newLoadedStore(t, api)

	incoming := seedRows()
	incoming[1].Owner = strPtr("Park")
	incoming[1].StartDate = strPtr("2024-03-01")
	incoming[1].Duration = intPtr(2)
	incoming[1].EndDate = strPtr("2024-03-02")
	incoming = append(incoming, dto.ScheduleResponse{ID: 4, ProjectID: 7, Category: "Build", Item: "UI", SortOrder: 4})
	s.MergeServerSnapshot(incoming[1:])

	rows := s.Rows()
	require.Len(t, rows, 3, "rows missing from the snapshot are dropped")
	assert.Equal(t, "Park", *rows[0].Owner)
	assert.Equal(t, "2024-03-02", *rows[0].EndDate)
	assert.EqualValues(t, 4, rows[2].ID)
}

func TestStore_MergeIgnoresOtherProjects(t *testing.T) {
	api := &fakeScheduleAPI{rows: seedRows()}
	s := newLoadedStore(t, api)

	s.MergeServerSnapshot([]dto.ScheduleResponse{{ID: 50, ProjectID: 8}})
	assert.Len(t, s.Rows(), 3)
}

func TestGroupRows(t *testing.T) {
	groups := GroupRows(seedRows())
	require.Len(t, groups, 2)
	assert.Equal(t, "Design", groups[0].Category)
	assert.Equal(t, "Build", groups[1].Category)
	require.Len(t, groups[0].Rows, 2)
	assert.Equal(t, "Review", groups[0].Rows[0].Item)
	assert.Equal(t, "Wireframes", groups[0].Rows[1].Item)
}

type chanSource chan dto.Envelope

func (c chanSource) Events() <-chan dto.Envelope { return c }

func frame(t *testing.T, event string, payload interface{}) dto.Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return dto.Envelope{Event: event, Data: raw}
}

func TestStore_Watch(t *testing.T) {
	api := &fakeScheduleAPI{rows: seedRows()}
	s := newLoadedStore(t, api)

	changes := make(chan []dto.ScheduleResponse, 4)
	s.OnChange(func(rows []dto.ScheduleResponse) { changes <- rows })

	src := make(chanSource, 4)
	incoming := seedRows()
	incoming[2].Item = "Design review"
	src <- frame(t, dto.EventSchedulesUpdated, incoming)
	src <- frame(t, dto.EventError, dto.ErrorPayload{Message: "failed to load schedule"})
	close(src)

	require.NoError(t, s.Watch(context.Background(), src))

	select {
	case rows := <-changes:
		assert.Equal(t, "Design review", rows[2].Item)
	default:
		t.Fatal("no change notification")
	}
	assert.EqualError(t, s.Err(), "failed to load schedule")
}

func TestStore_OnChangeNotifiesEveryListener(t *testing.T) {
	api := &fakeScheduleAPI{rows: seedRows()}
	s := newLoadedStore(t, api)

	var first, second, late int
	s.OnChange(func([]dto.ScheduleResponse) {
		first++
		// registering from inside a callback must not deadlock or join the running notification
		if first == 1 {
			s.OnChange(func([]dto.ScheduleResponse) { late++ })
		}
	})
	s.OnChange(func([]dto.ScheduleResponse) { second++ })

	s.MergeServerSnapshot(seedRows())
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, 0, late)

	s.MergeServerSnapshot(seedRows())
	assert.Equal(t, 2, first)
	assert.Equal(t, 2, second)
	assert.Equal(t, 1, late)
}
