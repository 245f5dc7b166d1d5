// Package syncstore keeps a client-side copy of a project's schedule that
// stays in step with the server. Local edits are applied optimistically and
// server snapshots are merged without overwriting values the user appears to
// be editing.
package syncstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"progman-api/internal/domain"
	"progman-api/internal/dto"
)

// DefaultResyncDelay is the wait between a successful save and the background refetch
const DefaultResyncDelay = 500 * time.Millisecond

// ErrUnknownRow is returned for an edit of a row the store does not hold
var ErrUnknownRow = errors.New("syncstore: unknown schedule row")

// ScheduleAPI is the part of the HTTP client the store uses
type ScheduleAPI interface {
	ListSchedules(ctx context.Context, projectID uint) ([]dto.ScheduleResponse, error)
	UpdateSchedule(ctx context.Context, id uint, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error)
}

// EventSource delivers real-time frames
type EventSource interface {
	Events() <-chan dto.Envelope
}

// Group is one category of the display order
type Group struct {
	Category string
	Rows     []dto.ScheduleResponse
}

// Store is the reconciliation store of one selected project
type Store struct {
	api         ScheduleAPI
	resyncDelay time.Duration
	saveTimeout time.Duration
	logger      *zap.Logger

	mu        sync.RWMutex
	projectID uint
	rows      []dto.ScheduleResponse
	inFlight  int
	lastErr   error
	resync    *time.Timer
	listeners []func([]dto.ScheduleResponse)
}

// Option configures a Store
type Option func(*Store)

func WithResyncDelay(d time.Duration) Option {
	return func(s *Store) {
		s.resyncDelay = d
	}
}

// WithSaveTimeout bounds each background save and refetch
func WithSaveTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.saveTimeout = d
	}
}

func NewStore(api ScheduleAPI, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		api:         api,
		resyncDelay: DefaultResyncDelay,
		saveTimeout: 15 * time.Second,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load selects projectID and replaces the rows with the server's
func (s *Store) Load(ctx context.Context, projectID uint) error {
	rows, err := s.api.ListSchedules(ctx, projectID)
	if err != nil {
		s.setErr(err)
		return err
	}

	s.mu.Lock()
	s.stopResyncLocked()
	s.projectID = projectID
	s.rows = cloneRows(rows)
	s.lastErr = nil
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

// ProjectID is the selected project, zero before Load
func (s *Store) ProjectID() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectID
}

// Rows returns a copy of the rows in server order
func (s *Store) Rows() []dto.ScheduleResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Row returns a copy of one row
func (s *Store) Row(id uint) (dto.ScheduleResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rows {
		if r.ID == id {
			return cloneRow(r), true
		}
	}
	return dto.ScheduleResponse{}, false
}

// Groups orders the rows for display: categories in first-seen order, rows by sort_order within each
func (s *Store) Groups() []Group {
	return GroupRows(s.Rows())
}

// Err is the last save or fetch failure. Optimistic edits are never rolled back.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// InFlight is the number of saves awaiting a server answer
func (s *Store) InFlight() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight
}

// OnChange registers fn to receive every new row list
func (s *Store) OnChange(fn func([]dto.ScheduleResponse)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// ApplyLocalEdit merges req into the local row immediately and saves it in
// the background. The returned channel yields the save result once. A failed
// save leaves the local value in place and is reported through Err.
func (s *Store) ApplyLocalEdit(id uint, req *dto.UpdateScheduleRequest) (<-chan error, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrUnknownRow, id)
	}
	s.rows[idx] = applyEdit(s.rows[idx], req)
	s.inFlight++
	s.stopResyncLocked()
	projectID := s.projectID
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)

	result := make(chan error, 1)
	go func() {
		result <- s.save(projectID, id, req)
	}()
	return result, nil
}

func (s *Store) save(projectID, id uint, req *dto.UpdateScheduleRequest) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()

	_, err := s.api.UpdateSchedule(ctx, id, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	if err != nil {
		s.lastErr = err
		s.logger.Warn("Schedule save failed", zap.Uint("schedule_id", id), zap.Error(err))
		return err
	}
	if s.inFlight == 0 && s.projectID == projectID {
		s.scheduleResyncLocked(projectID)
	}
	return nil
}

func (s *Store) scheduleResyncLocked(projectID uint) {
	s.stopResyncLocked()
	s.resync = time.AfterFunc(s.resyncDelay, func() { s.runResync(projectID) })
}

func (s *Store) stopResyncLocked() {
	if s.resync != nil {
		s.resync.Stop()
		s.resync = nil
	}
}

// runResync replaces the rows wholesale unless a save started meanwhile
func (s *Store) runResync(projectID uint) {
	s.mu.RLock()
	skip := s.inFlight > 0 || s.projectID != projectID
	s.mu.RUnlock()
	if skip {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()
	rows, err := s.api.ListSchedules(ctx, projectID)
	if err != nil {
		s.logger.Warn("Background resync failed", zap.Uint("project_id", projectID), zap.Error(err))
		s.setErr(err)
		return
	}

	s.mu.Lock()
	if s.inFlight > 0 || s.projectID != projectID {
		s.mu.Unlock()
		return
	}
	s.rows = cloneRows(rows)
	s.resync = nil
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
}

// MergeServerSnapshot takes a pushed snapshot as the new row list. For each
// row already held, a local value of start_date, duration, owner,
// actual_start or actual_duration that is set and differs from the incoming
// one is kept, on the assumption that the user is editing it. This can keep
// a stale local value over a genuine remote edit.
func (s *Store) MergeServerSnapshot(incoming []dto.ScheduleResponse) {
	s.mu.Lock()
	if len(incoming) > 0 && s.projectID != 0 && incoming[0].ProjectID != s.projectID {
		s.mu.Unlock()
		return
	}

	local := make(map[uint]dto.ScheduleResponse, len(s.rows))
	for _, r := range s.rows {
		local[r.ID] = r
	}

	merged := make([]dto.ScheduleResponse, 0, len(incoming))
	for _, in := range incoming {
		cur, ok := local[in.ID]
		if !ok {
			merged = append(merged, cloneRow(in))
			continue
		}
		merged = append(merged, mergeRow(cur, in))
	}
	s.rows = merged
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
}

// Watch merges schedules-updated frames from src until ctx ends or src closes.
// Error frames are recorded and reported through Err.
func (s *Store) Watch(ctx context.Context, src EventSource) error {
	events := src.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-events:
			if !ok {
				return nil
			}
			s.handleEvent(env)
		}
	}
}

func (s *Store) handleEvent(env dto.Envelope) {
	switch env.Event {
	case dto.EventSchedulesUpdated:
		var rows []dto.ScheduleResponse
		if err := json.Unmarshal(env.Data, &rows); err != nil {
			s.logger.Warn("Invalid schedules-updated frame", zap.Error(err))
			return
		}
		s.MergeServerSnapshot(rows)
	case dto.EventError:
		var p dto.ErrorPayload
		if err := json.Unmarshal(env.Data, &p); err == nil {
			s.setErr(errors.New(p.Message))
		}
	}
}

// Close stops a pending resync
func (s *Store) Close() {
	s.mu.Lock()
	s.stopResyncLocked()
	s.mu.Unlock()
}

func (s *Store) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Store) notify(rows []dto.ScheduleResponse) {
	s.mu.RLock()
	listeners := slices.Clone(s.listeners)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(rows)
	}
}

func (s *Store) indexLocked(id uint) int {
	for i, r := range s.rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() []dto.ScheduleResponse {
	return cloneRows(s.rows)
}

// GroupRows orders rows for display: categories in first-seen order, rows by sort_order within each
func GroupRows(rows []dto.ScheduleResponse) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, r := range rows {
		i, ok := index[r.Category]
		if !ok {
			i = len(groups)
			index[r.Category] = i
			groups = append(groups, Group{Category: r.Category})
		}
		groups[i].Rows = append(groups[i].Rows, r)
	}
	for _, g := range groups {
		sort.SliceStable(g.Rows, func(a, b int) bool {
			return g.Rows[a].SortOrder < g.Rows[b].SortOrder
		})
	}
	return groups
}

// applyEdit merges req over row and derives the end dates the same way the server does
func applyEdit(row dto.ScheduleResponse, req *dto.UpdateScheduleRequest) dto.ScheduleResponse {
	s := toDomain(row)
	req.ApplyTo(s)
	s.Normalize()
	return dto.ToScheduleResponse(s)
}

func mergeRow(local, in dto.ScheduleResponse) dto.ScheduleResponse {
	out := cloneRow(in)
	if keepString(local.StartDate, in.StartDate) {
		out.StartDate = copyPtr(local.StartDate)
	}
	if keepInt(local.Duration, in.Duration) {
		out.Duration = copyPtr(local.Duration)
	}
	if keepString(local.Owner, in.Owner) {
		out.Owner = copyPtr(local.Owner)
	}
	if keepString(local.ActualStart, in.ActualStart) {
		out.ActualStart = copyPtr(local.ActualStart)
	}
	if keepInt(local.ActualDuration, in.ActualDuration) {
		out.ActualDuration = copyPtr(local.ActualDuration)
	}
	s := toDomain(out)
	s.Normalize()
	return dto.ToScheduleResponse(s)
}

// keepString reports whether a set, non-empty local value differs from the incoming one
func keepString(local, in *string) bool {
	if local == nil || *local == "" {
		return false
	}
	return in == nil || *in != *local
}

func keepInt(local, in *int) bool {
	if local == nil || *local == 0 {
		return false
	}
	return in == nil || *in != *local
}

func toDomain(r dto.ScheduleResponse) *domain.Schedule {
	return &domain.Schedule{
		ID:             r.ID,
		ProjectID:      r.ProjectID,
		Category:       r.Category,
		Item:           r.Item,
		Owner:          copyPtr(r.Owner),
		StartDate:      copyPtr(r.StartDate),
		Duration:       copyPtr(r.Duration),
		EndDate:        copyPtr(r.EndDate),
		Progress:       r.Progress,
		ActualStart:    copyPtr(r.ActualStart),
		ActualDuration: copyPtr(r.ActualDuration),
		ActualEnd:      copyPtr(r.ActualEnd),
		SortOrder:      r.SortOrder,
		UpdatedAt:      r.UpdatedAt,
	}
}

func cloneRows(rows []dto.ScheduleResponse) []dto.ScheduleResponse {
	out := make([]dto.ScheduleResponse, len(rows))
	for i, r := range rows {
		out[i] = cloneRow(r)
	}
	return out
}

func cloneRow(r dto.ScheduleResponse) dto.ScheduleResponse {
	return dto.ToScheduleResponse(toDomain(r))
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
