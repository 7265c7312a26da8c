package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/QuaichGo/internal/cache"
	"github.com/utafrali/QuaichGo/internal/cache/memory"
	"github.com/utafrali/QuaichGo/internal/domain"
	"github.com/utafrali/QuaichGo/internal/repository"
	apperrors "github.com/utafrali/QuaichGo/pkg/errors"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestCache() (*cache.Cache, *cache.Dispatcher) {
	logger := newTestLogger()
	c := cache.New(memory.New(), logger)
	return c, cache.NewDispatcher(c, logger)
}

// --- In-memory database ---

// fakeDB is a small in-memory stand-in for PostgreSQL implementing the
// results reader and the vote repository. snapshots counts reads so tests
// can tell cache hits from recomputes.
type fakeDB struct {
	mu        sync.Mutex
	meetings  map[string]*domain.Meeting
	whiskies  map[string]*domain.Whisky
	members   map[string]*domain.Member
	votes     []domain.Vote
	snapshots int
	clock     time.Time
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		meetings: make(map[string]*domain.Meeting),
		whiskies: make(map[string]*domain.Whisky),
		members:  make(map[string]*domain.Member),
		clock:    time.Date(2026, 3, 12, 19, 0, 0, 0, time.UTC),
	}
}

func (db *fakeDB) addMeeting(id string) {
	db.meetings[id] = &domain.Meeting{ID: id, Location: "Islay night", Date: db.clock, Status: domain.MeetingStatusOpen}
}

func (db *fakeDB) addWhisky(id, meetingID string, order int) {
	db.whiskies[id] = &domain.Whisky{ID: id, MeetingID: meetingID, Name: "Whisky " + id, DisplayOrder: order}
}

func (db *fakeDB) addMember(id, name string) {
	db.members[id] = &domain.Member{ID: id, Name: name, LastName: "Test", Role: domain.RoleUser}
}

func (db *fakeDB) snapshotCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.snapshots
}

func (db *fakeDB) Snapshot(_ context.Context, fn func(repository.ResultsSnapshot) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.snapshots++
	return fn(fakeSnapshot{db: db})
}

// openMeetingOf mirrors the share-locked check of the vote transaction.
func (db *fakeDB) openMeetingOf(whiskyID string) (string, error) {
	w, ok := db.whiskies[whiskyID]
	if !ok {
		return "", apperrors.NotFound("whisky", whiskyID)
	}
	if !db.meetings[w.MeetingID].IsOpen() {
		return w.MeetingID, apperrors.MeetingClosed(w.MeetingID)
	}
	return w.MeetingID, nil
}

func (db *fakeDB) Create(_ context.Context, v *domain.Vote) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	meetingID, err := db.openMeetingOf(v.WhiskyID)
	if err != nil {
		return "", err
	}
	for _, existing := range db.votes {
		if existing.WhiskyID == v.WhiskyID && existing.MemberID == v.MemberID {
			return "", apperrors.DuplicateVote(v.MemberID, v.WhiskyID)
		}
	}
	db.clock = db.clock.Add(time.Minute)
	v.CreatedAt = db.clock
	v.UpdatedAt = db.clock
	db.votes = append(db.votes, *v)
	return meetingID, nil
}

func (db *fakeDB) Update(_ context.Context, v *domain.Vote) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	meetingID, err := db.openMeetingOf(v.WhiskyID)
	if err != nil {
		return "", err
	}
	for i := range db.votes {
		existing := &db.votes[i]
		if existing.WhiskyID == v.WhiskyID && existing.MemberID == v.MemberID {
			existing.Rating = v.Rating
			existing.Comment = v.Comment
			existing.UpdatedAt = v.UpdatedAt
			v.ID = existing.ID
			v.CreatedAt = existing.CreatedAt
			return meetingID, nil
		}
	}
	return "", apperrors.NotFound("vote", v.MemberID+"/"+v.WhiskyID)
}

type fakeSnapshot struct {
	db *fakeDB
}

func (s fakeSnapshot) Meeting(_ context.Context, id string) (*domain.Meeting, error) {
	m, ok := s.db.meetings[id]
	if !ok {
		return nil, apperrors.NotFound("meeting", id)
	}
	cp := *m
	return &cp, nil
}

func (s fakeSnapshot) Whisky(_ context.Context, id string) (*domain.Whisky, error) {
	w, ok := s.db.whiskies[id]
	if !ok {
		return nil, apperrors.NotFound("whisky", id)
	}
	cp := *w
	return &cp, nil
}

func (s fakeSnapshot) Whiskies(_ context.Context, meetingID string) ([]domain.Whisky, error) {
	out := []domain.Whisky{}
	for _, w := range s.db.whiskies {
		if w.MeetingID == meetingID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (s fakeSnapshot) Aggregates(_ context.Context, whiskyIDs []string) (map[string]domain.Aggregate, error) {
	wanted := toSet(whiskyIDs)
	out := make(map[string]domain.Aggregate)
	for _, v := range s.db.votes {
		if wanted[v.WhiskyID] {
			out[v.WhiskyID] = foldRating(out[v.WhiskyID], v.Rating)
		}
	}
	return out, nil
}

// foldRating adds one rating to a, the same way the grouped SQL aggregate
// computes count, average, min and max.
func foldRating(a domain.Aggregate, rating int) domain.Aggregate {
	if a.Count == 0 {
		return domain.Aggregate{Count: 1, Average: float64(rating), Min: rating, Max: rating}
	}
	sum := a.Average*float64(a.Count) + float64(rating)
	a.Count++
	a.Average = sum / float64(a.Count)
	if rating < a.Min {
		a.Min = rating
	}
	if rating > a.Max {
		a.Max = rating
	}
	return a
}

func (s fakeSnapshot) VoteDetails(_ context.Context, whiskyIDs []string) ([]domain.VoteDetail, error) {
	wanted := toSet(whiskyIDs)
	out := []domain.VoteDetail{}
	for _, v := range s.db.votes {
		if !wanted[v.WhiskyID] {
			continue
		}
		m := s.db.members[v.MemberID]
		out = append(out, domain.VoteDetail{
			ID:        v.ID,
			WhiskyID:  v.WhiskyID,
			Rating:    v.Rating,
			Comment:   v.Comment,
			CreatedAt: v.CreatedAt,
			User:      domain.Reviewer{Name: m.Name, LastName: m.LastName, Image: m.ImageURL},
		})
	}
	return out, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// --- Stub reader returning fixed snapshot data ---

type stubSnapshot struct {
	meeting  *domain.Meeting
	whiskies []domain.Whisky
	aggs     map[string]domain.Aggregate
	details  []domain.VoteDetail
}

type stubReader struct{ snap stubSnapshot }

func (r stubReader) Snapshot(_ context.Context, fn func(repository.ResultsSnapshot) error) error {
	return fn(r.snap)
}

func (s stubSnapshot) Meeting(context.Context, string) (*domain.Meeting, error) { return s.meeting, nil }

func (s stubSnapshot) Whisky(_ context.Context, id string) (*domain.Whisky, error) {
	for _, w := range s.whiskies {
		if w.ID == id {
			return &w, nil
		}
	}
	return nil, apperrors.NotFound("whisky", id)
}

func (s stubSnapshot) Whiskies(context.Context, string) ([]domain.Whisky, error) {
	return s.whiskies, nil
}

func (s stubSnapshot) Aggregates(context.Context, []string) (map[string]domain.Aggregate, error) {
	return s.aggs, nil
}

func (s stubSnapshot) VoteDetails(context.Context, []string) ([]domain.VoteDetail, error) {
	return s.details, nil
}

// --- Cache store failing every eviction ---

type evictFailStore struct {
	*memory.Store
}

func (evictFailStore) InvalidateTags(context.Context, ...string) error {
	return errors.New("store unavailable")
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishVoteCast(ctx context.Context, meetingID string, vote *domain.Vote) error {
	return m.Called(ctx, meetingID, vote).Error(0)
}

func (m *mockPublisher) PublishVoteUpdated(ctx context.Context, meetingID string, vote *domain.Vote) error {
	return m.Called(ctx, meetingID, vote).Error(0)
}

func (m *mockPublisher) PublishMeetingClosed(ctx context.Context, meeting *domain.Meeting) error {
	return m.Called(ctx, meeting).Error(0)
}

// --- Mock repositories ---

type mockMeetingRepository struct {
	mock.Mock
}

func (m *mockMeetingRepository) Create(ctx context.Context, meeting *domain.Meeting) error {
	return m.Called(ctx, meeting).Error(0)
}

func (m *mockMeetingRepository) GetByID(ctx context.Context, id string) (*domain.Meeting, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Meeting), args.Error(1)
}

func (m *mockMeetingRepository) List(ctx context.Context, page, perPage int) ([]domain.Meeting, int, error) {
	args := m.Called(ctx, page, perPage)
	return args.Get(0).([]domain.Meeting), args.Int(1), args.Error(2)
}

func (m *mockMeetingRepository) Update(ctx context.Context, meeting *domain.Meeting) error {
	return m.Called(ctx, meeting).Error(0)
}

func (m *mockMeetingRepository) Close(ctx context.Context, id string, quaichWhiskyID *string) (*domain.Meeting, error) {
	args := m.Called(ctx, id, quaichWhiskyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Meeting), args.Error(1)
}

type mockWhiskyRepository struct {
	mock.Mock
}

func (m *mockWhiskyRepository) Create(ctx context.Context, w *domain.Whisky) error {
	return m.Called(ctx, w).Error(0)
}

func (m *mockWhiskyRepository) GetByID(ctx context.Context, id string) (*domain.Whisky, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Whisky), args.Error(1)
}

func (m *mockWhiskyRepository) ListByMeeting(ctx context.Context, meetingID string) ([]domain.Whisky, error) {
	args := m.Called(ctx, meetingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Whisky), args.Error(1)
}

func (m *mockWhiskyRepository) Update(ctx context.Context, w *domain.Whisky) error {
	return m.Called(ctx, w).Error(0)
}

func (m *mockWhiskyRepository) Delete(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

type mockMemberRepository struct {
	mock.Mock
}

func (m *mockMemberRepository) Create(ctx context.Context, member *domain.Member) error {
	return m.Called(ctx, member).Error(0)
}

func (m *mockMemberRepository) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

func (m *mockMemberRepository) List(ctx context.Context) ([]domain.Member, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Member), args.Error(1)
}

func (m *mockMemberRepository) Update(ctx context.Context, member *domain.Member) error {
	return m.Called(ctx, member).Error(0)
}

func (m *mockMemberRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
