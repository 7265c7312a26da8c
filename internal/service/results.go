package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/utafrali/QuaichGo/internal/cache"
	"github.com/utafrali/QuaichGo/internal/domain"
	"github.com/utafrali/QuaichGo/internal/repository"
	apperrors "github.com/utafrali/QuaichGo/pkg/errors"
)

// ResultsService assembles meeting results and whisky aggregates and serves
// them through the cache.
type ResultsService struct {
	reader repository.ResultsReader
	engine *AggregationEngine
	cache  *cache.Cache
	ttl    CacheTTL
	logger *slog.Logger
}

// NewResultsService creates a new results service.
func NewResultsService(reader repository.ResultsReader, c *cache.Cache, ttl CacheTTL, logger *slog.Logger) *ResultsService {
	return &ResultsService{
		reader: reader,
		engine: NewAggregationEngine(reader),
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

// ResultsTags are the tags a meeting's results entry is stored under. Member
// edits evict results because reviewer names are part of them.
func ResultsTags(meetingID string) []string {
	return []string{cache.MeetingResultsTag(meetingID), cache.MeetingTag(meetingID), cache.MembersTag}
}

// GetMeetingResults returns the cached results of a meeting. With fresh set
// the entry is recomputed and replaced instead of read.
func (s *ResultsService) GetMeetingResults(ctx context.Context, meetingID string, fresh bool) (*domain.MeetingResults, error) {
	key := cache.MeetingResultsKey(meetingID)
	tags := ResultsTags(meetingID)

	get := cache.GetOrCompute[*domain.MeetingResults]
	if fresh {
		get = cache.Refresh[*domain.MeetingResults]
	}

	results, err := get(ctx, s.cache, key, tags, s.ttl.Results, func(ctx context.Context) (*domain.MeetingResults, error) {
		return s.AssembleMeetingResults(ctx, meetingID)
	})
	if err != nil {
		return nil, fmt.Errorf("get meeting results: %w", err)
	}
	return results, nil
}

// GetWhiskyAggregate returns the cached aggregate of one whisky.
func (s *ResultsService) GetWhiskyAggregate(ctx context.Context, whiskyID string) (*domain.WhiskyAggregate, error) {
	key := cache.WhiskyAggregateKey(whiskyID)
	tags := []string{cache.WhiskyTag(whiskyID)}

	agg, err := cache.GetOrCompute(ctx, s.cache, key, tags, s.ttl.Aggregate, func(ctx context.Context) (*domain.WhiskyAggregate, error) {
		a, err := s.engine.AggregateWhisky(ctx, whiskyID)
		if err != nil {
			return nil, err
		}
		return &domain.WhiskyAggregate{WhiskyID: whiskyID, Aggregate: a}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get whisky aggregate: %w", err)
	}
	return agg, nil
}

// AssembleMeetingResults builds the results of a meeting from one database
// snapshot, bypassing the cache.
func (s *ResultsService) AssembleMeetingResults(ctx context.Context, meetingID string) (*domain.MeetingResults, error) {
	var results *domain.MeetingResults

	err := s.reader.Snapshot(ctx, func(snap repository.ResultsSnapshot) error {
		meeting, err := snap.Meeting(ctx, meetingID)
		if err != nil {
			return err
		}

		whiskies, err := snap.Whiskies(ctx, meetingID)
		if err != nil {
			return err
		}
		if len(whiskies) == 0 {
			return domain.ErrNoWhiskies
		}

		ids := whiskyIDs(whiskies)
		aggs, err := aggregateWhiskies(ctx, snap, ids)
		if err != nil {
			return err
		}
		details, err := snap.VoteDetails(ctx, ids)
		if err != nil {
			return err
		}

		results, err = assemble(meeting, whiskies, aggs, details)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "meeting results assembled",
		slog.String("meeting_id", meetingID),
		slog.Int("whiskies", len(results.Whiskies)),
	)
	return results, nil
}

// assemble joins aggregates and vote details by whisky. Details that do not
// match their aggregate mean the two reads disagree, which is reported as an
// internal error rather than rendered.
func assemble(meeting *domain.Meeting, whiskies []domain.Whisky, aggs map[string]domain.Aggregate, details []domain.VoteDetail) (*domain.MeetingResults, error) {
	sorted := make([]domain.Whisky, len(whiskies))
	copy(sorted, whiskies)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DisplayOrder < sorted[j].DisplayOrder
	})

	byWhisky := make(map[string][]domain.VoteDetail, len(sorted))
	for _, d := range details {
		if _, ok := aggs[d.WhiskyID]; !ok {
			return nil, apperrors.Internal(fmt.Errorf("vote %s references whisky %s outside meeting %s", d.ID, d.WhiskyID, meeting.ID))
		}
		byWhisky[d.WhiskyID] = append(byWhisky[d.WhiskyID], d)
	}

	out := make([]domain.WhiskyResult, 0, len(sorted))
	for _, w := range sorted {
		agg := aggs[w.ID]
		reviewers := byWhisky[w.ID]
		if len(reviewers) != agg.Count {
			return nil, apperrors.Internal(fmt.Errorf("whisky %s: %d vote details but aggregate count %d", w.ID, len(reviewers), agg.Count))
		}
		if reviewers == nil {
			reviewers = []domain.VoteDetail{}
		}
		sort.SliceStable(reviewers, func(i, j int) bool {
			if !reviewers[i].CreatedAt.Equal(reviewers[j].CreatedAt) {
				return reviewers[i].CreatedAt.After(reviewers[j].CreatedAt)
			}
			return reviewers[i].ID > reviewers[j].ID
		})

		out = append(out, domain.WhiskyResult{
			ID:          w.ID,
			Name:        w.Name,
			Description: w.Description,
			Image:       w.ImageURL,
			Order:       w.DisplayOrder,
			Quaich:      w.Quaich,
			Average:     agg.Average,
			Count:       agg.Count,
			Min:         agg.Min,
			Max:         agg.Max,
			Reviewers:   reviewers,
		})
	}

	return &domain.MeetingResults{
		MeetingID:     meeting.ID,
		MeetingName:   meeting.Location,
		MeetingDate:   meeting.Date,
		MeetingQuaich: meeting.QuaichWhiskyID,
		MeetingStatus: meeting.Status,
		Whiskies:      out,
	}, nil
}
