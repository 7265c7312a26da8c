package service

import (
	"context"
	"fmt"

	"github.com/utafrali/QuaichGo/internal/domain"
	"github.com/utafrali/QuaichGo/internal/repository"
)

// AggregationEngine computes rating aggregates from the votes table.
type AggregationEngine struct {
	reader repository.ResultsReader
}

// NewAggregationEngine creates an aggregation engine reading through reader.
func NewAggregationEngine(reader repository.ResultsReader) *AggregationEngine {
	return &AggregationEngine{reader: reader}
}

// AggregateMeeting returns an aggregate for every whisky of the meeting.
// Whiskies without votes get the zero aggregate.
func (e *AggregationEngine) AggregateMeeting(ctx context.Context, meetingID string) (map[string]domain.Aggregate, error) {
	var result map[string]domain.Aggregate

	err := e.reader.Snapshot(ctx, func(snap repository.ResultsSnapshot) error {
		if _, err := snap.Meeting(ctx, meetingID); err != nil {
			return err
		}
		whiskies, err := snap.Whiskies(ctx, meetingID)
		if err != nil {
			return err
		}
		result, err = aggregateWhiskies(ctx, snap, whiskyIDs(whiskies))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate meeting %s: %w", meetingID, err)
	}
	return result, nil
}

// AggregateWhisky returns the aggregate of one whisky.
func (e *AggregationEngine) AggregateWhisky(ctx context.Context, whiskyID string) (domain.Aggregate, error) {
	var agg domain.Aggregate

	err := e.reader.Snapshot(ctx, func(snap repository.ResultsSnapshot) error {
		if _, err := snap.Whisky(ctx, whiskyID); err != nil {
			return err
		}
		aggs, err := aggregateWhiskies(ctx, snap, []string{whiskyID})
		if err != nil {
			return err
		}
		agg = aggs[whiskyID]
		return nil
	})
	if err != nil {
		return domain.Aggregate{}, fmt.Errorf("aggregate whisky %s: %w", whiskyID, err)
	}
	return agg, nil
}

// aggregateWhiskies runs the grouped query and fills in zero aggregates for
// whiskies nobody voted for.
func aggregateWhiskies(ctx context.Context, snap repository.ResultsSnapshot, ids []string) (map[string]domain.Aggregate, error) {
	result := make(map[string]domain.Aggregate, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := snap.Aggregates(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = rows[id]
	}
	return result, nil
}

func whiskyIDs(whiskies []domain.Whisky) []string {
	ids := make([]string, len(whiskies))
	for i, w := range whiskies {
		ids[i] = w.ID
	}
	return ids
}
