package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/querydeck/querydeck/internal/history"
	"github.com/querydeck/querydeck/internal/models"
	"github.com/querydeck/querydeck/internal/pipeline"
	"github.com/querydeck/querydeck/internal/store"
	"github.com/querydeck/querydeck/pkg/scheduler"
)

// QueryService runs queries through the execution pipeline on the scheduler's
// workers and mirrors outcomes into durable history.
type QueryService struct {
	scheduler *scheduler.Scheduler
	pipeline  *pipeline.Pipeline
	ledger    *history.Ledger
	store     *store.Store
}

func NewQueryService(s *scheduler.Scheduler, p *pipeline.Pipeline, ledger *history.Ledger, st *store.Store) *QueryService {
	return &QueryService{scheduler: s, pipeline: p, ledger: ledger, store: st}
}

// Execute runs one query and blocks for its result. The returned QueryResult
// carries any failure in its Error field.
func (s *QueryService) Execute(ctx context.Context, profileID, queryText, historyKey string) *models.QueryResult {
	future := s.ExecuteAsync(ctx, profileID, queryText, historyKey)
	data, err := future.Wait(ctx)
	if err != nil {
		return models.ErrorResult(err)
	}
	result, ok := data.(*models.QueryResult)
	if !ok {
		return models.ErrorResult(context.Canceled)
	}
	return result
}

// ExecuteAsync submits the query to the worker pool. Stopping the returned
// future aborts the request only if it has not started; mid-query
// cancellation is not supported.
func (s *QueryService) ExecuteAsync(ctx context.Context, profileID, queryText, historyKey string) *scheduler.Future[any] {
	return s.scheduler.AddWork(func(workCtx context.Context) (any, error) {
		result := s.pipeline.Execute(workCtx, queryText, historyKey)
		s.persistHistory(workCtx, profileID, queryText, historyKey, result.Error)
		return result, nil
	})
}

func (s *QueryService) persistHistory(ctx context.Context, profileID, queryText, historyKey, errMsg string) {
	if s.store == nil || profileID == "" {
		return
	}
	if historyKey == "" {
		historyKey = queryText
	}
	item := models.QueryHistoryItem{
		ID:        uuid.NewString(),
		Query:     historyKey,
		Timestamp: time.Now(),
		Error:     errMsg,
	}
	// Best effort: history persistence never fails a query.
	_ = s.store.History().Save(ctx, profileID, item)
}

// History returns the in-memory ledger, most recent first.
func (s *QueryService) History() []models.QueryHistoryItem {
	return s.ledger.Items()
}

// ClearHistory empties both the ledger and the durable mirror.
func (s *QueryService) ClearHistory(ctx context.Context, profileID string) error {
	s.ledger.Clear()
	if s.store == nil || profileID == "" {
		return nil
	}
	return s.store.History().Clear(ctx, profileID)
}
