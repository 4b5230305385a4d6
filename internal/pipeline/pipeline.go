// Package pipeline executes one query string against whichever engine is
// current, normalizes the raw result, records the outcome in the history
// ledger and refreshes the schema after DDL.
package pipeline

import (
	"context"
	"regexp"

	"go.uber.org/zap"

	"github.com/querydeck/querydeck/internal/engine"
	"github.com/querydeck/querydeck/internal/history"
	"github.com/querydeck/querydeck/internal/models"
	"github.com/querydeck/querydeck/internal/normalize"
	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

// ddlPattern matches statements that change the schema and therefore require
// a refresh before the next schema read.
var ddlPattern = regexp.MustCompile(`(?i)^\s*(CREATE|ALTER|DROP|ATTACH)\b`)

// EngineSource resolves the currently selected engine.
type EngineSource interface {
	Current() (*engine.Handle, models.ConnectionDescriptor, error)
}

// RemoteExecutor posts one query to a remote engine and returns the raw body.
type RemoteExecutor interface {
	Execute(ctx context.Context, query string) ([]byte, error)
}

// RemoteFactory builds a protocol client for a remote descriptor.
type RemoteFactory func(models.ConnectionDescriptor) RemoteExecutor

// Pipeline is the top-level query orchestrator.
type Pipeline struct {
	log       *zap.SugaredLogger
	engines   EngineSource
	ledger    *history.Ledger
	refresher engine.Refresher
	remoteFor RemoteFactory
}

// New builds a pipeline. A nil remoteFor means the real protocol client.
func New(engines EngineSource, ledger *history.Ledger, refresher engine.Refresher, remoteFor RemoteFactory) *Pipeline {
	if remoteFor == nil {
		remoteFor = func(desc models.ConnectionDescriptor) RemoteExecutor {
			return engine.NewRemoteClient(desc)
		}
	}
	return &Pipeline{
		log:       zap.S().Named("pipeline"),
		engines:   engines,
		ledger:    ledger,
		refresher: refresher,
		remoteFor: remoteFor,
	}
}

// Execute runs one query against the current engine. Failures never surface
// as errors: the caller always receives a QueryResult, with Error populated
// on failure, so there is always a uniform object to render. historyKey
// overrides the text recorded in the ledger; empty means the query text.
func (p *Pipeline) Execute(ctx context.Context, queryText string, historyKey string) *models.QueryResult {
	if historyKey == "" {
		historyKey = queryText
	}

	result, err := p.run(ctx, queryText)
	if err != nil {
		p.log.Debugw("query failed", "error", err)
		p.ledger.Record(historyKey, err.Error())
		return models.ErrorResult(err)
	}
	p.ledger.Record(historyKey, "")

	if ddlPattern.MatchString(queryText) {
		// Awaited so the next schema read never sees a stale listing.
		if p.refresher != nil {
			if err := p.refresher.Refresh(ctx); err != nil {
				p.log.Warnw("schema refresh after DDL failed", "error", err)
			}
		}
	}
	return result
}

func (p *Pipeline) run(ctx context.Context, queryText string) (*models.QueryResult, error) {
	handle, desc, err := p.engines.Current()
	if err != nil {
		return nil, err
	}

	if desc.Scope == models.ScopeRemote {
		body, err := p.remoteFor(desc).Execute(ctx, queryText)
		if err != nil {
			return nil, err
		}
		return normalize.RemoteBody(body)
	}

	if handle == nil || handle.DB == nil {
		return nil, srvErrors.NewConnectionInvalidError("no live engine handle")
	}
	rows, err := handle.DB.QueryContext(ctx, queryText)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return normalize.LocalRows(rows)
}
