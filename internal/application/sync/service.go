// Package sync imports recruiting trials from the clinical-trial registry
// into the local store, on demand and on a periodic schedule.
package sync

import (
	"context"
	"strings"
	"time"

	"github.com/trialsync/trialsync/internal/domain/trial"
	"github.com/trialsync/trialsync/internal/infrastructure/database/redis"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/prometheus"
	"github.com/trialsync/trialsync/internal/infrastructure/registry"
	"github.com/trialsync/trialsync/pkg/types/common"
)

// defaultStatuses is the recruitment filter applied when a request names none.
var defaultStatuses = []string{"RECRUITING", "NOT_YET_RECRUITING"}

// maxStudiesCap bounds a single sync run regardless of what the caller asks for.
const maxStudiesCap = 1000

// Service pulls studies from the registry and upserts them locally.
type Service interface {
	// SyncTrials imports studies matching the request.  Per-study failures
	// are collected, not fatal; the run continues.
	SyncTrials(ctx context.Context, req Request) (*Outcome, error)

	// SearchTrials previews normalized registry results without persisting
	// them.  Responses are served from cache when fresh.
	SearchTrials(ctx context.Context, req Request) ([]*trial.Record, error)

	// Run blocks, syncing on the configured period until the context ends.
	Run(ctx context.Context, period time.Duration, req Request)
}

// Request narrows a sync or preview run.
type Request struct {
	Condition  string   `json:"condition"`
	Statuses   []string `json:"statuses,omitempty"`
	Phases     []string `json:"phases,omitempty"`
	MaxStudies int      `json:"max_studies,omitempty"`
}

// Outcome summarizes one sync run.
type Outcome struct {
	Synced   int      `json:"synced"`
	Failed   int      `json:"failed"`
	Failures []string `json:"failures,omitempty"`
}

// StudySearcher is the slice of the registry client this service needs.
type StudySearcher interface {
	Search(ctx context.Context, q registry.SearchQuery) (*registry.SearchResponse, error)
}

// EventPublisher is the slice of the kafka producer this service publishes
// through.
type EventPublisher interface {
	PublishSync(ctx context.Context, subjectID string, payload common.Metadata) error
}

type serviceImpl struct {
	source   StudySearcher
	trials   trial.Repository
	cache    redis.Cache
	events   EventPublisher
	metrics  *prometheus.Metrics
	logger   logging.Logger
	pageSize int
	cacheTTL time.Duration
}

// Deps collects the service's collaborators.  Cache, Events, and Metrics may
// be nil.
type Deps struct {
	Source  StudySearcher
	Trials  trial.Repository
	Cache   redis.Cache
	Events  EventPublisher
	Metrics *prometheus.Metrics
	Logger  logging.Logger
}

// NewService builds the sync service.  pageSize controls registry paging;
// cacheTTL bounds preview cache freshness.
func NewService(deps Deps, pageSize int, cacheTTL time.Duration) Service {
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &serviceImpl{
		source:   deps.Source,
		trials:   deps.Trials,
		cache:    deps.Cache,
		events:   deps.Events,
		metrics:  deps.Metrics,
		logger:   deps.Logger.Named("sync"),
		pageSize: pageSize,
		cacheTTL: cacheTTL,
	}
}

func (s *serviceImpl) SyncTrials(ctx context.Context, req Request) (*Outcome, error) {
	records, err := s.fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{}
	for _, rec := range records {
		if _, err := s.trials.UpsertByTitle(ctx, rec); err != nil {
			s.logger.Warn("trial upsert failed",
				logging.String("nct_id", rec.NCTID), logging.Err(err))
			outcome.Failed++
			outcome.Failures = append(outcome.Failures, rec.NCTID+": "+err.Error())
			continue
		}
		outcome.Synced++
		if s.metrics != nil {
			s.metrics.SyncedTrials.Inc()
		}
	}

	if s.events != nil {
		payload := common.Metadata{
			"condition": req.Condition,
			"synced":    outcome.Synced,
			"failed":    outcome.Failed,
		}
		if err := s.events.PublishSync(ctx, req.Condition, payload); err != nil {
			s.logger.Warn("sync event publish failed", logging.Err(err))
		}
	}

	s.logger.Info("trial sync completed",
		logging.String("condition", req.Condition),
		logging.Int("synced", outcome.Synced),
		logging.Int("failed", outcome.Failed))
	return outcome, nil
}

func (s *serviceImpl) SearchTrials(ctx context.Context, req Request) ([]*trial.Record, error) {
	if s.cache == nil {
		return s.fetch(ctx, req)
	}

	var records []*trial.Record
	err := s.cache.GetOrSet(ctx, s.previewKey(req), &records, s.cacheTTL,
		func(ctx context.Context) (any, error) {
			return s.fetch(ctx, req)
		})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Run syncs immediately and then on every tick until ctx is cancelled.
func (s *serviceImpl) Run(ctx context.Context, period time.Duration, req Request) {
	if _, err := s.SyncTrials(ctx, req); err != nil {
		s.logger.Error("scheduled sync failed", logging.Err(err))
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SyncTrials(ctx, req); err != nil {
				s.logger.Error("scheduled sync failed", logging.Err(err))
			}
		}
	}
}

// fetch drains the registry search, page by page, into normalized records.
// Imported titles carry the NCT ID so the title upsert key stays unique
// across sponsors reusing study names.
func (s *serviceImpl) fetch(ctx context.Context, req Request) ([]*trial.Record, error) {
	statuses := req.Statuses
	if len(statuses) == 0 {
		statuses = defaultStatuses
	}
	limit := req.MaxStudies
	if limit < 1 || limit > maxStudiesCap {
		limit = maxStudiesCap
	}

	var records []*trial.Record
	pageToken := ""
	for len(records) < limit {
		resp, err := s.source.Search(ctx, registry.SearchQuery{
			Condition: req.Condition,
			Statuses:  statuses,
			Phases:    req.Phases,
			PageSize:  s.pageSize,
			PageToken: pageToken,
		})
		if err != nil {
			return nil, err
		}

		for i := range resp.Studies {
			if len(records) >= limit {
				break
			}
			rec := registry.Normalize(&resp.Studies[i])
			if rec.Title == "" && rec.NCTID == "" {
				continue
			}
			if rec.NCTID != "" && !strings.Contains(rec.Title, rec.NCTID) {
				rec.Title = strings.TrimSpace(rec.Title + " (" + rec.NCTID + ")")
			}
			records = append(records, rec)
		}

		if resp.NextPageToken == "" || len(resp.Studies) == 0 {
			break
		}
		pageToken = resp.NextPageToken
	}
	return records, nil
}

func (s *serviceImpl) previewKey(req Request) string {
	parts := []string{
		"registry:search",
		strings.ToLower(req.Condition),
		strings.Join(req.Statuses, "|"),
		strings.Join(req.Phases, "|"),
	}
	return strings.Join(parts, ":")
}
