package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harrisonrobin/gitcal/pkg/log"
	"github.com/harrisonrobin/gitcal/pkg/model"
	"github.com/harrisonrobin/gitcal/pkg/synced"
)

// DefaultDelay is the pause after every commit attempt.
const DefaultDelay = 200 * time.Millisecond

// Source enumerates repositories and their commits.
type Source interface {
	ListRepositories(ctx context.Context, owner string) ([]model.Repository, error)
	// ListItems may return a partial list together with an error.
	ListItems(ctx context.Context, repo model.Repository) ([]model.Item, error)
}

// Sink writes one event to the target calendar.
type Sink interface {
	Commit(ctx context.Context, payload model.EventPayload) (string, error)
}

// Mapper turns an item into an event payload.
type Mapper interface {
	Map(item model.Item) model.EventPayload
}

// Stats summarises one run.
type Stats struct {
	Repositories int
	Items        int
	Committed    int
	Skipped      int
	Failed       int
	Malformed    int
	// RepoErrors counts repositories whose commit listing failed or stopped early.
	RepoErrors int
}

// Engine mirrors commits into a calendar, one item at a time.
type Engine struct {
	Owner  string
	Source Source
	Mapper Mapper
	Sink   Sink
	Synced synced.Set
	Delay  time.Duration
	Log    *log.Logger

	// sleep is swapped out by tests.
	sleep func(time.Duration)
}

func New(owner string, source Source, mapper Mapper, sink Sink, set synced.Set, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Discard()
	}
	return &Engine{
		Owner:  owner,
		Source: source,
		Mapper: mapper,
		Sink:   sink,
		Synced: set,
		Delay:  DefaultDelay,
		Log:    logger,
		sleep:  time.Sleep,
	}
}

// Run processes every repository of the owner. Only a failure to enumerate
// repositories or to record a committed item is returned; everything else is
// logged and counted.
func (e *Engine) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	repos, err := e.Source.ListRepositories(ctx, e.Owner)
	if err != nil {
		e.Log.Error("could not enumerate repositories", err, "owner", e.Owner)
		return stats, err
	}
	e.Log.Info("fetched repositories", "owner", e.Owner, "count", len(repos))

	for _, repo := range repos {
		stats.Repositories++

		items, err := e.Source.ListItems(ctx, repo)
		if err != nil {
			stats.RepoErrors++
			e.Log.Error("commit listing incomplete", err, "repo", repo.FullName, "kind", kindOf(err), "collected", len(items))
		}
		e.Log.Info("found commits", "repo", repo.FullName, "count", len(items))

		if err := e.syncItems(ctx, items, &stats); err != nil {
			return stats, err
		}
	}

	e.Log.Info("sync finished",
		"repositories", stats.Repositories,
		"items", stats.Items,
		"committed", stats.Committed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"malformed", stats.Malformed,
		"repo_errors", stats.RepoErrors,
	)
	return stats, nil
}

func (e *Engine) syncItems(ctx context.Context, items []model.Item, stats *Stats) error {
	for _, item := range items {
		stats.Items++

		if err := item.Validate(); err != nil {
			stats.Malformed++
			e.Log.Warn("skipping malformed item", "repo", item.Repository, "err", err)
			continue
		}
		if e.Synced.Contains(item.ID) {
			stats.Skipped++
			continue
		}

		payload := e.Mapper.Map(item)
		eventID, err := e.Sink.Commit(ctx, payload)
		if err != nil {
			stats.Failed++
			e.Log.Error("could not create event", err, "repo", item.Repository, "id", item.ID)
		} else {
			// Recorded only after the event exists, so a failed commit is
			// retried on the next run.
			if err := e.Synced.Insert(item.ID); err != nil {
				return fmt.Errorf("event %s created for %s but not recorded: %w", eventID, item.ID, err)
			}
			stats.Committed++
			e.Log.Debug("created event", "repo", item.Repository, "id", item.ID, "event", eventID)
		}

		e.pause()
	}
	return nil
}

func (e *Engine) pause() {
	if e.Delay <= 0 {
		return
	}
	sleep := e.sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	sleep(e.Delay)
}

func kindOf(err error) string {
	switch {
	case errors.Is(err, model.ErrAuth):
		return "auth"
	case errors.Is(err, model.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, model.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	default:
		return "unknown"
	}
}
