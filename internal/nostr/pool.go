package nostr

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lumora-app/listsync/internal/common"
	"github.com/lumora-app/listsync/internal/logging"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

// PoolOptions tune the fan-out behavior. Zero values fall back to defaults.
type PoolOptions struct {
	// Timeout bounds one relay's whole fetch or publish attempt.
	Timeout time.Duration
	// Concurrency is the number of relays queried at once.
	Concurrency int
	PageSize    int
	MaxPages    int
}

func (o *PoolOptions) withDefaults() PoolOptions {
	out := *o
	if out.Timeout <= 0 {
		out.Timeout = 7 * time.Second
	}
	if out.Concurrency <= 0 {
		out.Concurrency = 3
	}
	if out.PageSize <= 0 {
		out.PageSize = 500
	}
	if out.MaxPages <= 0 {
		out.MaxPages = 10
	}
	return out
}

// Pool queries a set of relays in parallel and merges what it gets back.
// A relay that fails or times out is excluded from the result for this
// cycle; partial success is success. The pool is therefore never an
// authority on absence: a missing event only means no reachable relay
// returned it.
type Pool struct {
	relays []string
	opts   PoolOptions
	log    logging.Logger
}

func NewPool(relays []string, opts PoolOptions, log logging.Logger) *Pool {
	return &Pool{relays: relays, opts: opts.withDefaults(), log: log}
}

// FetchAll runs the filter on every relay and returns the deduplicated
// union. For replaceable events only the newest event per
// (pubkey, kind, d-tag) slot survives. The returned error is non-nil only
// when the caller's context was canceled.
func (p *Pool) FetchAll(ctx context.Context, f Filter) ([]Event, error) {
	var (
		mu  sync.Mutex
		all []Event
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	for _, url := range p.relays {
		g.Go(func() error {
			events, err := p.fetchOne(gctx, url, f)
			if err != nil {
				p.log.Warn(gctx, "relay fetch failed", "err", &common.RelayError{URL: url, Err: err})
				return nil
			}
			mu.Lock()
			all = append(all, events...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return dedupeReplaceable(all), nil
}

func (p *Pool) fetchOne(ctx context.Context, url string, f Filter) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	relay, err := Dial(ctx, url, p.log)
	if err != nil {
		return nil, err
	}
	defer relay.Close()

	return relay.Fetch(ctx, f, p.opts.PageSize, p.opts.MaxPages)
}

// PublishAll sends the event to every relay, retrying each with a short
// exponential backoff. It fails only when no relay accepted the event.
func (p *Pool) PublishAll(ctx context.Context, ev Event) error {
	var accepted int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	for _, url := range p.relays {
		g.Go(func() error {
			backoff := retry.WithMaxRetries(2, retry.NewExponential(300*time.Millisecond))
			err := retry.Do(gctx, backoff, func(ctx context.Context) error {
				return retry.RetryableError(p.publishOne(ctx, url, ev))
			})
			if err != nil {
				p.log.Warn(gctx, "relay publish failed", "err", &common.RelayError{URL: url, Err: err})
				return nil
			}
			mu.Lock()
			accepted++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if accepted == 0 && len(p.relays) > 0 {
		return &common.RelayError{URL: "all", Err: context.DeadlineExceeded}
	}
	return nil
}

func (p *Pool) publishOne(ctx context.Context, url string, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	relay, err := Dial(ctx, url, p.log)
	if err != nil {
		return err
	}
	defer relay.Close()

	return relay.Publish(ctx, ev)
}

// dedupeReplaceable keeps only the newest event per replaceable slot and
// returns the survivors newest-first.
func dedupeReplaceable(events []Event) []Event {
	newest := make(map[string]Event, len(events))
	for _, ev := range events {
		key := ev.ReplaceableKey()
		if cur, ok := newest[key]; !ok || ev.CreatedAt > cur.CreatedAt {
			newest[key] = ev
		}
	}

	out := make([]Event, 0, len(newest))
	for _, ev := range newest {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out
}
