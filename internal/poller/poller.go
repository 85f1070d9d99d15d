package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zerodha/snmp-lama/internal/snmp"
	"github.com/zerodha/snmp-lama/pkg/models"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
)

type Opts struct {
	// Timeout bounds each section walk.
	Timeout time.Duration
	// Concurrency caps the number of simultaneous walks. Zero is unlimited.
	Concurrency int
}

// Poller fetches the sections of one polling cycle.
type Poller struct {
	lo      *slog.Logger
	opts    Opts
	fetcher snmp.Fetcher
	roots   map[models.Section]string
}

// New returns a poller walking roots through fetcher.
func New(lo *slog.Logger, fetcher snmp.Fetcher, roots map[models.Section]string, opts Opts) *Poller {
	return &Poller{
		lo:      lo,
		opts:    opts,
		fetcher: fetcher,
		roots:   roots,
	}
}

// Poll walks every requested section concurrently. A failed walk is
// recorded against its own section and never cancels the others.
func (p *Poller) Poll(ctx context.Context, sections ...models.Section) models.Snapshot {
	var (
		mu   sync.Mutex
		snap = models.Snapshot{
			Samples: make(map[models.Section]models.RawSample, len(sections)),
			Errors:  make(map[models.Section]error),
		}
		g errgroup.Group
	)
	if p.opts.Concurrency > 0 {
		g.SetLimit(p.opts.Concurrency)
	}

	for _, sec := range sections {
		sec := sec
		root, ok := p.roots[sec]
		if !ok {
			mu.Lock()
			snap.Errors[sec] = fmt.Errorf("%w: no root configured for %s", models.ErrNotFetched, sec)
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			s, err := p.fetch(ctx, sec, root)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				snap.Errors[sec] = err
				return nil
			}
			snap.Samples[sec] = s
			return nil
		})
	}
	_ = g.Wait()

	return snap
}

func (p *Poller) fetch(ctx context.Context, sec models.Section, root string) (models.RawSample, error) {
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	s, err := p.fetcher.Walk(ctx, root)
	if err != nil {
		p.lo.Error("section fetch failed", "section", sec, "root", root, "error", err)
		return nil, err
	}
	p.lo.Debug("section fetched", "section", sec, "oids", len(s), "duration", time.Since(start))
	return s, nil
}
