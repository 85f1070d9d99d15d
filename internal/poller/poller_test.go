package poller

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/zerodha/snmp-lama/internal/snmp"
	"github.com/zerodha/snmp-lama/pkg/models"
)

type fakeFetcher struct {
	samples map[string]models.RawSample
	fail    map[string]error
	block   map[string]bool
}

func (f *fakeFetcher) Walk(ctx context.Context, root string) (models.RawSample, error) {
	if f.block[root] {
		<-ctx.Done()
		return nil, &snmp.TransportError{Root: root, Target: "fake", Err: ctx.Err()}
	}
	if err, ok := f.fail[root]; ok {
		return nil, &snmp.TransportError{Root: root, Target: "fake", Err: err}
	}
	return f.samples[root], nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var roots = map[models.Section]string{
	models.SectionLoad:    "1.3.6.1.4.1.2021.10",
	models.SectionDisk:    "1.3.6.1.4.1.2021.9",
	models.SectionProcess: "1.3.6.1.4.1.2021.2",
}

func TestPollIsolatesFailures(t *testing.T) {
	f := &fakeFetcher{
		samples: map[string]models.RawSample{
			"1.3.6.1.4.1.2021.10": {"1.3.6.1.4.1.2021.10.1.2.1": "Load-1"},
			"1.3.6.1.4.1.2021.2":  {},
		},
		fail: map[string]error{"1.3.6.1.4.1.2021.9": errors.New("authentication failure")},
	}
	p := New(discard(), f, roots, Opts{Timeout: time.Second, Concurrency: 2})

	snap := p.Poll(context.Background(), models.SectionLoad, models.SectionDisk, models.SectionProcess, models.SectionExec)

	s, err := snap.Get(models.SectionLoad)
	require.NoError(t, err)
	assert.Equal(t, "Load-1", s["1.3.6.1.4.1.2021.10.1.2.1"])

	s, err = snap.Get(models.SectionProcess)
	require.NoError(t, err)
	assert.Empty(t, s)

	_, err = snap.Get(models.SectionDisk)
	var te *snmp.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "1.3.6.1.4.1.2021.9", te.Root)

	_, err = snap.Get(models.SectionExec)
	assert.ErrorIs(t, err, models.ErrNotFetched)
}

func TestPollTimeoutIsPerSection(t *testing.T) {
	f := &fakeFetcher{
		samples: map[string]models.RawSample{
			"1.3.6.1.4.1.2021.10": {"a": "b"},
		},
		block: map[string]bool{"1.3.6.1.4.1.2021.9": true},
	}
	p := New(discard(), f, roots, Opts{Timeout: 50 * time.Millisecond})

	start := time.Now()
	snap := p.Poll(context.Background(), models.SectionLoad, models.SectionDisk)
	assert.Less(t, time.Since(start), 5*time.Second)

	_, err := snap.Get(models.SectionLoad)
	assert.NoError(t, err)
	_, err = snap.Get(models.SectionDisk)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
