package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/zerodha/snmp-lama/internal/check"
	"github.com/zerodha/snmp-lama/internal/inventory"
	"github.com/zerodha/snmp-lama/internal/metrics"
	"github.com/zerodha/snmp-lama/internal/poller"
	"github.com/zerodha/snmp-lama/internal/push"
	"github.com/zerodha/snmp-lama/pkg/models"
	"golang.org/x/exp/slog"
)

type App struct {
	lo   *slog.Logger
	opts Opts

	poller *poller.Poller
	eval   *check.Evaluator
	inv    *inventory.Inventory

	metricsMgr *metrics.Manager
	pushMgr    *push.Manager
}

type Opts struct {
	Mode           string
	Target         string
	MaxRetries     int
	RetryInterval  time.Duration
	SyncInterval   time.Duration
	MetricsAddress string
}

var (
	compositeSections = []models.Section{
		models.SectionSystem,
		models.SectionLoad,
		models.SectionDisk,
		models.SectionProcess,
		models.SectionExec,
		models.SectionInterfaces,
		models.SectionRoutes,
	}
	allSections = append(append([]models.Section{}, compositeSections...), models.SectionEverRun)
)

// RunComposite polls the host sections, prints the status line and returns
// the exit code.
func (app *App) RunComposite(ctx context.Context, w io.Writer) int {
	snap := app.poller.Poll(ctx, compositeSections...)
	rep := app.eval.Composite(snap)

	app.lo.Debug("composite evaluated", "state", rep.State, "system", rep.System.Descr)
	fmt.Fprintln(w, rep.Line())

	return int(rep.State)
}

// RunInventory polls the everRun subtree and prints one local check line per
// discovered service. The exit code is the worst service state.
func (app *App) RunInventory(ctx context.Context, w io.Writer) int {
	snap := app.poller.Poll(ctx, models.SectionEverRun)

	svcs, err := app.services(snap)
	if err != nil {
		res := check.FromError("everRun", err)
		fmt.Fprintln(w, localCheckLine(inventory.Service{Name: "everRun", Result: res}))
		return int(res.State)
	}
	if len(svcs) == 0 {
		app.lo.Warn("no everRun services discovered", "target", app.opts.Target)
	}

	states := make([]models.State, 0, len(svcs))
	for _, s := range svcs {
		fmt.Fprintln(w, localCheckLine(s))
		states = append(states, s.Result.State)
	}
	if len(states) == 0 {
		return int(models.StateOK)
	}
	return int(models.Worst(states...))
}

// Cycle polls every section once, records the outcome and returns it as a
// push payload.
func (app *App) Cycle(ctx context.Context) push.Payload {
	snap := app.poller.Poll(ctx, allSections...)
	app.metricsMgr.ObserveSnapshot(app.opts.Target, snap)

	rep := app.eval.Composite(snap)
	app.metricsMgr.ObserveReport(app.opts.Target, rep)

	p := push.Payload{
		Target:    app.opts.Target,
		Timestamp: time.Now().Unix(),
		Composite: &rep,
	}

	svcs, err := app.services(snap)
	if err != nil {
		app.lo.Error("skipping everRun services", "error", err)
		return p
	}
	app.metricsMgr.ObserveServices(app.opts.Target, svcs)
	p.Services = svcs

	return p
}

func (app *App) services(snap models.Snapshot) ([]inventory.Service, error) {
	s, err := snap.Get(models.SectionEverRun)
	if err != nil {
		return nil, err
	}
	return app.inv.CheckAll(s), nil
}

// localCheckLine renders a service as `<code> "<name>" <metrics> <summary>`.
func localCheckLine(s inventory.Service) string {
	perf := "-"
	if len(s.Result.Metrics) > 0 {
		parts := make([]string, 0, len(s.Result.Metrics))
		for _, m := range s.Result.Metrics {
			parts = append(parts, m.Name+"="+formatPerf(&m.Value)+";"+formatPerf(m.Warn)+";"+formatPerf(m.Crit))
		}
		perf = strings.Join(parts, "|")
	}

	return fmt.Sprintf("%d \"%s\" %s %s", int(s.Result.State), serviceNameReplacer.Replace(s.Name), perf, s.Result.Summary)
}

// Local check service names are read up to the next double quote with no
// escaping.
var serviceNameReplacer = strings.NewReplacer(`"`, "'", "\n", " ", "\r", " ")

func formatPerf(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
