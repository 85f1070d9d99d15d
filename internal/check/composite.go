package check

import (
	"fmt"
	"strings"

	"github.com/zerodha/snmp-lama/internal/extract"
	"github.com/zerodha/snmp-lama/pkg/models"
)

// Separator joins sub-messages on the composite status line.
const Separator = " | "

// Part is one evaluator's contribution to a composite report.
type Part struct {
	Section models.Section `json:"section"`
	Result  models.Result  `json:"result"`
}

// Report is the single-service outcome of one polling cycle.
type Report struct {
	State  models.State      `json:"state"`
	Parts  []Part            `json:"parts"`
	System models.SystemInfo `json:"system"`

	// Info carries report-only values that never affect State.
	Info []models.Metric `json:"info,omitempty"`
}

// Message joins every part as "<STATE> - <summary>" in evaluation order.
func (r Report) Message() string {
	msgs := make([]string, 0, len(r.Parts))
	for _, p := range r.Parts {
		msgs = append(msgs, p.Result.State.String()+" - "+p.Result.Summary)
	}
	return strings.Join(msgs, Separator)
}

// Line renders the "<code> <message>" status line.
func (r Report) Line() string {
	return fmt.Sprintf("%d %s", int(r.State), r.Message())
}

// Aggregate folds states into one. By default UNKNOWN only wins when nothing
// else is known; with strict set it outranks OK and WARNING.
func Aggregate(strict bool, states ...models.State) models.State {
	worst := models.Worst(states...)
	if !strict || worst == models.StateCritical {
		return worst
	}
	for _, s := range states {
		if s == models.StateUnknown {
			return models.StateUnknown
		}
	}
	return worst
}

// Evaluator runs extraction and evaluation against a snapshot.
type Evaluator struct {
	ex *extract.Extractor
	p  Params
}

// NewEvaluator returns an evaluator using ex and the thresholds in p.
func NewEvaluator(ex *extract.Extractor, p Params) *Evaluator {
	return &Evaluator{ex: ex, p: p}
}

// Params returns the thresholds in use.
func (ev *Evaluator) Params() Params {
	return ev.p
}

// gating is the order in which composite sections are evaluated and reported.
var gating = []models.Section{
	models.SectionLoad,
	models.SectionDisk,
	models.SectionProcess,
	models.SectionExec,
}

// Composite evaluates load, disk, process and exec and folds them into one
// report. A section that could not be fetched contributes an UNKNOWN part.
func (ev *Evaluator) Composite(snap models.Snapshot) Report {
	var (
		r      Report
		states = make([]models.State, 0, len(gating))
	)
	for _, sec := range gating {
		res := ev.section(snap, sec)
		r.Parts = append(r.Parts, Part{Section: sec, Result: res})
		states = append(states, res.State)
	}
	r.State = Aggregate(ev.p.StrictUnknown, states...)

	// Report-only values.
	if s, err := snap.Get(models.SectionSystem); err == nil {
		r.System, _ = ev.ex.System(s)
	} else {
		r.System = models.SystemInfo{Descr: extract.Placeholder, Contact: extract.Placeholder, Location: extract.Placeholder}
	}
	if s, err := snap.Get(models.SectionInterfaces); err == nil {
		r.Info = append(r.Info, models.Metric{Name: "interfaces", Value: float64(len(ev.ex.Interfaces(s)))})
	}
	if s, err := snap.Get(models.SectionRoutes); err == nil {
		r.Info = append(r.Info, models.Metric{Name: "routes", Value: float64(len(ev.ex.Routes(s)))})
	}

	return r
}

func (ev *Evaluator) section(snap models.Snapshot, sec models.Section) models.Result {
	s, err := snap.Get(sec)
	if err != nil {
		return FromError(string(sec), err)
	}
	switch sec {
	case models.SectionLoad:
		return Load(ev.ex.Load(s), ev.p.LoadCeiling)
	case models.SectionDisk:
		return Disk(ev.ex.Disks(s), ev.p.MinDiskAvail)
	case models.SectionProcess:
		return Processes(ev.ex.Processes(s), ev.p.RequiredProcesses)
	case models.SectionExec:
		return Execs(ev.ex.Execs(s), ev.p.ExecErrorPattern)
	}
	return models.Unknown("%s: no evaluator", sec)
}
