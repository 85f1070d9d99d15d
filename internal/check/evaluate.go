package check

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zerodha/snmp-lama/internal/extract"
	"github.com/zerodha/snmp-lama/pkg/models"
	"golang.org/x/exp/slices"
)

// Load is CRITICAL if any load average exceeds ceiling.
func Load(loads models.Loads, ceiling float64) models.Result {
	var (
		metrics = make([]models.Metric, 0, len(loads.Samples))
		parts   = make([]string, 0, len(loads.Samples))
	)
	for _, l := range loads.Samples {
		metrics = append(metrics, models.Metric{
			Name:  strings.ToLower(strings.ReplaceAll(l.Name, "-", "")),
			Value: l.Value,
			Crit:  ptr(ceiling),
		})
		parts = append(parts, l.Name+"="+formatFloat(l.Value))
	}

	for _, l := range loads.Samples {
		if l.Value > ceiling {
			return models.Result{
				State:   models.StateCritical,
				Summary: fmt.Sprintf("Load too high: %s > %s", formatFloat(l.Value), formatFloat(ceiling)),
				Metrics: metrics,
			}
		}
	}

	if len(loads.Invalid) > 0 {
		return models.Result{
			State:   models.StateUnknown,
			Summary: "Unparsable load values: " + strings.Join(loads.Invalid, ", "),
			Metrics: metrics,
		}
	}

	if len(parts) == 0 {
		parts = append(parts, "none")
	}
	return models.Result{
		State:   models.StateOK,
		Summary: "Load values: " + strings.Join(parts, ", "),
		Metrics: metrics,
	}
}

// Disk is CRITICAL on the first disk with less than floor bytes available.
func Disk(disks []models.DiskSample, floor int64) models.Result {
	for _, d := range disks {
		if d.AvailableBytes < floor {
			return models.Result{
				State:   models.StateCritical,
				Summary: fmt.Sprintf("Low space on %s: %d bytes", d.Path, d.AvailableBytes),
			}
		}
	}
	return models.Result{State: models.StateOK, Summary: "All disks have enough space"}
}

// Usage computes used/total as a percentage and applies levels. The percent
// metric is always emitted with the levels as its bounds.
func Usage(label, unit, metric string, u models.UsageSample, l Levels) models.Result {
	if u.Total == 0 {
		return models.Unknown("Total %s reported as 0%s", label, unit)
	}

	var (
		pct   = float64(u.Used) * 100 / float64(u.Total)
		state = models.StateOK
	)
	switch {
	case l.Crit > 0 && pct >= l.Crit:
		state = models.StateCritical
	case l.Warn > 0 && pct >= l.Warn:
		state = models.StateWarning
	}

	m := models.Metric{Name: metric, Value: pct}
	if l.Warn > 0 {
		m.Warn = ptr(l.Warn)
	}
	if l.Crit > 0 {
		m.Crit = ptr(l.Crit)
	}

	return models.Result{
		State:   state,
		Summary: fmt.Sprintf("Used %d%s of %d%s (%.1f%%)", u.Used, unit, u.Total, unit, pct),
		Metrics: []models.Metric{m},
	}
}

// Processes is CRITICAL listing every required process not observed.
func Processes(observed models.ProcessSet, required []string) models.Result {
	var missing []string
	for _, name := range required {
		if !observed.Has(name) && !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return models.Result{
			State:   models.StateCritical,
			Summary: "Missing processes: " + strings.Join(missing, ", "),
		}
	}
	return models.Result{State: models.StateOK, Summary: "All required processes are running"}
}

// Execs is CRITICAL on the first output containing pattern, case-insensitively.
func Execs(execs []models.ExecResult, pattern string) models.Result {
	needle := strings.ToLower(pattern)
	for _, e := range execs {
		if strings.Contains(strings.ToLower(e.Output), needle) {
			return models.Result{
				State:   models.StateCritical,
				Summary: fmt.Sprintf("Error in %s: %s", e.Name, e.Output),
			}
		}
	}
	return models.Result{State: models.StateOK, Summary: "All custom outputs are fine"}
}

// Memory reports the available memory.
func Memory(gb int64) models.Result {
	return models.Result{
		State:   models.StateOK,
		Summary: fmt.Sprintf("%d GB available", gb),
		Metrics: []models.Metric{{Name: "memory_available_gb", Value: float64(gb)}},
	}
}

// Alerts reports the number of alerts present.
func Alerts(a models.AlertSet) models.Result {
	return models.Result{
		State:   models.StateOK,
		Summary: fmt.Sprintf("%d alerts present", a.Count),
		Metrics: []models.Metric{{Name: "alert_count", Value: float64(a.Count)}},
	}
}

// Entity reports a VM, node or volume and its raw state. It is OK unless
// p.ExpectedStates is set and the state is not among them.
func Entity(e models.EntityInfo, p EntityParams) models.Result {
	state := "Unknown"
	if e.HasState {
		if e.Kind == models.KindVolume {
			state = e.State + "%"
		} else {
			state = "StateNum=" + e.State
		}
	}

	verb := "state"
	if e.Kind == models.KindVolume {
		verb = "sync"
	}
	res := models.Result{
		State:   models.StateOK,
		Summary: fmt.Sprintf("%s '%s' %s: %s", e.Kind, e.Name, verb, state),
	}
	if e.Kind == models.KindVolume && e.HasState {
		if v, err := strconv.ParseFloat(e.State, 64); err == nil {
			res.Metrics = []models.Metric{{Name: "volume_sync_percent", Value: v}}
		}
	}

	if len(p.ExpectedStates) == 0 {
		return res
	}
	if !e.HasState {
		res.State = models.StateUnknown
		return res
	}
	if !slices.Contains(p.ExpectedStates, e.State) {
		mismatch, err := ParseState(p.MismatchState)
		if err != nil {
			mismatch = models.StateWarning
		}
		res.State = mismatch
		res.Summary += fmt.Sprintf(" (expected %s)", strings.Join(p.ExpectedStates, ", "))
	}
	return res
}

// FromError converts an extraction or transport failure into an UNKNOWN
// result. Absent and unparsable values get distinct summaries.
func FromError(what string, err error) models.Result {
	var (
		me *extract.MissingDataError
		pe *extract.ParseError
	)
	switch {
	case errors.As(err, &me):
		return models.Unknown("%s info missing", what)
	case errors.As(err, &pe):
		return models.Unknown("Could not read %s values: %q is not a number", what, pe.Value)
	default:
		return models.Unknown("%s: %v", what, err)
	}
}

// formatFloat renders v with at least one decimal, e.g. 12 as "12.0".
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func ptr[T any](v T) *T {
	return &v
}
