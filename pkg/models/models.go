package models

import (
	"errors"
	"fmt"
	"strings"
)

// RawSample is the result of walking one OID subtree. Keys are OIDs without
// a leading dot, values are the textual rendering of the varbind.
type RawSample map[string]string

// State is a monitoring-plugin health state.
type State int

const (
	StateOK State = iota
	StateWarning
	StateCritical
	StateUnknown
)

func (s State) String() string {
	switch s {
	case StateOK:
		return "OK"
	case StateWarning:
		return "WARNING"
	case StateCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Worst returns the highest of OK < WARNING < CRITICAL among states.
// UNKNOWN never escalates a known state; it is only returned when no
// other signal exists.
func Worst(states ...State) State {
	var (
		worst = StateOK
		known = false
	)
	for _, s := range states {
		if s == StateUnknown {
			continue
		}
		known = true
		if s > worst {
			worst = s
		}
	}
	if !known {
		return StateUnknown
	}
	return worst
}

// Metric is a named numeric value with optional warning/critical bounds.
type Metric struct {
	Name  string   `json:"name"`
	Value float64  `json:"value"`
	Warn  *float64 `json:"warn,omitempty"`
	Crit  *float64 `json:"crit,omitempty"`
}

// Result is the outcome of evaluating one check.
type Result struct {
	State   State    `json:"state"`
	Summary string   `json:"summary"`
	Metrics []Metric `json:"metrics,omitempty"`
}

// Unknown is a shorthand for an UNKNOWN result.
func Unknown(format string, args ...any) Result {
	return Result{State: StateUnknown, Summary: fmt.Sprintf(format, args...)}
}

// SystemInfo holds the MIB-2 system group identity.
type SystemInfo struct {
	Descr    string `json:"descr"`
	Contact  string `json:"contact"`
	Location string `json:"location"`
}

// LoadSample is one load average entry, e.g. Load-5.
type LoadSample struct {
	Name  string
	Value float64
}

// Loads holds the parsed load averages in table order. Invalid lists the
// labels whose value could not be parsed.
type Loads struct {
	Samples []LoadSample
	Invalid []string
}

// DiskSample is the available space on one mount path.
type DiskSample struct {
	Path           string
	AvailableBytes int64
}

// ProcessSet is the set of process names reported by the agent.
type ProcessSet map[string]struct{}

// Has reports whether name is present.
func (p ProcessSet) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// ExecResult is the captured output of one agent-side exec entry.
type ExecResult struct {
	Name   string
	Output string
}

// UsageSample is a used/total pair such as storage or vCPUs.
type UsageSample struct {
	Used  int64
	Total int64
}

// AlertSet is the set of alerts present on a host.
type AlertSet struct {
	Count int
}

// EntityKind identifies what a discovered service represents.
type EntityKind int

const (
	KindStorage EntityKind = iota
	KindMemory
	KindVCPU
	KindAlerts
	KindVM
	KindNode
	KindVolume
)

var kindNames = map[EntityKind]string{
	KindStorage: "Storage",
	KindMemory:  "Memory",
	KindVCPU:    "vCPUs",
	KindAlerts:  "Alert Count",
	KindVM:      "VM",
	KindNode:    "Node",
	KindVolume:  "Volume",
}

func (k EntityKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("EntityKind(%d)", int(k))
}

// IsTable reports whether services of this kind are discovered per table row.
func (k EntityKind) IsTable() bool {
	return k == KindVM || k == KindNode || k == KindVolume
}

// EntityInfo is one reconstructed inventory row. State is the verbatim value
// of the paired state/sync column and is only meaningful if HasState is set.
type EntityInfo struct {
	Kind     EntityKind
	Index    string
	Name     string
	State    string
	HasState bool
}

// ServiceID addresses one service produced by discovery. Index is the table
// index the entity was found at and is empty for whole-system services.
type ServiceID struct {
	Kind  EntityKind `json:"kind"`
	Name  string     `json:"name,omitempty"`
	Index string     `json:"index,omitempty"`
}

// String renders the display name, e.g. "Storage" or "VM: db1".
func (s ServiceID) String() string {
	if s.Kind.IsTable() {
		return s.Kind.String() + ": " + s.Name
	}
	return s.Kind.String()
}

// ParseServiceID parses a display name produced by ServiceID.String. The
// returned ID carries no index.
func ParseServiceID(s string) (ServiceID, error) {
	for k, n := range kindNames {
		if k.IsTable() {
			if name, ok := strings.CutPrefix(s, n+": "); ok && name != "" {
				return ServiceID{Kind: k, Name: name}, nil
			}
			continue
		}
		if s == n {
			return ServiceID{Kind: k}, nil
		}
	}
	return ServiceID{}, fmt.Errorf("unknown service %q", s)
}

// Section names one independently fetched OID subtree.
type Section string

const (
	SectionSystem     Section = "system"
	SectionLoad       Section = "load"
	SectionDisk       Section = "disk"
	SectionProcess    Section = "process"
	SectionExec       Section = "exec"
	SectionInterfaces Section = "interfaces"
	SectionRoutes     Section = "routes"
	SectionEverRun    Section = "everrun"
)

// Snapshot holds every section fetched in one polling cycle. A section is
// either in Samples or in Errors, never both.
type Snapshot struct {
	Samples map[Section]RawSample
	Errors  map[Section]error
}

// Get returns the sample for section, or the error that prevented fetching
// it. A section that was never requested yields ErrNotFetched.
func (s Snapshot) Get(section Section) (RawSample, error) {
	if err, ok := s.Errors[section]; ok {
		return nil, err
	}
	if sample, ok := s.Samples[section]; ok {
		return sample, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFetched, section)
}

// ErrNotFetched is returned by Snapshot.Get for sections not polled this cycle.
var ErrNotFetched = errors.New("section not fetched")
