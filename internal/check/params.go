package check

import (
	"fmt"
	"strings"

	"github.com/zerodha/snmp-lama/pkg/models"
)

// Levels are percentage thresholds. A zero level is disabled.
type Levels struct {
	Warn float64 `koanf:"warning" json:"warning"`
	Crit float64 `koanf:"critical" json:"critical"`
}

// EntityParams turn the informational VM/node/volume report into a gate.
// With no ExpectedStates every entity is OK.
type EntityParams struct {
	ExpectedStates []string `koanf:"expected_states"`
	MismatchState  string   `koanf:"mismatch_state"`
}

// Params are the per-check thresholds.
type Params struct {
	LoadCeiling       float64      `koanf:"load_ceiling"`
	MinDiskAvail      int64        `koanf:"min_disk_avail"`
	RequiredProcesses []string     `koanf:"required_processes"`
	ExecErrorPattern  string       `koanf:"exec_error_pattern"`
	Storage           Levels       `koanf:"storage"`
	VCPU              Levels       `koanf:"vcpu"`
	Entity            EntityParams `koanf:"entity"`

	// StrictUnknown lets an UNKNOWN sub-result outrank OK and WARNING in
	// composite mode.
	StrictUnknown bool `koanf:"strict_unknown"`
}

// DefaultParams returns the reference thresholds.
func DefaultParams() Params {
	return Params{
		LoadCeiling:       12.0,
		MinDiskAvail:      10000,
		RequiredProcesses: []string{"mountd", "ntalkd", "sendmail"},
		ExecErrorPattern:  "error",
		Storage:           Levels{Warn: 80, Crit: 90},
		Entity:            EntityParams{MismatchState: "warning"},
	}
}

// Validate reports the first inconsistent parameter.
func (p Params) Validate() error {
	if p.LoadCeiling <= 0 {
		return fmt.Errorf("load_ceiling must be positive, got %v", p.LoadCeiling)
	}
	if p.MinDiskAvail < 0 {
		return fmt.Errorf("min_disk_avail must not be negative, got %d", p.MinDiskAvail)
	}
	if p.ExecErrorPattern == "" {
		return fmt.Errorf("exec_error_pattern must not be empty")
	}
	for name, l := range map[string]Levels{"storage": p.Storage, "vcpu": p.VCPU} {
		if l.Warn < 0 || l.Crit < 0 {
			return fmt.Errorf("%s levels must not be negative", name)
		}
		if l.Warn > 0 && l.Crit > 0 && l.Warn > l.Crit {
			return fmt.Errorf("%s warning level %v is above critical %v", name, l.Warn, l.Crit)
		}
	}
	if _, err := ParseState(p.Entity.MismatchState); err != nil {
		return fmt.Errorf("entity.mismatch_state: %w", err)
	}
	return nil
}

// ParseState parses a state name such as "warning" or "CRIT".
func ParseState(s string) (models.State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ok", "0":
		return models.StateOK, nil
	case "warning", "warn", "1":
		return models.StateWarning, nil
	case "critical", "crit", "2":
		return models.StateCritical, nil
	case "unknown", "3":
		return models.StateUnknown, nil
	}
	return models.StateUnknown, fmt.Errorf("invalid state %q", s)
}
