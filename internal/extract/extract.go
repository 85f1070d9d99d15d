package extract

import (
	"strconv"
	"strings"

	"github.com/zerodha/snmp-lama/internal/table"
	"github.com/zerodha/snmp-lama/pkg/models"
)

// Placeholder is reported for system identity fields the agent did not return.
const Placeholder = "Unknown"

// loadLabels are the laNames entries net-snmp reports.
var loadLabels = map[string]bool{"Load-1": true, "Load-5": true, "Load-15": true}

// Extractor turns raw walks into typed domain values. Every method is pure
// and tolerant of missing keys.
type Extractor struct {
	oids OIDs
}

// New returns an extractor reading the given OIDs.
func New(oids OIDs) *Extractor {
	return &Extractor{oids: oids}
}

// OIDs returns the object identifiers in use.
func (e *Extractor) OIDs() OIDs {
	return e.oids
}

// System returns sysDescr, sysContact and sysLocation. Absent fields are set
// to Placeholder and reported through a MissingDataError naming them.
func (e *Extractor) System(s models.RawSample) (models.SystemInfo, error) {
	var (
		info    models.SystemInfo
		missing []string
	)
	for _, f := range []struct {
		name string
		oid  string
		dst  *string
	}{
		{"sysDescr", e.oids.SysDescr, &info.Descr},
		{"sysContact", e.oids.SysContact, &info.Contact},
		{"sysLocation", e.oids.SysLocation, &info.Location},
	} {
		v, ok := lookup(s, f.oid)
		if !ok {
			*f.dst = Placeholder
			missing = append(missing, f.name)
			continue
		}
		*f.dst = v
	}
	if len(missing) > 0 {
		return info, &MissingDataError{What: strings.Join(missing, ", ")}
	}
	return info, nil
}

// Load returns the Load-1/5/15 averages found in the load table.
func (e *Extractor) Load(s models.RawSample) models.Loads {
	var (
		out  models.Loads
		tbl  = table.Reconstruct(s, e.oids.LoadNames, e.oids.LoadValues)
		seen = map[string]bool{}
	)
	for _, r := range tbl.Entities(e.oids.LoadNames) {
		name, _ := r.Get(e.oids.LoadNames)
		if !loadLabels[name] || seen[name] {
			continue
		}
		seen[name] = true

		raw, ok := r.Get(e.oids.LoadValues)
		if !ok {
			out.Invalid = append(out.Invalid, name)
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			out.Invalid = append(out.Invalid, name)
			continue
		}
		out.Samples = append(out.Samples, models.LoadSample{Name: name, Value: v})
	}
	return out
}

// Disks returns (path, available) pairs in table order. Rows whose
// availability is absent or not an integer are skipped.
func (e *Extractor) Disks(s models.RawSample) []models.DiskSample {
	var out []models.DiskSample
	tbl := table.Reconstruct(s, e.oids.DiskPath, e.oids.DiskAvail)
	for _, r := range tbl.Entities(e.oids.DiskPath) {
		path, _ := r.Get(e.oids.DiskPath)
		raw, ok := r.Get(e.oids.DiskAvail)
		if !ok {
			continue
		}
		avail, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, models.DiskSample{Path: path, AvailableBytes: avail})
	}
	return out
}

// Processes returns the set of process names in the process table.
func (e *Extractor) Processes(s models.RawSample) models.ProcessSet {
	out := models.ProcessSet{}
	for _, name := range e.column(s, e.oids.ProcNames) {
		out[name] = struct{}{}
	}
	return out
}

// Execs pairs exec names with their output by index. Rows missing either
// half are dropped.
func (e *Extractor) Execs(s models.RawSample) []models.ExecResult {
	var out []models.ExecResult
	tbl := table.Reconstruct(s, e.oids.ExecNames, e.oids.ExecOutput)
	for _, r := range tbl.Entities(e.oids.ExecNames) {
		output, ok := r.Get(e.oids.ExecOutput)
		if !ok {
			continue
		}
		name, _ := r.Get(e.oids.ExecNames)
		out = append(out, models.ExecResult{Name: name, Output: output})
	}
	return out
}

// Interfaces returns ifDescr values in index order.
func (e *Extractor) Interfaces(s models.RawSample) []string {
	return e.column(s, e.oids.IfDescr)
}

// Routes returns ipRouteDest values in index order.
func (e *Extractor) Routes(s models.RawSample) []string {
	return e.column(s, e.oids.RouteDest)
}

// column returns the non-empty values of a single column in index order.
func (e *Extractor) column(s models.RawSample, col string) []string {
	var out []string
	for _, r := range table.Reconstruct(s, col).Entities(col) {
		v, _ := r.Get(col)
		out = append(out, v)
	}
	return out
}

// lookup finds a scalar by exact OID, ignoring leading dots on either side.
func lookup(s models.RawSample, oid string) (string, bool) {
	oid = table.Normalize(oid)
	if v, ok := s[oid]; ok {
		return v, true
	}
	v, ok := s["."+oid]
	return v, ok
}
