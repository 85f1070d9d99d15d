package extract

import (
	"strconv"
	"strings"

	"github.com/zerodha/snmp-lama/internal/table"
	"github.com/zerodha/snmp-lama/pkg/models"
)

// IsEverRun reports whether the walk contains anything under the everRun
// enterprise subtree.
func (e *Extractor) IsEverRun(s models.RawSample) bool {
	root := table.Normalize(e.oids.EverRun.Root)
	for k := range s {
		k = table.Normalize(k)
		if k == root || strings.HasPrefix(k, root+".") {
			return true
		}
	}
	return false
}

// Storage returns the used/total storage in GB.
func (e *Extractor) Storage(s models.RawSample) (models.UsageSample, error) {
	return e.usage(s, "storage", e.oids.EverRun.StorageUsed, e.oids.EverRun.StorageTotal)
}

// VCPUs returns the used/total vCPU count.
func (e *Extractor) VCPUs(s models.RawSample) (models.UsageSample, error) {
	return e.usage(s, "vcpu", e.oids.EverRun.VCPUUsed, e.oids.EverRun.VCPUTotal)
}

// Memory returns the available memory in GB.
func (e *Extractor) Memory(s models.RawSample) (int64, error) {
	return scalarInt(s, "memory", e.oids.EverRun.MemAvailable)
}

func (e *Extractor) usage(s models.RawSample, what, usedOID, totalOID string) (models.UsageSample, error) {
	used, err := scalarInt(s, what+" used", usedOID)
	if err != nil {
		return models.UsageSample{}, err
	}
	total, err := scalarInt(s, what+" total", totalOID)
	if err != nil {
		return models.UsageSample{}, err
	}
	return models.UsageSample{Used: used, Total: total}, nil
}

// Entities reconstructs the VM, node or volume table. One entity is returned
// per index with a non-empty display name; the state column is optional.
func (e *Extractor) Entities(s models.RawSample, kind models.EntityKind) []models.EntityInfo {
	nameCol, stateCol, ok := e.entityColumns(kind)
	if !ok {
		return nil
	}

	var out []models.EntityInfo
	for _, r := range table.Reconstruct(s, nameCol, stateCol).Entities(nameCol) {
		name, _ := r.Get(nameCol)
		state, has := r.Get(stateCol)
		out = append(out, models.EntityInfo{
			Kind:     kind,
			Index:    r.Index,
			Name:     name,
			State:    state,
			HasState: has && state != "",
		})
	}
	return out
}

func (e *Extractor) entityColumns(kind models.EntityKind) (string, string, bool) {
	o := e.oids.EverRun
	switch kind {
	case models.KindVM:
		return o.VMName, o.VMState, true
	case models.KindNode:
		return o.NodeName, o.NodeState, true
	case models.KindVolume:
		return o.VolumeName, o.VolumeSync, true
	}
	return "", "", false
}

// Alerts counts the distinct alert indexes under the severity column.
func (e *Extractor) Alerts(s models.RawSample) models.AlertSet {
	return models.AlertSet{Count: table.Reconstruct(s, e.oids.EverRun.AlertSev).Len()}
}

// scalarInt reads an integer scalar, accepting the OID with or without the
// ".0" instance suffix.
func scalarInt(s models.RawSample, what, oid string) (int64, error) {
	raw, ok := lookup(s, oid)
	if !ok {
		raw, ok = lookup(s, oid+".0")
	}
	if !ok {
		return 0, &MissingDataError{What: what}
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, &ParseError{What: what, Value: raw, Err: err}
	}
	return v, nil
}
