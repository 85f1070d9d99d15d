// Package inventory implements the per-entity view of an everRun host: every
// discovered VM, node and volume and a handful of whole-system values are
// separate services with their own state.
package inventory

import (
	"github.com/zerodha/snmp-lama/internal/check"
	"github.com/zerodha/snmp-lama/internal/extract"
	"github.com/zerodha/snmp-lama/pkg/models"
)

// Service is the outcome of checking one discovered service.
type Service struct {
	ID     models.ServiceID `json:"id"`
	Name   string           `json:"name"`
	Result models.Result    `json:"result"`
}

// Inventory discovers and checks everRun services.
type Inventory struct {
	ex *extract.Extractor
	p  check.Params
}

// New returns an inventory using ex and the thresholds in p.
func New(ex *extract.Extractor, p check.Params) *Inventory {
	return &Inventory{ex: ex, p: p}
}

// Discover returns the services present in s: Storage, Memory and vCPUs,
// then one per VM, node and volume in index order, then Alert Count.
// Nothing is discovered if s holds no everRun data. Entities sharing a
// display name collapse to the first index.
func (inv *Inventory) Discover(s models.RawSample) []models.ServiceID {
	if !inv.ex.IsEverRun(s) {
		return nil
	}

	out := []models.ServiceID{
		{Kind: models.KindStorage},
		{Kind: models.KindMemory},
		{Kind: models.KindVCPU},
	}
	for _, kind := range []models.EntityKind{models.KindVM, models.KindNode, models.KindVolume} {
		seen := map[string]bool{}
		for _, e := range inv.ex.Entities(s, kind) {
			if seen[e.Name] {
				continue
			}
			seen[e.Name] = true
			out = append(out, models.ServiceID{Kind: kind, Name: e.Name, Index: e.Index})
		}
	}
	return append(out, models.ServiceID{Kind: models.KindAlerts})
}

// Check evaluates one service against s.
func (inv *Inventory) Check(id models.ServiceID, s models.RawSample) models.Result {
	switch id.Kind {
	case models.KindStorage:
		u, err := inv.ex.Storage(s)
		if err != nil {
			return check.FromError("Storage", err)
		}
		return check.Usage("storage", " GB", "storage_used_percent", u, inv.p.Storage)

	case models.KindMemory:
		gb, err := inv.ex.Memory(s)
		if err != nil {
			return check.FromError("Memory", err)
		}
		return check.Memory(gb)

	case models.KindVCPU:
		u, err := inv.ex.VCPUs(s)
		if err != nil {
			return check.FromError("vCPU", err)
		}
		return check.Usage("vCPUs", "", "vcpu_used_percent", u, inv.p.VCPU)

	case models.KindAlerts:
		return check.Alerts(inv.ex.Alerts(s))

	case models.KindVM, models.KindNode, models.KindVolume:
		e, ok := inv.find(id, s)
		if !ok {
			return models.Unknown("%s '%s' not found", id.Kind, id.Name)
		}
		return check.Entity(e, inv.p.Entity)
	}

	return models.Unknown("unsupported service %s", id)
}

// CheckAll discovers every service in s and checks each independently.
func (inv *Inventory) CheckAll(s models.RawSample) []Service {
	ids := inv.Discover(s)
	out := make([]Service, 0, len(ids))
	for _, id := range ids {
		out = append(out, Service{ID: id, Name: id.String(), Result: inv.Check(id, s)})
	}
	return out
}

// find resolves id to its table row. The discovered index is tried first;
// if the row there now carries another name the table is searched by name.
func (inv *Inventory) find(id models.ServiceID, s models.RawSample) (models.EntityInfo, bool) {
	entities := inv.ex.Entities(s, id.Kind)
	if id.Index != "" {
		for _, e := range entities {
			if e.Index == id.Index && e.Name == id.Name {
				return e, true
			}
		}
	}
	for _, e := range entities {
		if e.Name == id.Name {
			return e, true
		}
	}
	return models.EntityInfo{}, false
}
