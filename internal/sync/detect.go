package sync

import (
	"maps"
	"slices"

	"github.com/njoerd114/possync/internal/model"
)

// Decision is the Detector's verdict for one incoming record.
type Decision int

const (
	DecisionSkip Decision = iota
	DecisionInsert
	DecisionUpdate
)

func (d Decision) String() string {
	switch d {
	case DecisionInsert:
		return "insert"
	case DecisionUpdate:
		return "update"
	default:
		return "skip"
	}
}

// DefaultSignificantFields lists, per entity type, the fields compared even
// when the remote timestamp has not moved.
func DefaultSignificantFields() map[model.EntityType][]model.Field {
	return map[model.EntityType][]model.Field{
		model.EntityCategories: {model.FieldName, model.FieldParent, model.FieldColor},
		model.EntityItems:      {model.FieldName, model.FieldPrice, model.FieldParent},
		model.EntityCustomers:  {model.FieldName, model.FieldEmail, model.FieldPhone},
		model.EntityReceipts:   {model.FieldTotal},
	}
}

// Detector decides whether an incoming record must be written.
type Detector struct {
	significant map[model.EntityType][]model.Field
}

// NewDetector creates a Detector from the default policy. Each entity type
// present in overrides replaces the default list for that type.
func NewDetector(overrides map[model.EntityType][]model.Field) *Detector {
	policy := DefaultSignificantFields()
	for entity, fields := range overrides {
		policy[entity] = slices.Clone(fields)
	}
	return &Detector{significant: policy}
}

// Policy returns a copy of the effective significant-field policy.
func (d *Detector) Policy() map[model.EntityType][]model.Field {
	out := maps.Clone(d.significant)
	for k, v := range out {
		out[k] = slices.Clone(v)
	}
	return out
}

// Decide compares the stored record with the incoming one. A missing
// existing record is an insert. A moved timestamp is an update. An equal
// timestamp still yields an update when any significant field differs.
func (d *Detector) Decide(existing, incoming *model.Record) Decision {
	if existing == nil {
		return DecisionInsert
	}
	if !existing.ModifiedAt.Equal(incoming.ModifiedAt) {
		return DecisionUpdate
	}
	for _, f := range d.significant[incoming.Entity] {
		was, _ := existing.FieldValue(f)
		now, _ := incoming.FieldValue(f)
		if was != now {
			return DecisionUpdate
		}
	}
	return DecisionSkip
}

// NeedsWrite reports whether Decide would write the record.
func (d *Detector) NeedsWrite(existing, incoming *model.Record) bool {
	return d.Decide(existing, incoming) != DecisionSkip
}
