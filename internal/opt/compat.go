package opt

import "fleetopt/internal/model"

// CompatRule is one independent eligibility predicate over an (order, vehicle)
// pair. Rules have no side effects; a pair is a candidate only if every rule
// passes. New rules (e.g. hazmat) are appended to compatRules without touching
// existing ones.
type CompatRule func(o model.Order, v model.Vehicle) bool

var compatRules = []CompatRule{
	capacityRule,
	handlingRule,
}

// capacityRule: the order must fit the vehicle's payload.
func capacityRule(o model.Order, v model.Vehicle) bool {
	return o.WeightKG <= v.CapacityKG
}

// handlingRule: temperature-controlled cargo rides refrigerated only.
func handlingRule(o model.Order, v model.Vehicle) bool {
	if o.Handling == model.HandlingTempControl {
		return v.Type == model.VehicleRefrigerated
	}
	return true
}

// Compatible reports whether the pair passes every rule.
func Compatible(o model.Order, v model.Vehicle) bool {
	for _, rule := range compatRules {
		if !rule(o, v) {
			return false
		}
	}
	return true
}
