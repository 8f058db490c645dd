package opt

import (
	"fmt"

	"fleetopt/internal/model"
)

// Edge is a transient candidate: a compatible (order, vehicle) pair annotated
// with its computed cost and time. Edges live only for the duration of one
// optimization call. The candidate set is kept sparse — most pairs are
// incompatible, so no dense order x vehicle matrix is built.
type Edge struct {
	OrderIdx   int
	VehicleIdx int
	Cost       float64
	TimeMin    float64
}

// TrafficIndex maps order id -> congestion factor and enforces the
// one-sample-per-order contract.
type TrafficIndex map[string]float64

// BuildTrafficIndex indexes samples by order id. A duplicate sample for the
// same order is a data-contract violation.
func BuildTrafficIndex(samples []model.TrafficSample) (TrafficIndex, error) {
	idx := make(TrafficIndex, len(samples))
	for _, s := range samples {
		if _, dup := idx[s.OrderID]; dup {
			return nil, fmt.Errorf("traffic: duplicate sample for order %s", s.OrderID)
		}
		idx[s.OrderID] = s.Congestion
	}
	return idx, nil
}

// BuildCandidates produces the sparse candidate edge set: the cartesian
// product of orders x vehicles restricted to compatible pairs, each edge
// annotated via Estimate. An order without a traffic sample fails the whole
// run — defaulting to zero congestion would silently bias the cost model.
// An empty result is not an error.
func BuildCandidates(orders []model.Order, vehicles []model.Vehicle, traffic TrafficIndex, p Params) ([]Edge, error) {
	edges := []Edge{}
	for i, o := range orders {
		congestion, ok := traffic[o.ID]
		if !ok {
			return nil, fmt.Errorf("traffic: no sample for order %s", o.ID)
		}
		for j, v := range vehicles {
			if !Compatible(o, v) {
				continue
			}
			cost, timeMin := Estimate(o, v, congestion, p)
			edges = append(edges, Edge{OrderIdx: i, VehicleIdx: j, Cost: cost, TimeMin: timeMin})
		}
	}
	return edges, nil
}
