package opt

import "fleetopt/internal/model"

// Result is one complete optimization outcome. Either a run returns a
// consistent assignment list plus metrics, or Optimize returns an error —
// never a partially built result.
type Result struct {
	Outcome     Outcome
	Assignments []model.Assignment
	Metrics     model.FleetMetrics
	Search      SearchMetrics
}

// Optimize runs one synchronous optimization over an input snapshot:
// availability filter, validation, candidate generation, solve, aggregate.
// The call is stateless; concurrent calls with different snapshots are
// independent. Cancellation is the time budget in Params — the arithmetic
// outside the solver is cheap and non-blocking.
func Optimize(orders []model.Order, vehicles []model.Vehicle, traffic []model.TrafficSample, p Params) (Result, error) {
	if err := ValidateInputs(orders, vehicles); err != nil {
		return Result{}, err
	}
	if err := ValidateTraffic(traffic); err != nil {
		return Result{}, err
	}

	// Availability is filtered once, before candidate generation, and not
	// revisited mid-run.
	available := make([]model.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if v.Status == model.StatusAvailable {
			available = append(available, v)
		}
	}

	idx, err := BuildTrafficIndex(traffic)
	if err != nil {
		return Result{}, err
	}
	edges, err := BuildCandidates(orders, available, idx, p)
	if err != nil {
		return Result{}, err
	}

	sol, search := Solve(edges, len(orders), len(available), p.TimeBudget)
	if sol.Outcome == OutcomeError {
		// No solution extractable: zero assignments plus a diagnostic outcome,
		// distinct from "nothing to assign".
		return Result{Outcome: OutcomeError, Search: search}, nil
	}

	assignments, metrics := Aggregate(orders, available, edges, sol, p)
	return Result{
		Outcome:     sol.Outcome,
		Assignments: assignments,
		Metrics:     metrics,
		Search:      search,
	}, nil
}
