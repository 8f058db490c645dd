package opt

import (
	"math"

	"fleetopt/internal/model"
)

// Aggregate turns the solver's selections into Assignment records and
// fleet-level metrics. Assignment rows keep the exact edge cost so the
// metrics total reconciles with the per-row sum; only the time estimate is
// rounded (to whole minutes).
func Aggregate(orders []model.Order, vehicles []model.Vehicle, edges []Edge, sol Solution, p Params) ([]model.Assignment, model.FleetMetrics) {
	assignments := make([]model.Assignment, 0, len(sol.Selected))
	totalCost := 0.0
	totalCO2 := 0.0
	for _, ei := range sol.Selected {
		e := edges[ei]
		o := orders[e.OrderIdx]
		v := vehicles[e.VehicleIdx]
		co2 := o.DistanceKM * v.CO2KgPerKM
		assignments = append(assignments, model.Assignment{
			OrderID:     o.ID,
			VehicleID:   v.ID,
			VehicleType: v.Type,
			Priority:    o.Priority,
			DistanceKM:  o.DistanceKM,
			EstTimeMin:  math.Round(e.TimeMin),
			Cost:        e.Cost,
			Origin:      o.Origin,
			Destination: o.Destination,
			CO2Kg:       co2,
		})
		totalCost += e.Cost
		totalCO2 += co2
	}

	metrics := model.FleetMetrics{
		TotalCost:        totalCost,
		TotalCO2Kg:       totalCO2,
		CostSaving:       p.BaselineBudget - totalCost,
		FuelSavedL:       totalCost / p.FuelPricePerL,
		CO2SavedKg:       totalCO2 * p.CO2SavedRatio,
		OnTimeImprovePct: p.OnTimeImprovePct,
		AssignedOrders:   len(assignments),
		UnassignedOrders: len(orders) - len(assignments),
	}
	return assignments, metrics
}
