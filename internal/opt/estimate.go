package opt

import "fleetopt/internal/model"

// Estimate computes the scalar cost and transit-time estimate for a pair
// already known to be compatible. Pure function of its inputs; the
// congestion factor comes from the order's traffic sample.
//
// Time: base drive time at the assumed average speed plus the scheduled
// delay, then scaled by (1 + congestion).
// Cost: fuel spend over the distance, scaled by the vehicle-type and
// priority multipliers. The multipliers commute, so application order does
// not matter.
func Estimate(o model.Order, v model.Vehicle, congestion float64, p Params) (cost, timeMin float64) {
	timeMin = (o.DistanceKM/p.AvgSpeedKmh)*60 + o.TrafficDelayMin
	timeMin *= 1 + congestion

	cost = o.DistanceKM * (p.FuelPricePerL / v.FuelEffKMPerL)
	cost *= typeMult(v.Type)
	cost *= prioMult(o.Priority)
	return cost, timeMin
}
