package opt

import (
	"fmt"

	"fleetopt/internal/model"
)

// ValidateInputs rejects malformed records before candidate generation so
// garbage input cannot turn into misleading near-zero costs. Raised straight
// to the caller; the core never retries.
func ValidateInputs(orders []model.Order, vehicles []model.Vehicle) error {
	for _, o := range orders {
		if o.ID == "" {
			return fmt.Errorf("order: missing id")
		}
		if o.DistanceKM <= 0 {
			return fmt.Errorf("order %s: distance must be positive, got %v", o.ID, o.DistanceKM)
		}
		if o.WeightKG < 0 {
			return fmt.Errorf("order %s: negative weight %v", o.ID, o.WeightKG)
		}
		if o.TrafficDelayMin < 0 {
			return fmt.Errorf("order %s: negative traffic delay %v", o.ID, o.TrafficDelayMin)
		}
		if o.DelayRiskScore != nil && (*o.DelayRiskScore < 0 || *o.DelayRiskScore > 100) {
			return fmt.Errorf("order %s: delay risk score out of range: %v", o.ID, *o.DelayRiskScore)
		}
	}
	for _, v := range vehicles {
		if v.ID == "" {
			return fmt.Errorf("vehicle: missing id")
		}
		if v.CapacityKG < 0 {
			return fmt.Errorf("vehicle %s: negative capacity %v", v.ID, v.CapacityKG)
		}
		if v.FuelEffKMPerL <= 0 {
			return fmt.Errorf("vehicle %s: fuel efficiency must be positive, got %v", v.ID, v.FuelEffKMPerL)
		}
		if v.CO2KgPerKM < 0 {
			return fmt.Errorf("vehicle %s: negative emission factor %v", v.ID, v.CO2KgPerKM)
		}
	}
	return nil
}

// ValidateTraffic checks congestion factors; negative multipliers would make
// transit time shrink under load.
func ValidateTraffic(samples []model.TrafficSample) error {
	for _, s := range samples {
		if s.OrderID == "" {
			return fmt.Errorf("traffic: sample missing order id")
		}
		if s.Congestion < 0 {
			return fmt.Errorf("traffic: order %s: negative congestion %v", s.OrderID, s.Congestion)
		}
	}
	return nil
}
