package opt

import (
	"time"

	"fleetopt/internal/model"
)

// Params carries every tunable constant of the cost model and the savings
// baselines. These represent an assumed manual-planning comparator and need
// real calibration data; they are configuration, never embedded literals.
type Params struct {
	AvgSpeedKmh      float64
	FuelPricePerL    float64
	BaselineBudget   float64
	CO2SavedRatio    float64 // fraction of realized CO2 counted as saved vs manual planning
	OnTimeImprovePct float64
	TimeBudget       time.Duration
}

// DefaultParams mirrors the assumptions the savings metrics were originally
// quoted against.
func DefaultParams() Params {
	return Params{
		AvgSpeedKmh:      50,
		FuelPricePerL:    100,
		BaselineBudget:   150000,
		CO2SavedRatio:    0.8,
		OnTimeImprovePct: 5.0,
		TimeBudget:       2 * time.Second,
	}
}

// vehicleTypeMultiplier scales fuel cost per vehicle class. Unlisted types
// pay no surcharge (x1.0).
var vehicleTypeMultiplier = map[model.VehicleType]float64{
	model.VehicleTruck:        1.2,
	model.VehicleVan:          1.0,
	model.VehicleBike:         0.8,
	model.VehicleRefrigerated: 1.5,
}

// priorityMultiplier scales cost per service tier. Unlisted tiers pay no
// surcharge (x1.0).
var priorityMultiplier = map[model.Priority]float64{
	model.PriorityExpress:  1.5,
	model.PriorityStandard: 1.2,
	model.PriorityEconomy:  1.0,
}

func typeMult(t model.VehicleType) float64 {
	if m, ok := vehicleTypeMultiplier[t]; ok {
		return m
	}
	return 1.0
}

func prioMult(p model.Priority) float64 {
	if m, ok := priorityMultiplier[p]; ok {
		return m
	}
	return 1.0
}
