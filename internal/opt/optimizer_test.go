package opt

import (
	"math"
	"testing"

	"fleetopt/internal/model"
)

func fixtureOrders() []model.Order {
	return []model.Order{
		{ID: "o1", Origin: "Hub-A", Destination: "Zone-1", DistanceKM: 100, WeightKG: 5, Priority: model.PriorityStandard},
		{ID: "o2", Origin: "Hub-A", Destination: "Zone-2", DistanceKM: 40, TrafficDelayMin: 10, WeightKG: 20, Priority: model.PriorityExpress},
	}
}

func fixtureVehicles() []model.Vehicle {
	return []model.Vehicle{
		{ID: "v1", Type: model.VehicleVan, CapacityKG: 50, FuelEffKMPerL: 10, CO2KgPerKM: 0.2, Status: model.StatusAvailable},
		{ID: "v2", Type: model.VehicleTruck, CapacityKG: 500, FuelEffKMPerL: 5, CO2KgPerKM: 0.5, Status: model.StatusAvailable},
	}
}

func fixtureTraffic() []model.TrafficSample {
	return []model.TrafficSample{
		{OrderID: "o1", Congestion: 0.1},
		{OrderID: "o2", Congestion: 0.25},
	}
}

func TestOptimizeEndToEnd(t *testing.T) {
	res, err := Optimize(fixtureOrders(), fixtureVehicles(), fixtureTraffic(), DefaultParams())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if res.Outcome != OutcomeOptimal {
		t.Fatalf("outcome = %v, want optimal", res.Outcome)
	}
	if len(res.Assignments) != 2 {
		t.Fatalf("got %d assignments, want 2", len(res.Assignments))
	}
	if res.Metrics.AssignedOrders != 2 || res.Metrics.UnassignedOrders != 0 {
		t.Errorf("metrics counters: %+v", res.Metrics)
	}

	// Per-row costs must reconcile exactly with the reported total.
	sum, co2 := 0.0, 0.0
	for _, a := range res.Assignments {
		sum += a.Cost
		co2 += a.CO2Kg
		if a.EstTimeMin != math.Round(a.EstTimeMin) {
			t.Errorf("EstTimeMin %v not rounded to whole minutes", a.EstTimeMin)
		}
	}
	if math.Abs(sum-res.Metrics.TotalCost) > 1e-9 {
		t.Errorf("row sum %v != TotalCost %v", sum, res.Metrics.TotalCost)
	}
	if math.Abs(co2-res.Metrics.TotalCO2Kg) > 1e-9 {
		t.Errorf("row CO2 sum %v != TotalCO2Kg %v", co2, res.Metrics.TotalCO2Kg)
	}

	p := DefaultParams()
	if math.Abs(res.Metrics.CostSaving-(p.BaselineBudget-sum)) > 1e-9 {
		t.Errorf("CostSaving = %v, want baseline - total", res.Metrics.CostSaving)
	}
	if math.Abs(res.Metrics.FuelSavedL-sum/p.FuelPricePerL) > 1e-9 {
		t.Errorf("FuelSavedL = %v", res.Metrics.FuelSavedL)
	}
	if math.Abs(res.Metrics.CO2SavedKg-co2*p.CO2SavedRatio) > 1e-9 {
		t.Errorf("CO2SavedKg = %v", res.Metrics.CO2SavedKg)
	}
	if res.Metrics.OnTimeImprovePct != p.OnTimeImprovePct {
		t.Errorf("OnTimeImprovePct = %v, want %v", res.Metrics.OnTimeImprovePct, p.OnTimeImprovePct)
	}
}

func TestOptimizeSkipsUnavailableVehicles(t *testing.T) {
	vehicles := fixtureVehicles()
	vehicles[0].Status = model.StatusMaintenance
	vehicles[1].Status = model.StatusOnRoute

	res, err := Optimize(fixtureOrders(), vehicles, fixtureTraffic(), DefaultParams())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if res.Outcome != OutcomeOptimal {
		t.Fatalf("outcome = %v, want optimal (nothing assignable is not a failure)", res.Outcome)
	}
	if len(res.Assignments) != 0 {
		t.Fatalf("unavailable vehicles must not receive orders: %+v", res.Assignments)
	}
	if res.Metrics.UnassignedOrders != 2 {
		t.Errorf("UnassignedOrders = %d, want 2", res.Metrics.UnassignedOrders)
	}
}

func TestOptimizeOverweightOrderUnassigned(t *testing.T) {
	orders := append(fixtureOrders(), model.Order{
		ID: "o3", DistanceKM: 10, WeightKG: 9999, Priority: model.PriorityStandard,
	})
	traffic := append(fixtureTraffic(), model.TrafficSample{OrderID: "o3", Congestion: 0})

	res, err := Optimize(orders, fixtureVehicles(), traffic, DefaultParams())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	for _, a := range res.Assignments {
		if a.OrderID == "o3" {
			t.Fatalf("overweight order assigned to %s", a.VehicleID)
		}
	}
	if res.Metrics.UnassignedOrders != 1 {
		t.Errorf("UnassignedOrders = %d, want 1", res.Metrics.UnassignedOrders)
	}
}

func TestOptimizeIdempotent(t *testing.T) {
	first, err := Optimize(fixtureOrders(), fixtureVehicles(), fixtureTraffic(), DefaultParams())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := Optimize(fixtureOrders(), fixtureVehicles(), fixtureTraffic(), DefaultParams())
		if err != nil {
			t.Fatalf("Optimize: %v", err)
		}
		if len(again.Assignments) != len(first.Assignments) {
			t.Fatalf("run %d produced %d assignments, first produced %d", i, len(again.Assignments), len(first.Assignments))
		}
		for j := range again.Assignments {
			if again.Assignments[j] != first.Assignments[j] {
				t.Fatalf("run %d assignment %d differs: %+v vs %+v", i, j, again.Assignments[j], first.Assignments[j])
			}
		}
	}
}

func TestOptimizeValidation(t *testing.T) {
	cases := []struct {
		name     string
		orders   []model.Order
		vehicles []model.Vehicle
		traffic  []model.TrafficSample
	}{
		{
			"missing order id",
			[]model.Order{{DistanceKM: 10}},
			fixtureVehicles(),
			nil,
		},
		{
			"non-positive distance",
			[]model.Order{{ID: "o1", DistanceKM: 0}},
			fixtureVehicles(),
			[]model.TrafficSample{{OrderID: "o1"}},
		},
		{
			"negative weight",
			[]model.Order{{ID: "o1", DistanceKM: 10, WeightKG: -1}},
			fixtureVehicles(),
			[]model.TrafficSample{{OrderID: "o1"}},
		},
		{
			"risk score out of range",
			[]model.Order{{ID: "o1", DistanceKM: 10, DelayRiskScore: ptr(120.0)}},
			fixtureVehicles(),
			[]model.TrafficSample{{OrderID: "o1"}},
		},
		{
			"zero fuel efficiency",
			fixtureOrders(),
			[]model.Vehicle{{ID: "v1", Type: model.VehicleVan, CapacityKG: 50, Status: model.StatusAvailable}},
			fixtureTraffic(),
		},
		{
			"negative congestion",
			fixtureOrders(),
			fixtureVehicles(),
			[]model.TrafficSample{{OrderID: "o1", Congestion: -0.1}, {OrderID: "o2"}},
		},
		{
			"missing traffic sample",
			fixtureOrders(),
			fixtureVehicles(),
			[]model.TrafficSample{{OrderID: "o1", Congestion: 0.1}},
		},
		{
			"duplicate traffic sample",
			fixtureOrders(),
			fixtureVehicles(),
			append(fixtureTraffic(), model.TrafficSample{OrderID: "o1", Congestion: 0.3}),
		},
	}
	for _, c := range cases {
		if _, err := Optimize(c.orders, c.vehicles, c.traffic, DefaultParams()); err == nil {
			t.Errorf("%s: expected an error", c.name)
		}
	}
}

func ptr(f float64) *float64 { return &f }
