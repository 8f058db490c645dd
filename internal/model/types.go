package model

// Core domain records. Orders, vehicles and traffic samples are immutable
// inputs for the duration of one optimization run; they arrive already
// cleaned and joined from the ingestion side.

// VehicleType is the categorical vehicle class used by the cost model.
type VehicleType string

const (
    VehicleTruck        VehicleType = "Truck"
    VehicleVan          VehicleType = "Van"
    VehicleBike         VehicleType = "Bike"
    VehicleRefrigerated VehicleType = "Refrigerated"
)

// Priority is the ordered service tier of an order (Express > Standard > Economy).
type Priority string

const (
    PriorityExpress  Priority = "Express"
    PriorityStandard Priority = "Standard"
    PriorityEconomy  Priority = "Economy"
)

// Handling marks special handling requirements on an order.
type Handling string

const (
    HandlingNone        Handling = "None"
    HandlingTempControl Handling = "Temperature_Controlled"
)

// VehicleStatus gates which vehicles are eligible for assignment.
type VehicleStatus string

const (
    StatusAvailable   VehicleStatus = "Available"
    StatusOnRoute     VehicleStatus = "On_Route"
    StatusMaintenance VehicleStatus = "Maintenance"
)

type Order struct {
    ID              string   `json:"id"`
    Origin          string   `json:"origin"`
    Destination     string   `json:"destination"`
    DistanceKM      float64  `json:"distanceKm"`
    TrafficDelayMin float64  `json:"trafficDelayMin"`
    WeightKG        float64  `json:"weightKg"`
    Priority        Priority `json:"priority"`
    Handling        Handling `json:"specialHandling,omitempty"`
    // DelayRiskScore is an optional 0-100 score from the external risk
    // collaborator. The cost model does not depend on it.
    DelayRiskScore *float64 `json:"delayRiskScore,omitempty"`
}

type Vehicle struct {
    ID            string        `json:"id"`
    Type          VehicleType   `json:"type"`
    CapacityKG    float64       `json:"capacityKg"`
    FuelEffKMPerL float64       `json:"fuelEfficiencyKmPerL"`
    CO2KgPerKM    float64       `json:"co2KgPerKm"`
    Status        VehicleStatus `json:"status"`
}

// TrafficSample is the per-order congestion factor (0.15 = 15% extra time).
// Exactly one sample must exist for every order referenced in a run.
type TrafficSample struct {
    OrderID    string  `json:"orderId"`
    Congestion float64 `json:"congestion"`
}

// Assignment is one selected (order, vehicle) pairing with its annotations.
// Cost is kept exact so FleetMetrics.TotalCost reconciles with the per-row
// sum; rounding for display is the presenter's job. EstTimeMin is rounded
// to whole minutes.
type Assignment struct {
    OrderID     string      `json:"orderId"`
    VehicleID   string      `json:"vehicleId"`
    VehicleType VehicleType `json:"vehicleType"`
    Priority    Priority    `json:"priority"`
    DistanceKM  float64     `json:"distanceKm"`
    EstTimeMin  float64     `json:"estTimeMin"`
    Cost        float64     `json:"cost"`
    Origin      string      `json:"from"`
    Destination string      `json:"to"`
    CO2Kg       float64     `json:"co2Kg"`
}

// FleetMetrics is the per-run aggregate. The savings figures compare against
// a configured manual-planning baseline, not a measured one.
type FleetMetrics struct {
    TotalCost        float64 `json:"totalCost"`
    TotalCO2Kg       float64 `json:"totalCo2Kg"`
    CostSaving       float64 `json:"costSaving"`
    FuelSavedL       float64 `json:"fuelSavedL"`
    CO2SavedKg       float64 `json:"co2SavedKg"`
    OnTimeImprovePct float64 `json:"onTimeImprovePct"`
    AssignedOrders   int     `json:"assignedOrders"`
    UnassignedOrders int     `json:"unassignedOrders"`
}

// OptimizeRequest triggers one optimization run. When Orders/Vehicles/Traffic
// are present they are used as the snapshot; otherwise the stored pending
// records are used.
type OptimizeRequest struct {
    Orders       []Order         `json:"orders,omitempty"`
    Vehicles     []Vehicle       `json:"vehicles,omitempty"`
    Traffic      []TrafficSample `json:"traffic,omitempty"`
    TimeBudgetMs int             `json:"timeBudgetMs,omitempty"`
    ScoreRisk    bool            `json:"scoreRisk,omitempty"`
}

// Run is a persisted optimization result.
type Run struct {
    ID          string       `json:"id"`
    CreatedAt   string       `json:"createdAt"`
    Outcome     string       `json:"outcome"`
    Assignments []Assignment `json:"assignments"`
    Metrics     FleetMetrics `json:"metrics"`
}

type SubscriptionRequest struct {
    URL    string   `json:"url"`
    Events []string `json:"events"`
    Secret string   `json:"secret"`
}

type Subscription struct {
    ID     string   `json:"id"`
    URL    string   `json:"url"`
    Events []string `json:"events"`
    Secret string   `json:"secret,omitempty"`
}
