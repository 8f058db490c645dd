package api

import (
	"fmt"
	"time"

	"fleetopt/internal/model"
	"fleetopt/internal/opt"
)

func validateOptimizeRequest(req *model.OptimizeRequest) error {
	if req.TimeBudgetMs < 0 {
		return fmt.Errorf("timeBudgetMs must be >= 0")
	}
	// inline snapshots must be all-or-nothing for orders+traffic: an inline
	// order set with stored traffic would cross two snapshots
	if len(req.Orders) > 0 && len(req.Traffic) == 0 {
		return fmt.Errorf("inline orders require inline traffic samples")
	}
	return nil
}

// overlayParams applies the stored per-deployment config overlay, then any
// per-request budget override, onto the base parameters.
func overlayParams(base opt.Params, overlay map[string]any, req *model.OptimizeRequest) opt.Params {
	p := base
	setF := func(key string, dst *float64) {
		if v, ok := overlay[key]; ok {
			if f, ok := toFloat(v); ok {
				*dst = f
			}
		}
	}
	setF("avgSpeedKmh", &p.AvgSpeedKmh)
	setF("fuelPricePerL", &p.FuelPricePerL)
	setF("baselineBudget", &p.BaselineBudget)
	setF("co2SavedRatio", &p.CO2SavedRatio)
	setF("onTimeImprovePct", &p.OnTimeImprovePct)
	if v, ok := overlay["timeBudgetMs"]; ok {
		if f, ok := toFloat(v); ok && f > 0 {
			p.TimeBudget = time.Duration(f) * time.Millisecond
		}
	}
	if req.TimeBudgetMs > 0 {
		p.TimeBudget = time.Duration(req.TimeBudgetMs) * time.Millisecond
	}
	return p
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
