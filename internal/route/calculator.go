package route

import (
	"time"

	"github.com/openmast/helmsman/internal/geo"
)

// Recalculate returns a copy of the route with per-point leg data, order
// values, and aggregates recomputed from scratch under the route's routing
// method. Each leg depends only on its two endpoints, so the pass is O(n)
// and order-independent.
func Recalculate(r Route) Route {
	points := clonePoints(r.Points)

	total := 0.0
	for i := range points {
		points[i].Order = i
		if i == 0 {
			points[i].LegDistanceNM = nil
			points[i].LegBearingDeg = nil
			continue
		}

		dist, brg := geo.DistanceAndBearing(points[i-1].Position, points[i].Position, r.RoutingMethod)
		points[i].LegDistanceNM = &dist
		points[i].LegBearingDeg = &brg
		total += dist
	}

	r.Points = points
	r.TotalDistanceNM = total

	if r.CruisingSpeedKn > 0 {
		mins, err := geo.ETAMinutes(total, r.CruisingSpeedKn)
		if err == nil {
			r.EstimatedDurationMin = &mins
			r.EstimatedFuelGal = mins / 60.0 * r.FuelBurnGPH
		}
	} else {
		r.EstimatedDurationMin = nil
		r.EstimatedFuelGal = 0
	}

	r.UpdatedAt = time.Now().UTC()
	return r
}
