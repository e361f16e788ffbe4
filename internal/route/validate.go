package route

import "fmt"

const longRouteWarningNM = 500.0

// ValidationIssue describes a single validation finding
type ValidationIssue struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationResult aggregates all findings for a route. Errors block
// navigation; warnings do not.
type ValidationResult struct {
	IsValid  bool              `json:"is_valid"`
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
}

// Validate checks a route document and aggregates every finding rather than
// failing fast on the first.
func Validate(r Route) ValidationResult {
	result := ValidationResult{
		Errors:   []ValidationIssue{},
		Warnings: []ValidationIssue{},
	}

	if r.Name == "" {
		result.Errors = append(result.Errors, ValidationIssue{
			Field:   "name",
			Message: "route name must not be empty",
		})
	}

	if len(r.Points) < 2 {
		result.Errors = append(result.Errors, ValidationIssue{
			Field:   "route_points",
			Message: "route must have at least two points to be navigable",
		})
	}

	for i, p := range r.Points {
		if p.Position.Lat < -90 || p.Position.Lat > 90 {
			result.Errors = append(result.Errors, ValidationIssue{
				Field:   fmt.Sprintf("route_points[%d].position.lat", i),
				Message: fmt.Sprintf("latitude %.6f out of range [-90, 90]", p.Position.Lat),
			})
		}
		if p.Position.Lon < -180 || p.Position.Lon > 180 {
			result.Errors = append(result.Errors, ValidationIssue{
				Field:   fmt.Sprintf("route_points[%d].position.lon", i),
				Message: fmt.Sprintf("longitude %.6f out of range [-180, 180]", p.Position.Lon),
			})
		}
		if p.Order != i {
			result.Errors = append(result.Errors, ValidationIssue{
				Field:   fmt.Sprintf("route_points[%d].order", i),
				Message: fmt.Sprintf("order %d does not match sequence position %d", p.Order, i),
			})
		}
	}

	if r.CruisingSpeedKn <= 0 {
		result.Warnings = append(result.Warnings, ValidationIssue{
			Field:   "cruising_speed_kn",
			Message: "cruising speed is not positive; duration and fuel estimates are unavailable",
		})
	}

	if r.TotalDistanceNM == 0 {
		result.Warnings = append(result.Warnings, ValidationIssue{
			Field:   "total_distance_nm",
			Message: "route has zero total distance",
		})
	}

	if r.TotalDistanceNM > longRouteWarningNM {
		result.Warnings = append(result.Warnings, ValidationIssue{
			Field:   "total_distance_nm",
			Message: fmt.Sprintf("route longer than %.0f nm", longRouteWarningNM),
		})
	}

	for i, p := range r.Points {
		if i > 0 && p.LegDistanceNM != nil && *p.LegDistanceNM == 0 {
			result.Warnings = append(result.Warnings, ValidationIssue{
				Field:   fmt.Sprintf("route_points[%d]", i),
				Message: fmt.Sprintf("zero-distance leg at point %d", i),
			})
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}
