package geo

import (
	"fmt"
	"math"
)

// Constants
const (
	EarthRadiusNM = 3440.065 // Spherical Earth radius in nautical miles
)

// Position represents a geographic point in decimal degrees
type Position struct {
	Lat float64 `json:"lat"` // Latitude in decimal degrees, [-90, 90]
	Lon float64 `json:"lon"` // Longitude in decimal degrees, [-180, 180]
}

// Valid reports whether the position is within latitude/longitude bounds
func (p Position) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// RoutingMethod selects the path model used for distance and bearing
type RoutingMethod int

const (
	// GreatCircle is the shortest path on the sphere; bearing varies along the leg
	GreatCircle RoutingMethod = iota
	// RhumbLine is a constant-bearing path; longer but simpler to steer
	RhumbLine
)

// String returns the wire name of the routing method
func (m RoutingMethod) String() string {
	if m == RhumbLine {
		return "rhumb-line"
	}
	return "great-circle"
}

// MarshalText implements encoding.TextMarshaler
func (m RoutingMethod) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *RoutingMethod) UnmarshalText(text []byte) error {
	parsed, err := ParseRoutingMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseRoutingMethod parses a routing method name
func ParseRoutingMethod(s string) (RoutingMethod, error) {
	switch s {
	case "great-circle":
		return GreatCircle, nil
	case "rhumb-line":
		return RhumbLine, nil
	default:
		return GreatCircle, fmt.Errorf("invalid routing method: %s (must be 'great-circle' or 'rhumb-line')", s)
	}
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func toDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// Wrap360 normalizes a bearing in degrees to [0, 360)
func Wrap360(deg float64) float64 {
	d := math.Mod(deg, 360.0)
	if d < 0 {
		d += 360.0
	}
	return d
}

// wrapPi normalizes an angle in radians to (-pi, pi]
func wrapPi(rad float64) float64 {
	for rad > math.Pi {
		rad -= 2 * math.Pi
	}
	for rad <= -math.Pi {
		rad += 2 * math.Pi
	}
	return rad
}

// Distance returns the distance in nautical miles from one position to
// another under the given routing method.
func Distance(from, to Position, method RoutingMethod) float64 {
	if method == RhumbLine {
		return rhumbDistance(from, to)
	}
	return greatCircleDistance(from, to)
}

// Bearing returns the bearing in degrees true, [0, 360), from one position
// to another under the given routing method. For great-circle legs this is
// the initial bearing; for rhumb lines it is constant along the whole leg.
func Bearing(from, to Position, method RoutingMethod) float64 {
	if method == RhumbLine {
		return rhumbBearing(from, to)
	}
	return greatCircleBearing(from, to)
}

// DistanceAndBearing returns both leg values in a single call
func DistanceAndBearing(from, to Position, method RoutingMethod) (float64, float64) {
	return Distance(from, to, method), Bearing(from, to, method)
}

// greatCircleDistance computes the haversine distance in nautical miles
func greatCircleDistance(from, to Position) float64 {
	φ1 := toRadians(from.Lat)
	φ2 := toRadians(to.Lat)
	Δφ := φ2 - φ1
	Δλ := toRadians(to.Lon - from.Lon)

	a := math.Sin(Δφ/2)*math.Sin(Δφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	δ := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusNM * δ
}

// greatCircleBearing computes the initial bearing of the great-circle path
func greatCircleBearing(from, to Position) float64 {
	φ1 := toRadians(from.Lat)
	φ2 := toRadians(to.Lat)
	Δλ := toRadians(to.Lon - from.Lon)

	y := math.Sin(Δλ) * math.Cos(φ2)
	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(Δλ)
	θ := math.Atan2(y, x)

	return Wrap360(toDegrees(θ))
}

// rhumbDistance computes the loxodrome distance in nautical miles using the
// Mercator projection. A near-zero Δψ (due east/west leg) falls back to
// q = cos(φ1) to avoid dividing by a vanishing quantity.
func rhumbDistance(from, to Position) float64 {
	φ1 := toRadians(from.Lat)
	φ2 := toRadians(to.Lat)
	Δφ := φ2 - φ1
	Δλ := wrapPi(toRadians(to.Lon - from.Lon))

	Δψ := math.Log(math.Tan(math.Pi/4+φ2/2) / math.Tan(math.Pi/4+φ1/2))

	var q float64
	if math.Abs(Δψ) > 1e-12 {
		q = Δφ / Δψ
	} else {
		q = math.Cos(φ1)
	}

	δ := math.Sqrt(Δφ*Δφ + q*q*Δλ*Δλ)

	return EarthRadiusNM * δ
}

// rhumbBearing computes the constant bearing of the loxodrome
func rhumbBearing(from, to Position) float64 {
	φ1 := toRadians(from.Lat)
	φ2 := toRadians(to.Lat)
	Δλ := wrapPi(toRadians(to.Lon - from.Lon))

	Δψ := math.Log(math.Tan(math.Pi/4+φ2/2) / math.Tan(math.Pi/4+φ1/2))
	θ := math.Atan2(Δλ, Δψ)

	return Wrap360(toDegrees(θ))
}

// CrossTrackDistance returns the signed perpendicular distance in nautical
// miles from a position to the great-circle path legStart -> legEnd.
// Positive means right of course (starboard), negative means left (port),
// matching marine XTE display conventions.
func CrossTrackDistance(position, legStart, legEnd Position) float64 {
	d13 := greatCircleDistance(legStart, position)
	if d13 == 0 {
		return 0
	}

	θ13 := toRadians(greatCircleBearing(legStart, position))
	θ12 := toRadians(greatCircleBearing(legStart, legEnd))

	δ13 := d13 / EarthRadiusNM
	δxt := math.Asin(math.Sin(δ13) * math.Sin(θ13-θ12))

	return δxt * EarthRadiusNM
}

// Destination returns the point reached by travelling the given distance in
// nautical miles from a position along a great-circle with the given initial
// bearing in degrees true.
func Destination(from Position, bearingDeg, distanceNM float64) Position {
	φ1 := toRadians(from.Lat)
	λ1 := toRadians(from.Lon)
	θ := toRadians(bearingDeg)
	δ := distanceNM / EarthRadiusNM

	φ2 := math.Asin(math.Sin(φ1)*math.Cos(δ) + math.Cos(φ1)*math.Sin(δ)*math.Cos(θ))
	λ2 := λ1 + math.Atan2(math.Sin(θ)*math.Sin(δ)*math.Cos(φ1), math.Cos(δ)-math.Sin(φ1)*math.Sin(φ2))
	λ2 = wrapPi(λ2)

	return Position{Lat: toDegrees(φ2), Lon: toDegrees(λ2)}
}

// ClosestPointOnSegment projects a position onto the great-circle segment
// segStart -> segEnd. If the foot of the perpendicular falls outside the
// segment it clamps to the nearer endpoint. Returns the projected position
// and the distance in nautical miles from the position to that projection.
func ClosestPointOnSegment(position, segStart, segEnd Position) (Position, float64) {
	d13 := greatCircleDistance(segStart, position)
	if d13 == 0 {
		return segStart, 0
	}

	legDist := greatCircleDistance(segStart, segEnd)
	if legDist == 0 {
		return segStart, d13
	}

	θ13 := toRadians(greatCircleBearing(segStart, position))
	θ12 := toRadians(greatCircleBearing(segStart, segEnd))

	// Foot of the perpendicular is behind the segment start
	if math.Cos(θ13-θ12) <= 0 {
		return segStart, d13
	}

	δ13 := d13 / EarthRadiusNM
	δxt := math.Asin(math.Sin(δ13) * math.Sin(θ13-θ12))

	// Along-track arc from segment start to the foot of the perpendicular
	ratio := math.Cos(δ13) / math.Cos(δxt)
	if ratio > 1 {
		ratio = 1
	} else if ratio < -1 {
		ratio = -1
	}
	alongTrack := math.Acos(ratio) * EarthRadiusNM

	if alongTrack >= legDist {
		return segEnd, greatCircleDistance(position, segEnd)
	}

	projected := Destination(segStart, toDegrees(θ12), alongTrack)
	return projected, greatCircleDistance(position, projected)
}

// ETAMinutes converts a distance in nautical miles and a speed in knots to
// an estimated time en route in minutes. The speed must be positive; callers
// are responsible for substituting a minimum default speed first.
func ETAMinutes(distanceNM, speedKn float64) (float64, error) {
	if speedKn <= 0 {
		return 0, fmt.Errorf("speed must be positive, got %.2f kn", speedKn)
	}
	return distanceNM / speedKn * 60.0, nil
}
