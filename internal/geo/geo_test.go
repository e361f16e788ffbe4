package geo

import (
	"math"
	"testing"
)

// One degree of arc along a great circle in nautical miles
const oneDegreeNM = math.Pi / 180 * EarthRadiusNM

func TestGreatCircleDistance(t *testing.T) {
	tests := []struct {
		name      string
		from      Position
		to        Position
		expected  float64
		tolerance float64
	}{
		{"one degree east on equator", Position{0, 0}, Position{0, 1}, oneDegreeNM, 0.001},
		{"one degree north", Position{0, 0}, Position{1, 0}, oneDegreeNM, 0.001},
		{"identical points", Position{44.5, -63.5}, Position{44.5, -63.5}, 0, 1e-9},
		{"halifax to bermuda", Position{44.65, -63.57}, Position{32.3, -64.75}, 742.5, 2.0},
		{"dateline crossing", Position{0, 179.5}, Position{0, -179.5}, oneDegreeNM, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Distance(tt.from, tt.to, GreatCircle)
			if math.Abs(result-tt.expected) > tt.tolerance {
				t.Errorf("Distance(%v, %v) = %f, expected %f", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestDistanceSymmetry(t *testing.T) {
	a := Position{44.65, -63.57}
	b := Position{32.3, -64.75}

	for _, method := range []RoutingMethod{GreatCircle, RhumbLine} {
		forward := Distance(a, b, method)
		backward := Distance(b, a, method)
		if math.Abs(forward-backward) > 1e-9 {
			t.Errorf("%s distance not symmetric: %f vs %f", method, forward, backward)
		}
	}
}

func TestGreatCircleBearing(t *testing.T) {
	tests := []struct {
		name      string
		from      Position
		to        Position
		expected  float64
		tolerance float64
	}{
		{"due east", Position{0, 0}, Position{0, 1}, 90, 0.01},
		{"due north", Position{0, 0}, Position{1, 0}, 0, 0.01},
		{"due south", Position{1, 0}, Position{0, 0}, 180, 0.01},
		{"due west", Position{0, 1}, Position{0, 0}, 270, 0.01},
		{"northeast quadrant", Position{0, 0}, Position{1, 1}, 45, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Bearing(tt.from, tt.to, GreatCircle)
			if result < 0 || result >= 360 {
				t.Errorf("Bearing(%v, %v) = %f, outside [0, 360)", tt.from, tt.to, result)
			}
			if math.Abs(result-tt.expected) > tt.tolerance {
				t.Errorf("Bearing(%v, %v) = %f, expected %f", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestRhumbLine(t *testing.T) {
	// Due east along the equator is the degenerate rhumb case where the
	// Mercator latitude difference vanishes
	dist := Distance(Position{0, 0}, Position{0, 1}, RhumbLine)
	if math.Abs(dist-oneDegreeNM) > 0.001 {
		t.Errorf("rhumb distance due east = %f, expected %f", dist, oneDegreeNM)
	}
	brg := Bearing(Position{0, 0}, Position{0, 1}, RhumbLine)
	if math.Abs(brg-90) > 0.01 {
		t.Errorf("rhumb bearing due east = %f, expected 90", brg)
	}

	// A rhumb line holds constant bearing, so reciprocal tracks differ by 180
	a := Position{50, -60}
	b := Position{40, -30}
	fwd := Bearing(a, b, RhumbLine)
	rev := Bearing(b, a, RhumbLine)
	if math.Abs(Wrap360(fwd+180)-rev) > 0.01 {
		t.Errorf("reciprocal rhumb bearings %f and %f are not 180 apart", fwd, rev)
	}

	// At mid latitudes the great circle is shorter than the rhumb line
	gc := Distance(a, b, GreatCircle)
	rl := Distance(a, b, RhumbLine)
	if gc > rl {
		t.Errorf("great circle %f longer than rhumb line %f", gc, rl)
	}
}

func TestWrap360(t *testing.T) {
	pairs := [][2]float64{{90, 90}, {360, 0}, {-10, 350}, {380, 20}, {-380, 340}, {0, 0}}
	for _, pair := range pairs {
		if result := Wrap360(pair[0]); math.Abs(result-pair[1]) > 1e-9 {
			t.Errorf("Wrap360(%f) = %f, expected %f", pair[0], result, pair[1])
		}
	}
}

func TestCrossTrackDistance(t *testing.T) {
	// Leg runs due east along the equator. North of track is off to port,
	// so the signed error is negative; south of track is starboard, positive.
	legStart := Position{0, 0}
	legEnd := Position{0, 10}

	north := CrossTrackDistance(Position{1, 5}, legStart, legEnd)
	if north >= 0 {
		t.Errorf("position north of eastbound track gave XTE %f, expected negative", north)
	}
	if math.Abs(math.Abs(north)-oneDegreeNM) > 0.5 {
		t.Errorf("XTE magnitude %f, expected about %f", math.Abs(north), oneDegreeNM)
	}

	south := CrossTrackDistance(Position{-1, 5}, legStart, legEnd)
	if south <= 0 {
		t.Errorf("position south of eastbound track gave XTE %f, expected positive", south)
	}

	onTrack := CrossTrackDistance(Position{0, 5}, legStart, legEnd)
	if math.Abs(onTrack) > 1e-6 {
		t.Errorf("position on track gave XTE %f, expected 0", onTrack)
	}
}

func TestDestination(t *testing.T) {
	tests := []struct {
		name       string
		from       Position
		bearing    float64
		distanceNM float64
		expected   Position
		tolerance  float64
	}{
		{"due east one degree", Position{0, 0}, 90, oneDegreeNM, Position{0, 1}, 0.001},
		{"due north one degree", Position{0, 0}, 0, oneDegreeNM, Position{1, 0}, 0.001},
		{"zero distance", Position{44.5, -63.5}, 123, 0, Position{44.5, -63.5}, 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Destination(tt.from, tt.bearing, tt.distanceNM)
			if math.Abs(result.Lat-tt.expected.Lat) > tt.tolerance ||
				math.Abs(result.Lon-tt.expected.Lon) > tt.tolerance {
				t.Errorf("Destination(%v, %f, %f) = %v, expected %v",
					tt.from, tt.bearing, tt.distanceNM, result, tt.expected)
			}
		})
	}
}

func TestDestinationRoundTrip(t *testing.T) {
	from := Position{44.65, -63.57}
	dest := Destination(from, 135, 100)

	dist := Distance(from, dest, GreatCircle)
	if math.Abs(dist-100) > 0.01 {
		t.Errorf("round trip distance %f, expected 100", dist)
	}
	brg := Bearing(from, dest, GreatCircle)
	if math.Abs(brg-135) > 0.01 {
		t.Errorf("round trip bearing %f, expected 135", brg)
	}
}

func TestClosestPointOnSegment(t *testing.T) {
	legStart := Position{0, 0}
	legEnd := Position{0, 10}

	// Abeam mid leg: projection lands near the foot of the perpendicular
	closest, dist := ClosestPointOnSegment(Position{1, 5}, legStart, legEnd)
	if math.Abs(closest.Lat) > 0.01 || math.Abs(closest.Lon-5) > 0.01 {
		t.Errorf("abeam projection = %v, expected near (0, 5)", closest)
	}
	if math.Abs(dist-oneDegreeNM) > 0.5 {
		t.Errorf("abeam distance %f, expected about %f", dist, oneDegreeNM)
	}

	// Behind the start: clamps to the start point
	closest, dist = ClosestPointOnSegment(Position{0, -2}, legStart, legEnd)
	if math.Abs(closest.Lat-legStart.Lat) > 1e-9 || math.Abs(closest.Lon-legStart.Lon) > 1e-9 {
		t.Errorf("behind-start projection = %v, expected %v", closest, legStart)
	}
	if math.Abs(dist-2*oneDegreeNM) > 0.01 {
		t.Errorf("behind-start distance %f, expected %f", dist, 2*oneDegreeNM)
	}

	// Beyond the end: clamps to the end point
	closest, _ = ClosestPointOnSegment(Position{0, 12}, legStart, legEnd)
	if math.Abs(closest.Lat-legEnd.Lat) > 1e-9 || math.Abs(closest.Lon-legEnd.Lon) > 1e-9 {
		t.Errorf("beyond-end projection = %v, expected %v", closest, legEnd)
	}
}

func TestETAMinutes(t *testing.T) {
	eta, err := ETAMinutes(10, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(eta-120) > 1e-9 {
		t.Errorf("ETAMinutes(10, 5) = %f, expected 120", eta)
	}

	eta, err = ETAMinutes(0, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eta != 0 {
		t.Errorf("ETAMinutes(0, 8) = %f, expected 0", eta)
	}

	for _, speed := range []float64{0, -3} {
		if _, err := ETAMinutes(10, speed); err == nil {
			t.Errorf("ETAMinutes(10, %f) expected error, got nil", speed)
		}
	}
}

func TestParseRoutingMethod(t *testing.T) {
	tests := []struct {
		str      string
		expected RoutingMethod
		wantErr  bool
	}{
		{"great-circle", GreatCircle, false},
		{"rhumb-line", RhumbLine, false},
		{"loxodrome", GreatCircle, true},
		{"", GreatCircle, true},
	}

	for _, tt := range tests {
		result, err := ParseRoutingMethod(tt.str)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseRoutingMethod(%q) expected error, got nil", tt.str)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRoutingMethod(%q) unexpected error: %v", tt.str, err)
		}
		if result != tt.expected {
			t.Errorf("ParseRoutingMethod(%q) = %v, expected %v", tt.str, result, tt.expected)
		}
	}
}

func TestPositionValid(t *testing.T) {
	tests := []struct {
		pos   Position
		valid bool
	}{
		{Position{0, 0}, true},
		{Position{90, 180}, true},
		{Position{-90, -180}, true},
		{Position{91, 0}, false},
		{Position{0, 181}, false},
		{Position{-91, 0}, false},
		{Position{0, -181}, false},
	}

	for _, tt := range tests {
		if tt.pos.Valid() != tt.valid {
			t.Errorf("Position%v.Valid() = %v, expected %v", tt.pos, tt.pos.Valid(), tt.valid)
		}
	}
}

func TestMagneticBearing(t *testing.T) {
	// East declination subtracts, west adds; the result wraps to [0, 360)
	tests := []struct {
		trueBearing float64
		declination float64
		expected    float64
	}{
		{90, 10, 80},
		{90, -10, 100},
		{5, 10, 355},
		{355, -10, 5},
		{180, 0, 180},
	}

	for _, tt := range tests {
		result := MagneticBearing(tt.trueBearing, tt.declination)
		if math.Abs(result-tt.expected) > 1e-9 {
			t.Errorf("MagneticBearing(%f, %f) = %f, expected %f",
				tt.trueBearing, tt.declination, result, tt.expected)
		}
	}
}
