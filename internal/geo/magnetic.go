package geo

import (
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// MagneticDeclination returns the magnetic declination in degrees for a
// position at sea level on the given date (+East, -West), from the World
// Magnetic Model. Returns 0 if the model cannot be evaluated, so bearings
// degrade to true rather than failing.
func MagneticDeclination(lat, lon float64, date time.Time) float64 {
	loc := egm96.NewLocationGeodetic(lat, lon, 0)

	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		return 0.0
	}

	return mag.D()
}

// MagneticBearing converts a true bearing to magnetic using the given
// declination, normalized to [0, 360).
func MagneticBearing(trueBearing, declination float64) float64 {
	return Wrap360(trueBearing - declination)
}
