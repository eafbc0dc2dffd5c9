package geo

import (
	"math"

	"courier-market-service/internal/domain"
)

const earthRadiusKm = 6371.0

// Return the great-circle distance in kilometres between two points.
func Haversine(a, b domain.Coordinates) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	rLat1 := radians(a.Lat)
	rLat2 := radians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// Return the distance in kilometres from point p to the great-circle segment
// from segStart to segEnd. When the perpendicular foot falls outside the
// segment the distance to the nearer endpoint is returned, so the result is
// the true minimum distance to the travelled path, not to its extension.
func CrossTrackKm(p, segStart, segEnd domain.Coordinates) float64 {
	d12 := Haversine(segStart, segEnd) / earthRadiusKm
	if d12 < 1e-9 {
		// zero-length route degenerates to a point
		return Haversine(segStart, p)
	}

	d13 := Haversine(segStart, p) / earthRadiusKm
	theta13 := bearing(segStart, p)
	theta12 := bearing(segStart, segEnd)

	dxt := math.Asin(clamp(math.Sin(d13)*math.Sin(theta13-theta12), -1, 1))

	// along-track distance of the foot, negative when it falls behind the start
	dat := math.Acos(clamp(math.Cos(d13)/math.Cos(dxt), -1, 1))
	if math.Cos(theta13-theta12) < 0 {
		dat = -dat
	}

	switch {
	case dat < 0:
		return Haversine(segStart, p)
	case dat > d12:
		return Haversine(segEnd, p)
	}
	return math.Abs(dxt) * earthRadiusKm
}

// Return the extra kilometres a courier travels when leaving the direct
// start-end path to visit pickup and then dropoff in order.
func DetourKm(start, end, pickup, dropoff domain.Coordinates) float64 {
	direct := Haversine(start, end)
	withStops := Haversine(start, pickup) + Haversine(pickup, dropoff) + Haversine(dropoff, end)

	d := withStops - direct
	if d < 0 {
		// float rounding; the triangle inequality keeps the true value at zero or above
		return 0
	}
	return d
}

// Initial bearing in radians from one point toward another.
func bearing(from, to domain.Coordinates) float64 {
	phi1 := radians(from.Lat)
	phi2 := radians(to.Lat)
	dLon := radians(to.Lon - from.Lon)

	y := math.Sin(dLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLon)
	return math.Atan2(y, x)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
