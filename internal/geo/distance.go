// Package geo computes great-circle distances between coordinates.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for all distance math.
const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points given in
// degrees, using the spherical law of cosines. The cosine argument is
// clamped to [-1, 1] so rounding never yields NaN for identical or
// antipodal points.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dLambda := radians(lon2 - lon1)

	c := math.Sin(phi1)*math.Sin(phi2) + math.Cos(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return EarthRadiusKm * math.Acos(c)
}

// LatitudeBand returns the latitude range that can contain points within
// radiusKm of lat. It is a coarse prefilter for SQL; longitude is not
// bounded because the band would wrap near the poles and the antimeridian.
func LatitudeBand(lat, radiusKm float64) (minLat, maxLat float64) {
	delta := radiusKm / EarthRadiusKm * 180 / math.Pi
	minLat = math.Max(-90, lat-delta)
	maxLat = math.Min(90, lat+delta)
	return minLat, maxLat
}

func ValidLatitude(lat float64) bool {
	return !math.IsNaN(lat) && lat >= -90 && lat <= 90
}

func ValidLongitude(lon float64) bool {
	return !math.IsNaN(lon) && lon >= -180 && lon <= 180
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
