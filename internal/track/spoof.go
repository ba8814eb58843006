package track

import "github.com/golang/geo/s2"

// earthRadiusKM matches the conventional haversine radius.
const earthRadiusKM = 6371.0

// DistanceKM is the great-circle distance between two points in kilometers.
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * earthRadiusKM
}

// Spoofed reports whether a displayed position diverges from a source's
// own-ship reference beyond the source's limit. Exactly at the limit is not
// spoofed; the comparison is strict.
func Spoofed(lat, lon, refLat, refLon, limitKM float64) bool {
	return DistanceKM(lat, lon, refLat, refLon) > limitKM
}
