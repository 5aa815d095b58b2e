package geo

import (
	"math"
	"sort"

	"github.com/example/transfer-booking/internal/models"
)

const earthRadiusM = 6371000.0

// Haversine distance in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// DistanceKm is the great-circle distance between two coordinates.
func DistanceKm(a, b models.Coord) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon) / 1000
}

// Nearest returns up to limit locations closest to from, nearest first.
// A non-positive limit returns every location.
func Nearest(locs []models.Location, from models.Coord, limit int) []models.Location {
	type pair struct {
		l    models.Location
		dist float64
	}
	arr := make([]pair, 0, len(locs))
	for _, l := range locs {
		arr = append(arr, pair{l, DistanceKm(from, l.Coordinates)})
	}
	sort.SliceStable(arr, func(i, j int) bool { return arr[i].dist < arr[j].dist })
	n := len(arr)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.Location, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, arr[i].l)
	}
	return out
}
