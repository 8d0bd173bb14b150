package geo

import (
	"fmt"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is Earth's mean radius, used for great-circle distances.
const EarthRadiusMeters = 6371000.0

// GeofenceKind identifies the geometry of a geofence.
type GeofenceKind string

const (
	KindCircle  GeofenceKind = "circle"
	KindPolygon GeofenceKind = "polygon"
)

// Point is a geographic coordinate in (longitude, latitude) order, matching
// the wire format of the geofence listing.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Geofence is a named geographic region used as the trigger boundary for
// automatic attendance. Immutable once fetched; refreshed by re-querying the
// remote listing.
type Geofence struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Kind         GeofenceKind `json:"kind"`
	Center       Point        `json:"center,omitempty"`
	RadiusMeters float64      `json:"radiusMeters,omitempty"`
	Ring         []Point      `json:"ring,omitempty"`
}

// HaversineDistance calculates the great-circle distance between two points
// in meters.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Contains reports whether the coordinate lies inside the geofence. Malformed
// geometry yields an error; callers treat that as "outside" and log it rather
// than aborting the evaluation cycle.
func Contains(g *Geofence, lat, lon float64) (bool, error) {
	if g == nil {
		return false, fmt.Errorf("nil geofence")
	}

	switch g.Kind {
	case KindCircle:
		if g.RadiusMeters <= 0 {
			return false, fmt.Errorf("geofence %s: non-positive radius %f", g.ID, g.RadiusMeters)
		}
		return HaversineDistance(lat, lon, g.Center.Lat, g.Center.Lon) <= g.RadiusMeters, nil
	case KindPolygon:
		ring := g.Ring
		// A closing vertex equal to the first is optional upstream.
		if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
			ring = ring[:len(ring)-1]
		}
		if len(ring) < 3 {
			return false, fmt.Errorf("geofence %s: ring has %d vertices, need at least 3", g.ID, len(ring))
		}
		return pointInRing(lon, lat, ring), nil
	default:
		return false, fmt.Errorf("geofence %s: unknown kind %q", g.ID, g.Kind)
	}
}

// pointInRing is a standard ray-casting point-in-polygon test over
// (longitude, latitude) coordinates.
func pointInRing(lon, lat float64, ring []Point) bool {
	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		xi, yi := ring[i].Lon, ring[i].Lat
		xj, yj := ring[j].Lon, ring[j].Lat
		if (yi > lat) != (yj > lat) &&
			lon < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}
