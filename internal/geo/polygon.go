package geo

import "github.com/zonegrid/presence-service/internal/domain"

// Contains reports whether p lies inside the closed polygon vs (last vertex
// implicitly connects back to the first). Ray casting / even-odd rule over a
// planar projection: longitude is x, latitude is y, no geodesic correction —
// acceptable because areas are capped at an 800 m radius at creation time.
//
// Boundary rule: each edge is half-open in latitude ((lat_i, lat_j] against
// the strict > test below), so a point exactly on an edge resolves
// deterministically — always the same answer for the same polygon, points on
// a "left" edge count as inside, on a "right" edge as outside. Deterministic,
// O(len(vs)).
func Contains(p domain.Point, vs []domain.Point) bool {
	if len(vs) < 3 {
		return false
	}

	inside := false
	j := len(vs) - 1
	for i := 0; i < len(vs); i++ {
		vi, vj := vs[i], vs[j]
		if (vi.Latitude > p.Latitude) != (vj.Latitude > p.Latitude) {
			// долгота пересечения ребра горизонтальным лучом
			x := (vj.Longitude-vi.Longitude)*(p.Latitude-vi.Latitude)/(vj.Latitude-vi.Latitude) + vi.Longitude
			if p.Longitude < x {
				inside = !inside
			}
		}
		j = i
	}

	return inside
}

// ValidPoint validates coordinate ranges (WGS84 degrees).
func ValidPoint(p domain.Point) bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}
