package route

// Mutation operations take a route by value and return a new, fully
// recalculated route. Callers never observe stale leg data or aggregates.

import "fmt"

// AddPoint inserts a point at insertIndex (clamped to [0, len]) or appends
// when insertIndex is nil. A point without an id is assigned one.
func AddPoint(r Route, point RoutePoint, insertIndex *int) Route {
	if point.ID == "" {
		point.ID = NewPointID()
	}

	points := clonePoints(r.Points)

	idx := len(points)
	if insertIndex != nil {
		idx = *insertIndex
		if idx < 0 {
			idx = 0
		}
		if idx > len(points) {
			idx = len(points)
		}
	}

	points = append(points, RoutePoint{})
	copy(points[idx+1:], points[idx:])
	points[idx] = point

	r.Points = points
	return Recalculate(r)
}

// RemovePoint removes the point with the given id. Removing an unknown id
// is a no-op apart from the recalculation.
func RemovePoint(r Route, pointID string) Route {
	points := clonePoints(r.Points)

	for i := range points {
		if points[i].ID == pointID {
			points = append(points[:i], points[i+1:]...)
			break
		}
	}

	r.Points = points
	return Recalculate(r)
}

// UpdatePoint merges a partial update into the point with the given id.
// Position changes ripple into the recomputed legs of the point and its
// successor via the full recalculation. Returns false if the id is unknown.
func UpdatePoint(r Route, pointID string, update PointUpdate) (Route, bool) {
	points := clonePoints(r.Points)

	idx := -1
	for i := range points {
		if points[i].ID == pointID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return r, false
	}

	if update.Name != nil {
		points[idx].Name = *update.Name
	}
	if update.Notes != nil {
		points[idx].Notes = *update.Notes
	}
	if update.Position != nil {
		points[idx].Position = *update.Position
	}
	if update.WaypointRef != nil {
		if *update.WaypointRef == "" {
			points[idx].WaypointRef = nil
		} else {
			ref := *update.WaypointRef
			points[idx].WaypointRef = &ref
		}
	}

	r.Points = points
	return Recalculate(r), true
}

// ReorderPoints moves one point to a new position in the sequence using
// list-splice semantics (remove then insert, not swap).
func ReorderPoints(r Route, fromIndex, toIndex int) (Route, error) {
	n := len(r.Points)
	if fromIndex < 0 || fromIndex >= n {
		return r, fmt.Errorf("from_index %d out of range [0, %d)", fromIndex, n)
	}
	if toIndex < 0 || toIndex >= n {
		return r, fmt.Errorf("to_index %d out of range [0, %d)", toIndex, n)
	}

	points := clonePoints(r.Points)

	moved := points[fromIndex]
	points = append(points[:fromIndex], points[fromIndex+1:]...)

	points = append(points, RoutePoint{})
	copy(points[toIndex+1:], points[toIndex:])
	points[toIndex] = moved

	r.Points = points
	return Recalculate(r), nil
}

// Reverse reverses the point order. Renaming the route (e.g. a "(Reversed)"
// suffix) is a presentation concern left to the caller.
func Reverse(r Route) Route {
	points := clonePoints(r.Points)

	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	r.Points = points
	return Recalculate(r)
}
