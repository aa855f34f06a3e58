package shape

// Collection is the union of its member shapes.
type Collection []Shape

// Ensure Collection implements Shape.
var _ Shape = Collection(nil)

// Relate implements Shape by combining the relation of every member.
// An empty collection is disjoint from everything.
func (c Collection) Relate(other Shape) Relation {
	if len(c) == 0 {
		return Disjoint
	}
	rel := c[0].Relate(other)
	for _, s := range c[1:] {
		if rel == Intersects {
			break
		}
		rel = rel.Combine(s.Relate(other))
	}
	return rel
}

// BoundingBox implements Shape.
func (c Collection) BoundingBox() Rect {
	if len(c) == 0 {
		return Rect{}
	}
	bb := c[0].BoundingBox()
	for _, s := range c[1:] {
		bb = bb.Union(s.BoundingBox())
	}
	return bb
}

// Center implements Shape; it is the center of the bounding box.
func (c Collection) Center() Point {
	return c.BoundingBox().Center()
}

// HasArea implements Shape.
func (c Collection) HasArea() bool {
	for _, s := range c {
		if s.HasArea() {
			return true
		}
	}
	return false
}
