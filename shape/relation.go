package shape

// Relation describes how one shape relates to another.
//
// For a.Relate(b):
//   - Within means a is fully inside b.
//   - Contains means a fully covers b.
type Relation uint8

const (
	// Disjoint means the shapes share no point.
	Disjoint Relation = iota
	// Intersects means the shapes overlap but neither covers the other.
	Intersects
	// Within means the receiver lies fully inside the argument.
	Within
	// Contains means the receiver fully covers the argument.
	Contains
)

// String returns the relation name.
func (r Relation) String() string {
	switch r {
	case Disjoint:
		return "DISJOINT"
	case Intersects:
		return "INTERSECTS"
	case Within:
		return "WITHIN"
	case Contains:
		return "CONTAINS"
	default:
		return "UNKNOWN"
	}
}

// Transpose returns the relation seen from the other shape:
// if a.Relate(b) == r then b.Relate(a) == r.Transpose().
func (r Relation) Transpose() Relation {
	switch r {
	case Within:
		return Contains
	case Contains:
		return Within
	default:
		return r
	}
}

// Combine merges the relations of two members of a union against the same
// shape into the relation of the union.
//
// Equal relations stay as they are. A Disjoint member next to a Contains
// member still contains the other shape. Every other mix is Intersects.
func (r Relation) Combine(other Relation) Relation {
	if r == other {
		return r
	}
	if (r == Disjoint && other == Contains) || (r == Contains && other == Disjoint) {
		return Contains
	}
	return Intersects
}
