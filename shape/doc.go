// Package shape provides the minimal 2D geometry kernel used by the prefix
// grid: points, rectangles, circles and unions of them, plus the spatial
// relation algebra they share.
//
// The grid never needs to know concrete shape kinds. Everything it asks goes
// through the Shape interface:
//
//	rel := cellShape.Relate(query) // Disjoint, Intersects, Within or Contains
//
// Relations use closed-set semantics: shapes that only touch along an edge
// or a corner intersect.
package shape
