// Package strategy connects shapes to a prefix grid: it turns shapes into the
// tokens a document is indexed under and turns query arguments into a
// prefix.Filter.
package strategy
