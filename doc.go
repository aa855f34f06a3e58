// Package geoprefix provides an embedded spatial index for Go built on a
// recursive prefix tree.
//
// Shapes are decomposed into the cells of a hierarchical grid (a quad tree
// or geohash). Every cell is a byte-string token, so a shape is indexed as
// a handful of terms in an ordinary sorted term dictionary. Queries walk the
// grid top down, seeking each cell's token in the dictionary and switching
// to a linear scan of the remaining terms near the bottom of the tree.
//
// # Quick Start
//
//	ctx := context.Background()
//	store, _ := blobstore.NewLocalStore("./places")
//	idx, _ := geoprefix.Open(ctx, store, geoprefix.WithGrid(prefix.Config{
//	    Kind:      prefix.KindGeohash,
//	    MaxLevels: 9,
//	}))
//	defer idx.Close()
//
//	_ = idx.AddDocument(1, shape.Point{X: 13.40, Y: 52.52})
//	_ = idx.AddDocument(2, shape.Rect{MinX: 2.2, MinY: 48.8, MaxX: 2.5, MaxY: 48.9})
//	_ = idx.Commit(ctx)
//
//	res, _ := idx.Search(ctx, strategy.NewSpatialArgs(strategy.Intersects,
//	    shape.Circle{Origin: shape.Point{X: 13.4, Y: 52.5}, Radius: 1}))
//	fmt.Println(res.IDs())
//
// # Durability Model
//
// Changes are buffered in memory and become durable and searchable with
// Commit. A commit writes one immutable segment plus deletion sidecars and
// publishes a new manifest generation through a manifest.Committer: a
// CURRENT blob by default, or DynamoDB conditional writes for object stores
// shared by several writers.
//
// # Storage
//
// Any blobstore.Store works: in memory, a local directory (memory mapped),
// Amazon S3 or MinIO. Remote stores are usually combined with WithBlockCache.
package geoprefix
