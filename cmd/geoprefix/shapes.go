package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/geoprefix/codec"
	"github.com/hupe1980/geoprefix/shape"
)

// shapeSpec is the JSON form of a shape on the command line and in
// document files.
type shapeSpec struct {
	Type   string      `json:"type"`
	X      float64     `json:"x,omitempty"`
	Y      float64     `json:"y,omitempty"`
	MinX   float64     `json:"min_x,omitempty"`
	MinY   float64     `json:"min_y,omitempty"`
	MaxX   float64     `json:"max_x,omitempty"`
	MaxY   float64     `json:"max_y,omitempty"`
	Radius float64     `json:"radius,omitempty"`
	Shapes []shapeSpec `json:"shapes,omitempty"`
}

// document is one line of an index input file.
type document struct {
	ID    uint64    `json:"id"`
	Shape shapeSpec `json:"shape"`
}

func (s shapeSpec) toShape() (shape.Shape, error) {
	switch strings.ToLower(s.Type) {
	case "point":
		return shape.Point{X: s.X, Y: s.Y}, nil
	case "rect":
		r := shape.Rect{MinX: s.MinX, MinY: s.MinY, MaxX: s.MaxX, MaxY: s.MaxY}
		if !r.Valid() {
			return nil, fmt.Errorf("invalid rect %v", r)
		}
		return r, nil
	case "circle":
		if s.Radius < 0 {
			return nil, fmt.Errorf("negative circle radius %g", s.Radius)
		}
		return shape.Circle{Origin: shape.Point{X: s.X, Y: s.Y}, Radius: s.Radius}, nil
	case "collection":
		if len(s.Shapes) == 0 {
			return nil, fmt.Errorf("empty collection")
		}
		c := make(shape.Collection, 0, len(s.Shapes))
		for i, sub := range s.Shapes {
			sh, err := sub.toShape()
			if err != nil {
				return nil, fmt.Errorf("collection shape %d: %w", i, err)
			}
			c = append(c, sh)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown shape type %q", s.Type)
	}
}

func parseShape(data []byte) (shape.Shape, error) {
	var spec shapeSpec
	if err := codec.Default.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("decoding shape: %w", err)
	}
	return spec.toShape()
}

func (d document) toShape() (shape.Shape, error) {
	s, err := d.Shape.toShape()
	if err != nil {
		return nil, fmt.Errorf("document %d: %w", d.ID, err)
	}
	return s, nil
}

// parsePoint parses "x,y".
func parsePoint(s string) (shape.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return shape.Point{}, fmt.Errorf("invalid point %q: want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return shape.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return shape.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	return shape.Point{X: x, Y: y}, nil
}
