package hanref

import (
	"encoding/xml"
	"io"

	"github.com/biologic/stylus/internal/geom"
	"github.com/biologic/stylus/internal/stylerr"
)

// The following types mirror the Han XML document shape described in
// spec.md §6: a hanDefinition root with length, bounds, minimumStrokeLength,
// groups/group, strokes/stroke (each with forward/reverse pointDistance
// sequences), and overlaps/overlap[firstStroke,secondStroke,required].
// Parsing and in-memory geometry are in scope; fetching the document over
// HTTP and validating it against an XSD schema are not (Load only ever
// receives an io.Reader).

type xmlPoint struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
}

type xmlPointDistance struct {
	X        float64 `xml:"x,attr"`
	Y        float64 `xml:"y,attr"`
	Distance float64 `xml:"distance,attr"`
}

type xmlBounds struct {
	TopLeft     xmlPoint `xml:"topLeft"`
	BottomRight xmlPoint `xml:"bottomRight"`
}

type xmlGroup struct {
	ID      int    `xml:"id,attr"`
	Name    string `xml:"name,attr"`
	Strokes []int  `xml:"strokeRef"`
}

type xmlStroke struct {
	ID      int                `xml:"id,attr"`
	Forward []xmlPointDistance `xml:"forward>pointDistance"`
	Reverse []xmlPointDistance `xml:"reverse>pointDistance"`
}

type xmlOverlap struct {
	FirstStroke  int  `xml:"firstStroke,attr"`
	SecondStroke int  `xml:"secondStroke,attr"`
	Required     bool `xml:"required,attr"`
}

type xmlHanDefinition struct {
	XMLName             xml.Name     `xml:"hanDefinition"`
	Unicode              string       `xml:"unicode,attr"`
	Length               float64      `xml:"length"`
	Bounds               xmlBounds    `xml:"bounds"`
	MinimumStrokeLength  float64      `xml:"minimumStrokeLength"`
	Groups               []xmlGroup   `xml:"groups>group"`
	Strokes              []xmlStroke  `xml:"strokes>stroke"`
	Overlaps             []xmlOverlap `xml:"overlaps>overlap"`
}

func toPointDistances(in []xmlPointDistance) []PointDistance {
	out := make([]PointDistance, len(in))
	for i, p := range in {
		out[i] = PointDistance{Point: geom.Point{X: p.X, Y: p.Y}, Distance: p.Distance}
	}
	return out
}

// Load parses a Han reference document from r. The caller is responsible
// for resolving r from wherever the document lives (HTTP, disk, embedded
// asset) — Load itself never performs I/O beyond reading r.
func Load(r io.Reader) (*HanRef, error) {
	var doc xmlHanDefinition
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, stylerr.XML("hanDefinition", "malformed Han document: %s", err)
	}
	if doc.Unicode == "" {
		return nil, stylerr.XML("unicode", "hanDefinition missing required unicode attribute")
	}

	h := &HanRef{
		Unicode:             doc.Unicode,
		Length:              doc.Length,
		MinimumStrokeLength: doc.MinimumStrokeLength,
		Bounds: geom.Rectangle{
			TopLeft:     geom.Point{X: doc.Bounds.TopLeft.X, Y: doc.Bounds.TopLeft.Y},
			BottomRight: geom.Point{X: doc.Bounds.BottomRight.X, Y: doc.Bounds.BottomRight.Y},
		},
	}

	for _, xs := range doc.Strokes {
		if len(xs.Forward) == 0 {
			return nil, stylerr.XML("stroke", "stroke %d has no forward points", xs.ID)
		}
		fwd := toPointDistances(xs.Forward)
		rev := toPointDistances(xs.Reverse)
		h.Strokes = append(h.Strokes, Stroke{
			ID:        xs.ID,
			Forward:   fwd,
			Reverse:   rev,
			Bounds:    computeBounds(fwd),
			ArcLength: fwd[len(fwd)-1].Distance,
		})
	}

	for _, xg := range doc.Groups {
		g := Group{ID: xg.ID, Name: xg.Name, StrokeIDs: append([]int(nil), xg.Strokes...)}
		var bounds geom.Rectangle
		first := true
		for _, sid := range g.StrokeIDs {
			s, ok := h.StrokeByID(sid)
			if !ok {
				return nil, stylerr.XML("group", "group %d references unknown stroke %d", xg.ID, sid)
			}
			if first {
				bounds = s.Bounds
				first = false
			} else {
				bounds = bounds.Union(s.Bounds)
			}
		}
		g.Bounds = bounds
		h.Groups = append(h.Groups, g)
	}

	for _, xo := range doc.Overlaps {
		h.Overlaps = append(h.Overlaps, OverlapRule{
			First: xo.FirstStroke, Second: xo.SecondStroke, Required: xo.Required,
		})
	}

	return h, nil
}
