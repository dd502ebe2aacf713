/*
Copyright © 2022 the icesat2 authors.
This file is part of the icesat2 client.

The icesat2 client is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

The icesat2 client is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package spatial validates and formats the spatial extents used to
// search for and subset ICESat-2 granules. An extent can be a
// bounding box, an explicit polygon, or a polygon read from a
// geospatial file, and it can be formatted either for the CMR
// metadata search or for the NSIDC EGI subsetter.
package spatial

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
)

// Extent types.
const (
	TypeBoundingBox = "bounding_box"
	TypePolygon     = "polygon"
)

// maxCMRVertices is the maximum number of polygon vertices submitted
// to the CMR search; larger polygons are simplified first.
const maxCMRVertices = 300

// An Extent is a validated spatial area of interest.
type Extent struct {
	extType string
	bbox    []float64    // [W, S, E, N]; only for bounding boxes.
	poly    geom.Polygon // closed ring; only for polygons.
	file    string       // source file, if the extent came from one.

	// dateline reports whether the extent crosses the International
	// Date Line, in which case longitudes are kept in 0-360 space
	// internally.
	dateline bool
}

// Type returns the extent type, either "bounding_box" or "polygon".
func (e *Extent) Type() string { return e.extType }

// File returns the path of the geospatial file the extent was read
// from, or "" if it was specified directly.
func (e *Extent) File() string { return e.file }

// Dateline reports whether the extent crosses the date line.
func (e *Extent) Dateline() bool { return e.dateline }

func (e *Extent) String() string {
	return fmt.Sprintf("Extent type: %s\nCoordinates: %v", e.extType, e.Coords())
}

// Coords returns the extent coordinates as a flat list: [W, S, E, N]
// for a bounding box, or [lon1, lat1, lon2, lat2, ...] with a closed
// ring for a polygon. Longitudes are reported in -180 to 180 space.
func (e *Extent) Coords() []float64 {
	if e.extType == TypeBoundingBox {
		o := make([]float64, len(e.bbox))
		copy(o, e.bbox)
		return o
	}
	o := make([]float64, 0, 2*len(e.poly[0]))
	for _, p := range e.poly[0] {
		o = append(o, fromDateline(p.X, e.dateline), p.Y)
	}
	return o
}

// Polygon returns the extent as a polygon. Bounding boxes are
// converted to their four-corner ring.
func (e *Extent) Polygon() geom.Polygon {
	if e.extType == TypePolygon {
		return e.poly
	}
	w, s, x, n := e.bbox[0], e.bbox[1], e.bbox[2], e.bbox[3]
	if e.dateline {
		w, x = toDateline(w), toDateline(x)
	}
	return geom.Polygon{{
		{X: w, Y: s}, {X: x, Y: s}, {X: x, Y: n}, {X: w, Y: n}, {X: w, Y: s},
	}}
}

// FromBoundingBox creates an Extent from a [W, S, E, N] bounding box
// in decimal degrees. If xdateline is true the box is interpreted as
// crossing the date line (W east of E in -180 to 180 space).
func FromBoundingBox(box []float64, xdateline bool) (*Extent, error) {
	if len(box) != 4 {
		return nil, fmt.Errorf("spatial: a bounding box must have exactly 4 coordinates [W,S,E,N]; got %d", len(box))
	}
	w, s, x, n := box[0], box[1], box[2], box[3]
	for _, lon := range []float64{w, x} {
		if lon < -180 || lon > 180 {
			return nil, fmt.Errorf("spatial: longitude %g is outside -180 to 180", lon)
		}
	}
	for _, lat := range []float64{s, n} {
		if lat < -90 || lat > 90 {
			return nil, fmt.Errorf("spatial: latitude %g is outside -90 to 90", lat)
		}
	}
	if s >= n {
		return nil, fmt.Errorf("spatial: bounding box southern latitude (%g) must be south of the northern latitude (%g)", s, n)
	}
	if w > x && !xdateline {
		return nil, fmt.Errorf("spatial: bounding box crosses the date line (W=%g > E=%g); set the dateline option if that is intended", w, x)
	}
	return &Extent{
		extType:  TypeBoundingBox,
		bbox:     []float64{w, s, x, n},
		dateline: xdateline && w > x,
	}, nil
}

// FromCoords creates a polygon Extent from a flat list of
// [lon1, lat1, lon2, lat2, ...] vertex coordinates in decimal
// degrees. The ring is closed automatically if the first and last
// vertices differ. At least 4 distinct vertices are required.
func FromCoords(coords []float64, xdateline bool) (*Extent, error) {
	if len(coords)%2 != 0 {
		return nil, fmt.Errorf("spatial: polygon coordinate list must contain longitude,latitude pairs; got %d values", len(coords))
	}
	pairs := make([][2]float64, 0, len(coords)/2)
	for i := 0; i < len(coords); i += 2 {
		pairs = append(pairs, [2]float64{coords[i], coords[i+1]})
	}
	return FromPairs(pairs, xdateline)
}

// FromPairs creates a polygon Extent from (longitude, latitude)
// vertex pairs.
func FromPairs(pairs [][2]float64, xdateline bool) (*Extent, error) {
	if len(pairs) > 0 && pairs[0] != pairs[len(pairs)-1] {
		pairs = append(pairs, pairs[0]) // close the ring
	}
	if len(pairs) < 5 { // 4 distinct vertices plus the closure
		return nil, fmt.Errorf("spatial: a polygon requires at least 4 vertices; got %d", len(pairs)-1)
	}
	ring := make(geom.Path, len(pairs))
	for i, p := range pairs {
		lon, lat := p[0], p[1]
		if lon < -180 || lon > 180 {
			return nil, fmt.Errorf("spatial: longitude %g is outside -180 to 180", lon)
		}
		if lat < -90 || lat > 90 {
			return nil, fmt.Errorf("spatial: latitude %g is outside -90 to 90", lat)
		}
		ring[i] = geom.Point{X: toDatelineIf(lon, xdateline), Y: lat}
	}
	return &Extent{
		extType:  TypePolygon,
		poly:     geom.Polygon{ring},
		dateline: xdateline,
	}, nil
}

// ForCMR formats the extent for a CMR granule search, returning the
// parameter name ("bounding_box" or "polygon") and value. CMR
// requires polygon vertices in counter-clockwise order; the ring is
// reversed if necessary, and polygons with more than 300 vertices are
// simplified.
func (e *Extent) ForCMR() (key, value string) {
	if e.extType == TypeBoundingBox {
		return "bounding_box", joinFloats(e.bbox)
	}
	ring := counterClockwise(e.simplified()[0])
	coords := make([]float64, 0, 2*len(ring))
	for _, p := range ring {
		coords = append(coords, fromDateline(p.X, e.dateline), p.Y)
	}
	return "polygon", joinFloats(coords)
}

// ForEGI formats the extent for the NSIDC EGI subsetter, returning
// the parameter name ("bbox" or "Boundingshape") and value. Polygons
// are sent as a GeoJSON geometry string.
func (e *Extent) ForEGI() (key, value string) {
	if e.extType == TypeBoundingBox {
		return "bbox", joinFloats(e.bbox)
	}
	ring := counterClockwise(e.simplified()[0])
	var b strings.Builder
	b.WriteString(`{"type":"Polygon","coordinates":[[`)
	for i, p := range ring {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "[%s,%s]",
			strconv.FormatFloat(fromDateline(p.X, e.dateline), 'f', -1, 64),
			strconv.FormatFloat(p.Y, 'f', -1, 64))
	}
	b.WriteString(`]]}`)
	return "Boundingshape", b.String()
}

// simplified returns the extent polygon, simplified if it has more
// vertices than the CMR accepts. The simplification tolerance grows
// until the vertex count is under the limit.
func (e *Extent) simplified() geom.Polygon {
	poly := e.poly
	tol := 0.001
	for len(poly[0]) > maxCMRVertices {
		s, ok := geom.Geom(poly).(geom.Simplifier)
		if !ok {
			break
		}
		p, ok := s.Simplify(tol).(geom.Polygon)
		if !ok || len(p) == 0 || len(p[0]) < 5 {
			break
		}
		poly = p
		tol *= 2
	}
	return poly
}

// counterClockwise returns ring in counter-clockwise vertex order,
// reversing it if necessary.
func counterClockwise(ring geom.Path) geom.Path {
	// Shoelace formula; positive signed area means counter-clockwise.
	var area float64
	for i := 0; i < len(ring)-1; i++ {
		area += (ring[i+1].X - ring[i].X) * (ring[i+1].Y + ring[i].Y)
	}
	if area < 0 { // already counter-clockwise
		return ring
	}
	o := make(geom.Path, len(ring))
	for i, p := range ring {
		o[len(ring)-1-i] = p
	}
	return o
}

func joinFloats(v []float64) string {
	s := make([]string, len(v))
	for i, f := range v {
		s[i] = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.Join(s, ",")
}

// toDateline translates a longitude from -180 to 180 space into
// 0 to 360 space so that geometries crossing the date line remain
// contiguous.
func toDateline(lon float64) float64 {
	if lon < 0 {
		return lon + 360
	}
	return lon
}

func toDatelineIf(lon float64, xdateline bool) float64 {
	if xdateline {
		return toDateline(lon)
	}
	return lon
}

// fromDateline translates a longitude back into -180 to 180 space.
func fromDateline(lon float64, dateline bool) float64 {
	if dateline && lon > 180 {
		return lon - 360
	}
	return lon
}
