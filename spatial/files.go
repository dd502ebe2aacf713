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

package spatial

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
)

// FromFile creates a polygon Extent from a geospatial polygon file.
// Currently supported formats are shapefiles (.shp) and GeoJSON
// (.geojson or .json). Per NSIDC requirements the file may contain
// only one polygon feature; multi-feature files are an error.
func FromFile(path string, xdateline bool) (*Extent, error) {
	poly, err := readPolygonFile(path)
	if err != nil {
		return nil, err
	}
	if len(poly) != 1 {
		return nil, fmt.Errorf("spatial: %s contains %d rings; NSIDC requires a single polygon feature", path, len(poly))
	}
	ring := poly[0]
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	pairs := make([][2]float64, len(ring))
	for i, p := range ring {
		pairs[i] = [2]float64{p.X, p.Y}
	}
	e, err := FromPairs(pairs, xdateline)
	if err != nil {
		return nil, fmt.Errorf("spatial: reading %s: %v", path, err)
	}
	e.file = path
	return e, nil
}

func readPolygonFile(path string) (geom.Polygon, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return readShapefile(path)
	case ".geojson", ".json":
		return readGeoJSON(path)
	}
	return nil, fmt.Errorf("spatial: %s: unsupported spatial file format (use .shp or .geojson)", path)
}

func readShapefile(path string) (geom.Polygon, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("spatial: opening shapefile %s: %v", path, err)
	}
	defer d.Close()
	var poly geom.Polygon
	n := 0
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		n++
		if n > 1 {
			return nil, fmt.Errorf("spatial: shapefile %s contains more than one feature", path)
		}
		p, ok := g.(geom.Polygon)
		if !ok {
			return nil, fmt.Errorf("spatial: shapefile %s: feature is a %T, not a polygon", path, g)
		}
		poly = p
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("spatial: reading shapefile %s: %v", path, err)
	}
	if poly == nil {
		return nil, fmt.Errorf("spatial: shapefile %s contains no features", path)
	}
	return poly, nil
}

func readGeoJSON(path string) (geom.Polygon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("spatial: opening %s: %v", path, err)
	}
	defer f.Close()
	b, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("spatial: reading %s: %v", path, err)
	}
	g, err := geojson.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("spatial: decoding %s: %v", path, err)
	}
	switch p := g.(type) {
	case geom.Polygon:
		return p, nil
	case geom.MultiPolygon:
		if len(p) != 1 {
			return nil, fmt.Errorf("spatial: %s contains %d polygons; NSIDC requires exactly one", path, len(p))
		}
		return p[0], nil
	}
	return nil, fmt.Errorf("spatial: %s: geometry is a %T, not a polygon", path, g)
}

// WriteShapefile saves the extent polygon as a shapefile so that it
// can be uploaded to the subsetter for shapefile-based spatial
// subsetting. Any existing shapefile components at the same path are
// overwritten.
func (e *Extent) WriteShapefile(path string) error {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range []string{".shp", ".prj", ".dbf", ".shx"} {
		os.Remove(base + ext)
	}
	fields := []goshp.Field{goshp.NumberField("id", 10)}
	enc, err := shp.NewEncoderFromFields(base+".shp", goshp.POLYGON, fields...)
	if err != nil {
		return fmt.Errorf("spatial: creating shapefile %s: %v", path, err)
	}
	if err := enc.EncodeFields(e.Polygon(), 0); err != nil {
		return fmt.Errorf("spatial: writing shapefile %s: %v", path, err)
	}
	enc.Close()
	return nil
}
