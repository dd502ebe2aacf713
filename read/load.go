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

package read

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/spatialdata/icesat2"
	"github.com/spatialdata/icesat2/variables"
)

// openFile is a hook for tests that cannot easily build granule
// files.
var openFile func(fname string) (api.Group, error) = netcdf.Open

var beamGroupRe = regexp.MustCompile(`^(gt[123][lr]|profile_[123]|pt[123])$`)

// coordinates are loaded alongside every requested variable when
// their group provides them.
var coordinates = []string{"delta_time", "latitude", "longitude"}

// A Source records the granule file one segment of a merged series
// came from.
type Source struct {
	File       string
	RGT, Cycle string
	Start      time.Time

	// Offset and Len locate the segment within the merged series.
	Offset, Len int
}

// A Series is one variable along one beam (or along the whole
// product for non-beam variables), merged across granule files in
// acquisition order.
type Series struct {
	// Beam is the beam group name (e.g. gt1l), or "" for
	// variables outside the beam groups.
	Beam string

	// Path is the full variable path below the beam group.
	Path string

	Values []float64

	// DeltaTime, Latitude and Longitude hold the coordinate
	// variables from the same group, when the group provides
	// them.
	DeltaTime, Latitude, Longitude []float64

	Sources []Source
}

// A Dataset holds the merged series loaded from a set of granules.
type Dataset struct {
	Product, Version string
	Series           []*Series
}

// Get returns the series for the given beam and variable path, or
// nil if it was not loaded.
func (d *Dataset) Get(beam, path string) *Series {
	for _, s := range d.Series {
		if s.Beam == beam && s.Path == path {
			return s
		}
	}
	return nil
}

// Beams returns the sorted beam names present in the dataset.
func (d *Dataset) Beams() []string {
	seen := make(map[string]bool)
	var o []string
	for _, s := range d.Series {
		if s.Beam != "" && !seen[s.Beam] {
			seen[s.Beam] = true
			o = append(o, s.Beam)
		}
	}
	sort.Strings(o)
	return o
}

// Load reads the wanted variables from every granule file, merging
// them into per-beam series. Variables absent from an individual
// granule (subsetting can drop empty beams) are skipped for that
// granule.
func (r *Read) Load(wanted *variables.Variables) (*Dataset, error) {
	paths := wantedPaths(wanted)
	if len(paths) == 0 {
		return nil, fmt.Errorf("read: no variables selected; append to the wanted list first")
	}
	d := &Dataset{Product: r.product, Version: r.version}
	series := make(map[[2]string]*Series)
	for _, file := range r.files {
		gran, err := icesat2.ParseGranuleID(file)
		if err != nil {
			return nil, fmt.Errorf("read: %v", err)
		}
		g, err := openFile(file)
		if err != nil {
			return nil, fmt.Errorf("read: opening %s: %v", file, err)
		}
		err = r.loadGranule(g, gran, file, paths, series, d)
		g.Close()
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (r *Read) loadGranule(g api.Group, gran *icesat2.Granule, file string, paths []string, series map[[2]string]*Series, d *Dataset) error {
	for _, path := range paths {
		parts := splitPath(path)
		beam := ""
		if beamGroupRe.MatchString(parts[0]) {
			beam = parts[0]
		}
		parent, err := descend(g, parts[:len(parts)-1])
		if err != nil {
			continue // beam or group absent from this granule
		}
		closeParent := func() {
			if parent != g {
				parent.Close()
			}
		}
		values, err := readFloats(parent, parts[len(parts)-1])
		if err != nil {
			closeParent()
			if _, absent := err.(errVarNotFound); absent {
				continue
			}
			return fmt.Errorf("read: %s: %s: %v", file, path, err)
		}
		key := [2]string{beam, path}
		s := series[key]
		if s == nil {
			s = &Series{Beam: beam, Path: path}
			series[key] = s
			d.Series = append(d.Series, s)
		}
		s.Sources = append(s.Sources, Source{
			File:   file,
			RGT:    gran.RGT,
			Cycle:  gran.Cycle,
			Start:  gran.StartTime,
			Offset: len(s.Values),
			Len:    len(values),
		})
		s.Values = append(s.Values, values...)
		for i, coord := range coordinates {
			cv, err := readFloats(parent, coord)
			if err != nil {
				continue
			}
			switch i {
			case 0:
				s.DeltaTime = append(s.DeltaTime, cv...)
			case 1:
				s.Latitude = append(s.Latitude, cv...)
			case 2:
				s.Longitude = append(s.Longitude, cv...)
			}
		}
		closeParent()
	}
	return nil
}

// descend walks nested groups. The caller must Close the returned
// group.
func descend(g api.Group, groups []string) (api.Group, error) {
	cur := g
	for i, name := range groups {
		next, err := cur.GetGroup(name)
		if i > 0 {
			cur.Close()
		}
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

type errVarNotFound string

func (e errVarNotFound) Error() string { return fmt.Sprintf("variable %s not found", string(e)) }

// readFloats reads a 1-D variable from the group as float64.
func readFloats(g api.Group, name string) ([]float64, error) {
	found := false
	for _, v := range g.ListVariables() {
		if v == name {
			found = true
			break
		}
	}
	if !found {
		return nil, errVarNotFound(name)
	}
	v, err := g.GetVariable(name)
	if err != nil {
		return nil, err
	}
	return toFloats(v.Values)
}

func toFloats(values interface{}) ([]float64, error) {
	switch v := values.(type) {
	case []float64:
		return v, nil
	case []float32:
		o := make([]float64, len(v))
		for i, x := range v {
			o[i] = float64(x)
		}
		return o, nil
	case []int64:
		o := make([]float64, len(v))
		for i, x := range v {
			o[i] = float64(x)
		}
		return o, nil
	case []int32:
		o := make([]float64, len(v))
		for i, x := range v {
			o[i] = float64(x)
		}
		return o, nil
	case []int16:
		o := make([]float64, len(v))
		for i, x := range v {
			o[i] = float64(x)
		}
		return o, nil
	case []int8:
		o := make([]float64, len(v))
		for i, x := range v {
			o[i] = float64(x)
		}
		return o, nil
	case []uint8:
		o := make([]float64, len(v))
		for i, x := range v {
			o[i] = float64(x)
		}
		return o, nil
	case []uint16:
		o := make([]float64, len(v))
		for i, x := range v {
			o[i] = float64(x)
		}
		return o, nil
	case []uint32:
		o := make([]float64, len(v))
		for i, x := range v {
			o[i] = float64(x)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("unsupported type %T; only 1-D numeric variables can be loaded", values)
	}
}

// wantedPaths flattens the wanted variable map into a sorted path
// list.
func wantedPaths(wanted *variables.Variables) []string {
	seen := make(map[string]bool)
	var o []string
	for _, paths := range wanted.Wanted() {
		for _, p := range paths {
			if !seen[p] {
				seen[p] = true
				o = append(o, p)
			}
		}
	}
	sort.Strings(o)
	return o
}

// walkPaths enumerates every variable path in the file.
func walkPaths(g api.Group, prefix string, paths *[]string) {
	for _, v := range g.ListVariables() {
		*paths = append(*paths, prefix+v)
	}
	for _, sub := range g.ListSubgroups() {
		sg, err := g.GetGroup(sub)
		if err != nil {
			continue
		}
		walkPaths(sg, prefix+sub+"/", paths)
		sg.Close()
	}
}
