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
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/spatialdata/icesat2/variables"
)

func granuleDir(t *testing.T, names ...string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "icesat2_read_test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	for _, name := range names {
		if err := ioutil.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestNew(t *testing.T) {
	dir := granuleDir(t,
		"ATL06_20190222010344_08490205_005_01.h5",
		"processed_ATL06_20190221121851_08410203_005_01.h5",
		"notes.txt",
	)
	r, err := New(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Product() != "ATL06" || r.ProductVersion() != "005" {
		t.Errorf("product %s version %s; want ATL06 005", r.Product(), r.ProductVersion())
	}
	// Files come back in acquisition order, not name order.
	want := []string{
		filepath.Join(dir, "processed_ATL06_20190221121851_08410203_005_01.h5"),
		filepath.Join(dir, "ATL06_20190222010344_08490205_005_01.h5"),
	}
	if !reflect.DeepEqual(r.Files(), want) {
		t.Errorf("files = %v; want %v", r.Files(), want)
	}
}

func TestNew_patterns(t *testing.T) {
	dir := granuleDir(t,
		"ATL06_20190221121851_08410203_005_01.h5",
		"ATL06_20190222010344_08490205_005_01.h5",
	)
	r, err := New(dir, []string{"*_0841*.h5"})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Files()) != 1 {
		t.Fatalf("got %d files; want 1", len(r.Files()))
	}

	if _, err := New(dir, []string{"*.nc"}); err == nil {
		t.Error("expected error when no files match")
	}
}

func TestNew_mixedProducts(t *testing.T) {
	dir := granuleDir(t,
		"ATL06_20190221121851_08410203_005_01.h5",
		"ATL08_20190222010344_08490205_005_01.h5",
	)
	if _, err := New(dir, nil); err == nil {
		t.Error("expected error for mixed products")
	}

	dir = granuleDir(t,
		"ATL06_20190221121851_08410203_004_01.h5",
		"ATL06_20190222010344_08490205_005_01.h5",
	)
	if _, err := New(dir, nil); err == nil {
		t.Error("expected error for mixed versions")
	}
}

// fakeGroup implements api.Group for files that would otherwise be
// real HDF5 granules.
type fakeGroup struct {
	vars map[string]interface{}
	subs map[string]*fakeGroup
}

func (g *fakeGroup) Close()                       {}
func (g *fakeGroup) Attributes() api.AttributeMap { return nil }
func (g *fakeGroup) ListVariables() []string {
	var o []string
	for v := range g.vars {
		o = append(o, v)
	}
	sort.Strings(o)
	return o
}
func (g *fakeGroup) GetVariable(name string) (*api.Variable, error) {
	v, ok := g.vars[name]
	if !ok {
		return nil, fmt.Errorf("no variable %s", name)
	}
	return &api.Variable{Values: v}, nil
}
func (g *fakeGroup) GetVarGetter(name string) (api.VarGetter, error) {
	return nil, fmt.Errorf("not supported")
}
func (g *fakeGroup) GetDimension(name string) (uint64, bool) { return 0, false }
func (g *fakeGroup) ListDimensions() []string                { return nil }
func (g *fakeGroup) ListSubgroups() []string {
	var o []string
	for s := range g.subs {
		o = append(o, s)
	}
	sort.Strings(o)
	return o
}
func (g *fakeGroup) GetGroup(name string) (api.Group, error) {
	if name == "/" {
		return g, nil
	}
	sub, ok := g.subs[name]
	if !ok {
		return nil, fmt.Errorf("no group %s", name)
	}
	return sub, nil
}
func (g *fakeGroup) ListTypes() []string             { return nil }
func (g *fakeGroup) GetType(string) (string, bool)   { return "", false }
func (g *fakeGroup) GetGoType(string) (string, bool) { return "", false }

func beamGroup(h []float64) *fakeGroup {
	n := len(h)
	dt := make([]float64, n)
	lat := make([]float64, n)
	lon := make([]float64, n)
	for i := range h {
		dt[i] = float64(i)
		lat[i] = 70 + float64(i)*0.01
		lon[i] = -50 + float64(i)*0.01
	}
	return &fakeGroup{
		subs: map[string]*fakeGroup{
			"land_ice_segments": {vars: map[string]interface{}{
				"h_li":       h,
				"delta_time": dt,
				"latitude":   lat,
				"longitude":  lon,
			}},
		},
	}
}

func TestLoad(t *testing.T) {
	dir := granuleDir(t,
		"ATL06_20190221121851_08410203_005_01.h5",
		"ATL06_20190222010344_08490205_005_01.h5",
	)
	granule1 := &fakeGroup{subs: map[string]*fakeGroup{
		"gt1l": beamGroup([]float64{10, 11, 12}),
		"gt2l": beamGroup([]float64{20, 21}),
	}}
	// The second granule's subset dropped gt2l entirely.
	granule2 := &fakeGroup{subs: map[string]*fakeGroup{
		"gt1l": beamGroup([]float64{13, 14}),
	}}
	oldOpen := openFile
	openFile = func(fname string) (api.Group, error) {
		switch filepath.Base(fname) {
		case "ATL06_20190221121851_08410203_005_01.h5":
			return granule1, nil
		case "ATL06_20190222010344_08490205_005_01.h5":
			return granule2, nil
		}
		return nil, fmt.Errorf("unexpected file %s", fname)
	}
	defer func() { openFile = oldOpen }()

	r, err := New(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	avail := []string{
		"gt1l/land_ice_segments/h_li",
		"gt1l/land_ice_segments/latitude",
		"gt1l/land_ice_segments/longitude",
		"gt1l/land_ice_segments/delta_time",
		"gt2l/land_ice_segments/h_li",
	}
	v, err := variables.New("ATL06", avail)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Append(variables.Selection{Vars: []string{"h_li"}}); err != nil {
		t.Fatal(err)
	}
	d, err := r.Load(v)
	if err != nil {
		t.Fatal(err)
	}

	if want := []string{"gt1l", "gt2l"}; !reflect.DeepEqual(d.Beams(), want) {
		t.Errorf("beams = %v; want %v", d.Beams(), want)
	}
	s := d.Get("gt1l", "gt1l/land_ice_segments/h_li")
	if s == nil {
		t.Fatal("gt1l h_li series not loaded")
	}
	if want := []float64{10, 11, 12, 13, 14}; !reflect.DeepEqual(s.Values, want) {
		t.Errorf("gt1l h_li = %v; want %v", s.Values, want)
	}
	if len(s.Latitude) != 5 || len(s.Longitude) != 5 || len(s.DeltaTime) != 5 {
		t.Errorf("coordinate lengths = %d/%d/%d; want 5 each",
			len(s.Latitude), len(s.Longitude), len(s.DeltaTime))
	}
	if len(s.Sources) != 2 {
		t.Fatalf("got %d sources; want 2", len(s.Sources))
	}
	if s.Sources[0].RGT != "0841" || s.Sources[1].RGT != "0849" {
		t.Errorf("source RGTs = %s, %s; want 0841, 0849", s.Sources[0].RGT, s.Sources[1].RGT)
	}
	if s.Sources[1].Offset != 3 || s.Sources[1].Len != 2 {
		t.Errorf("second source at offset %d len %d; want 3, 2", s.Sources[1].Offset, s.Sources[1].Len)
	}

	s2 := d.Get("gt2l", "gt2l/land_ice_segments/h_li")
	if s2 == nil {
		t.Fatal("gt2l h_li series not loaded")
	}
	if want := []float64{20, 21}; !reflect.DeepEqual(s2.Values, want) {
		t.Errorf("gt2l h_li = %v; want %v", s2.Values, want)
	}
	if len(s2.Sources) != 1 {
		t.Errorf("got %d gt2l sources; want 1 (absent beams are skipped, not errors)", len(s2.Sources))
	}
}

func TestVariables(t *testing.T) {
	dir := granuleDir(t, "ATL06_20190221121851_08410203_005_01.h5")
	granule := &fakeGroup{
		vars: map[string]interface{}{"ds_surf_type": []int32{1, 2}},
		subs: map[string]*fakeGroup{
			"gt1l": beamGroup([]float64{1}),
		},
	}
	oldOpen := openFile
	openFile = func(fname string) (api.Group, error) { return granule, nil }
	defer func() { openFile = oldOpen }()

	r, err := New(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	v, err := r.Variables()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"ds_surf_type",
		"gt1l/land_ice_segments/delta_time",
		"gt1l/land_ice_segments/h_li",
		"gt1l/land_ice_segments/latitude",
		"gt1l/land_ice_segments/longitude",
	}
	if !reflect.DeepEqual(v.Avail(), want) {
		t.Errorf("available variables = %v; want %v", v.Avail(), want)
	}
}
