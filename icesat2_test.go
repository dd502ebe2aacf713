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

package icesat2

import (
	"reflect"
	"testing"
	"time"
)

func TestValidProduct(t *testing.T) {
	p, err := ValidProduct("atl06")
	if err != nil {
		t.Fatal(err)
	}
	if p != "ATL06" {
		t.Errorf("want ATL06, got %s", p)
	}
	if _, err := ValidProduct("ATL99"); err == nil {
		t.Error("ATL99 should not be a valid product")
	}
	if _, err := ValidProduct(""); err == nil {
		t.Error("empty product should be invalid")
	}
}

func TestValidVersion(t *testing.T) {
	tests := []struct {
		v, latest, want string
		err             bool
	}{
		{"4", "", "004", false},
		{"004", "", "004", false},
		{"1", "005", "001", false},
		{"6", "005", "", true},
		{"0", "", "", true},
		{"abc", "", "", true},
	}
	for _, test := range tests {
		got, err := ValidVersion(test.v, test.latest)
		if test.err != (err != nil) {
			t.Errorf("%s: unexpected error state: %v", test.v, err)
			continue
		}
		if got != test.want {
			t.Errorf("version %s: want %s, got %s", test.v, test.want, got)
		}
	}
}

func TestSpot(t *testing.T) {
	tests := []struct {
		gt       string
		scOrient int
		want     int
	}{
		{"gt1l", 1, 2},
		{"gt1r", 1, 1},
		{"gt2l", 1, 4},
		{"gt2r", 1, 3},
		{"gt3l", 1, 6},
		{"gt3r", 1, 5},
		{"gt1l", 0, 5},
		{"gt1r", 0, 6},
		{"gt2l", 0, 3},
		{"gt2r", 0, 4},
		{"gt3l", 0, 1},
		{"gt3r", 0, 2},
	}
	for _, test := range tests {
		got, err := Spot(test.gt, test.scOrient)
		if err != nil {
			t.Fatal(err)
		}
		if got != test.want {
			t.Errorf("%s orientation %d: want spot %d, got %d",
				test.gt, test.scOrient, test.want, got)
		}
	}
	if _, err := Spot("gt4l", 1); err == nil {
		t.Error("gt4l should not be a valid ground track")
	}
	if _, err := Spot("gt1l", 2); err == nil {
		t.Error("orientation 2 should be invalid")
	}
}

func TestDefaultVariables(t *testing.T) {
	vars := DefaultVariables("ATL11")
	want := []string{"delta_time", "latitude", "longitude",
		"h_corr", "h_corr_sigma", "h_corr_sigma_systematic", "quality_summary"}
	if !reflect.DeepEqual(vars, want) {
		t.Errorf("want %v, got %v", want, vars)
	}
	// Products without a curated list fall back to the common variables.
	if got := DefaultVariables("ATL03"); !reflect.DeepEqual(got, []string{"delta_time", "latitude", "longitude"}) {
		t.Errorf("unexpected ATL03 default list: %v", got)
	}
}

func TestParseGranuleID(t *testing.T) {
	g, err := ParseGranuleID("ATL06_20190221121851_08410203_005_01.h5")
	if err != nil {
		t.Fatal(err)
	}
	want := &Granule{
		Product:   "ATL06",
		StartTime: time.Date(2019, 2, 21, 12, 18, 51, 0, time.UTC),
		RGT:       "0841",
		Cycle:     "02",
		Region:    "03",
		Version:   "005",
		Revision:  "01",
	}
	if !reflect.DeepEqual(g, want) {
		t.Errorf("want %+v, got %+v", want, g)
	}
}

func TestParseGranuleIDProcessed(t *testing.T) {
	// NSIDC prepends "processed_" to subsetted granules.
	g, err := ParseGranuleID("/data/processed_ATL09QL_20200402012233_01170701_005_01.h5")
	if err != nil {
		t.Fatal(err)
	}
	if g.Product != "ATL09QL" {
		t.Errorf("want ATL09QL, got %s", g.Product)
	}
	if g.RGT != "0117" || g.Cycle != "07" {
		t.Errorf("unexpected orbit fields: %+v", g)
	}
}

func TestParseGranuleIDInvalid(t *testing.T) {
	for _, id := range []string{"", "foo.h5", "ATL06_2019_08410203_005_01.h5", "ATL06_20190221121851_08410203_005_01.nc"} {
		if _, err := ParseGranuleID(id); err == nil {
			t.Errorf("%s should not parse", id)
		}
	}
}
