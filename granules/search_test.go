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

package granules

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
)

const cmrPage1 = `{"feed":{"entry":[
{"producer_granule_id":"ATL06_20190221121851_08410203_005_01.h5","granule_size":"7.6","links":[
  {"rel":"http://esipfed.org/ns/fedsearch/1.1/data#","href":"https://n5eil01u.ecs.nsidc.org/DP1/ATLAS/ATL06.005/2019.02.21/ATL06_20190221121851_08410203_005_01.h5"},
  {"rel":"http://esipfed.org/ns/fedsearch/1.1/data#","href":"s3://nsidc-cumulus-prod-protected/ATLAS/ATL06/005/2019/02/21/ATL06_20190221121851_08410203_005_01.h5"},
  {"rel":"http://esipfed.org/ns/fedsearch/1.1/metadata#","href":"https://n5eil01u.ecs.nsidc.org/DP1/ATLAS/ATL06.005/ATL06_20190221121851_08410203_005_01.iso.xml"},
  {"rel":"http://esipfed.org/ns/fedsearch/1.1/data#","href":"https://search.earthdata.nasa.gov/collection","inherited":true}]},
{"producer_granule_id":"ATL06_20190222010344_08490205_005_01.h5","granule_size":"28.2","links":[
  {"rel":"http://esipfed.org/ns/fedsearch/1.1/data#","href":"https://n5eil01u.ecs.nsidc.org/DP1/ATLAS/ATL06.005/2019.02.22/ATL06_20190222010344_08490205_005_01.h5"}]}
]}}`

const cmrPage2 = `{"feed":{"entry":[
{"producer_granule_id":"ATL06_20190222121052_08560210_005_01.h5","granule_size":"14.1","links":[
  {"rel":"http://esipfed.org/ns/fedsearch/1.1/data#","href":"https://n5eil01u.ecs.nsidc.org/DP1/ATLAS/ATL06.005/2019.02.22/ATL06_20190222121052_08560210_005_01.h5"}]}
]}}`

func TestSearch(t *testing.T) {
	var pagesRequested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page_num")
		pagesRequested = append(pagesRequested, page)
		if short := r.URL.Query().Get("short_name"); short != "ATL06" {
			t.Errorf("short_name = %q; want ATL06", short)
		}
		switch page {
		case "1":
			fmt.Fprint(w, cmrPage1)
		case "2":
			fmt.Fprint(w, cmrPage2)
		default:
			t.Errorf("unexpected page request %q", page)
		}
	}))
	defer srv.Close()
	oldURL := CMRGranuleURL
	CMRGranuleURL = srv.URL
	defer func() { CMRGranuleURL = oldURL }()

	params := url.Values{"short_name": []string{"ATL06"}}
	records, err := Search(nil, params, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(pagesRequested, []string{"1", "2"}) {
		t.Errorf("pages requested: %v; want [1 2]", pagesRequested)
	}
	want := []*Record{
		{
			ProducerID:   "ATL06_20190221121851_08410203_005_01.h5",
			SizeMB:       7.6,
			DownloadURLs: []string{"https://n5eil01u.ecs.nsidc.org/DP1/ATLAS/ATL06.005/2019.02.21/ATL06_20190221121851_08410203_005_01.h5"},
			CloudURLs:    []string{"s3://nsidc-cumulus-prod-protected/ATLAS/ATL06/005/2019/02/21/ATL06_20190221121851_08410203_005_01.h5"},
		},
		{
			ProducerID:   "ATL06_20190222010344_08490205_005_01.h5",
			SizeMB:       28.2,
			DownloadURLs: []string{"https://n5eil01u.ecs.nsidc.org/DP1/ATLAS/ATL06.005/2019.02.22/ATL06_20190222010344_08490205_005_01.h5"},
		},
		{
			ProducerID:   "ATL06_20190222121052_08560210_005_01.h5",
			SizeMB:       14.1,
			DownloadURLs: []string{"https://n5eil01u.ecs.nsidc.org/DP1/ATLAS/ATL06.005/2019.02.22/ATL06_20190222121052_08560210_005_01.h5"},
		},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("records = %+v; want %+v", records, want)
	}

	s := Summarize(records)
	wantSummary := &Summary{Count: 3, AvgSizeMB: (7.6 + 28.2 + 14.1) / 3, TotalMB: 7.6 + 28.2 + 14.1}
	if !reflect.DeepEqual(s, wantSummary) {
		t.Errorf("summary = %+v; want %+v", s, wantSummary)
	}

	cycles, err := Cycles(records)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"02", "02", "02"}; !reflect.DeepEqual(cycles, want) {
		t.Errorf("cycles = %v; want %v", cycles, want)
	}
	tracks, err := Tracks(records)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"0841", "0849", "0856"}; !reflect.DeepEqual(tracks, want) {
		t.Errorf("tracks = %v; want %v", tracks, want)
	}
	if want := []string{"s3://nsidc-cumulus-prod-protected/ATLAS/ATL06/005/2019/02/21/ATL06_20190221121851_08410203_005_01.h5"}; !reflect.DeepEqual(CloudURLs(records), want) {
		t.Errorf("cloud URLs = %v; want %v", CloudURLs(records), want)
	}
}

func TestSearch_error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()
	oldURL := CMRGranuleURL
	CMRGranuleURL = srv.URL
	defer func() { CMRGranuleURL = oldURL }()

	if _, err := Search(nil, url.Values{}, 10); err == nil {
		t.Fatal("expected error for HTTP 400 response")
	}
}

func TestReadableGranulePatterns(t *testing.T) {
	tests := []struct {
		cycles, tracks []string
		want           []string
	}{
		{
			cycles: []string{"03"},
			tracks: []string{"0841", "0849"},
			want: []string{
				"ATL06_??????????????_084103??_*",
				"ATL06_??????????????_084903??_*",
			},
		},
		{
			cycles: nil,
			tracks: []string{"0841"},
			want:   []string{"ATL06_??????????????_0841????_*"},
		},
		{
			cycles: []string{"03"},
			tracks: nil,
			want:   []string{"ATL06_??????????????_????03??_*"},
		},
	}
	for i, test := range tests {
		got := ReadableGranulePatterns("ATL06", test.cycles, test.tracks)
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("%d: patterns = %v; want %v", i, got, test.want)
		}
	}
}
