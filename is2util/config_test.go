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

package is2util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/lnashier/viper"

	"github.com/spatialdata/icesat2/query"
)

func helperLog(t *testing.T) chan string {
	outChan := make(chan string)
	go func() {
		for {
			msg := <-outChan
			t.Log(msg)
		}
	}()
	return outChan
}

func testCfg(settings map[string]interface{}) *viper.Viper {
	cfg := viper.New()
	for k, v := range settings {
		cfg.Set(k, v)
	}
	return cfg
}

func collectionServer(t *testing.T) func() {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"feed":{"entry":[{"short_name":%q,"version_id":"005","dataset_id":"x","summary":"y"}]}}`,
			r.URL.Query().Get("short_name"))
	}))
	oldURL := query.CMRCollectionURL
	query.CMRCollectionURL = srv.URL
	return func() {
		query.CMRCollectionURL = oldURL
		srv.Close()
	}
}

func TestBuildQuery(t *testing.T) {
	defer collectionServer(t)()

	cfg := testCfg(map[string]interface{}{
		"Query.Product":     "ATL07",
		"Query.BoundingBox": "-55, 68, -48, 71",
		"Query.StartDate":   "2019-02-20",
		"Query.EndDate":     "2019-02-28",
		"Query.Tracks":      []string{"841"},
	})
	q, err := BuildQuery(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if q.Product != "ATL07" || q.Version != "005" {
		t.Errorf("product %s version %s; want ATL07 005", q.Product, q.Version)
	}
	key, val := q.Extent.ForCMR()
	if key != "bounding_box" || val != "-55,68,-48,71" {
		t.Errorf("extent = %s=%s; want bounding_box=-55,68,-48,71", key, val)
	}
	if got := q.Temporal.ForCMR(); got != "2019-02-20T00:00:00Z,2019-02-28T23:59:59Z" {
		t.Errorf("temporal = %q", got)
	}
	if want := []string{"0841"}; !reflect.DeepEqual(q.Tracks, want) {
		t.Errorf("tracks = %v; want %v", q.Tracks, want)
	}
}

func TestBuildQuery_polygonCoords(t *testing.T) {
	defer collectionServer(t)()

	cfg := testCfg(map[string]interface{}{
		"Query.Product": "ATL09",
		"Query.Polygon": "-55,68,-48,68,-48,71,-55,71,-55,68",
	})
	q, err := BuildQuery(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if key, _ := q.Extent.ForCMR(); key != "polygon" {
		t.Errorf("extent key = %q; want polygon", key)
	}
}

func TestBuildQuery_errors(t *testing.T) {
	defer collectionServer(t)()

	if _, err := BuildQuery(testCfg(map[string]interface{}{
		"Query.BoundingBox": "-55,68,-48,71",
	}), nil); err == nil {
		t.Error("expected error for missing product")
	}
	if _, err := BuildQuery(testCfg(map[string]interface{}{
		"Query.Product": "ATL06",
	}), nil); err == nil {
		t.Error("expected error for missing extent")
	}
	if _, err := BuildQuery(testCfg(map[string]interface{}{
		"Query.Product":     "ATL06",
		"Query.BoundingBox": "-55,68,-48,71",
		"Query.StartDate":   "2019-02-20",
	}), nil); err == nil {
		t.Error("expected error for start date without end date")
	}
}

func TestGetStringSlice(t *testing.T) {
	tests := []struct {
		val  interface{}
		want []string
	}{
		{val: "841, 849", want: []string{"841", "849"}},
		{val: []string{"841"}, want: []string{"841"}},
		{val: []interface{}{"841", "849"}, want: []string{"841", "849"}},
		{val: "", want: nil},
		{val: nil, want: nil},
	}
	for i, test := range tests {
		cfg := viper.New()
		if test.val != nil {
			cfg.Set("Query.Tracks", test.val)
		}
		got, err := GetStringSlice("Query.Tracks", cfg)
		if err != nil {
			t.Fatalf("%d: %v", i, err)
		}
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("%d: got %v; want %v", i, got, test.want)
		}
	}
}

func TestMaybeDownloadLocal(t *testing.T) {
	ctx := context.TODO()
	if k := maybeDownload(ctx, "/dev/null", helperLog(t)); k != "/dev/null" {
		t.Error("Expected /dev/null, got ", k)
	}
	if k := maybeDownload(ctx, "/blah/test/", helperLog(t)); k != "/blah/test/" {
		t.Error("Expected /blah/test/, got ", k)
	}
}
