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
	"archive/zip"
	"bytes"
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// orderZip builds an order output zip the way the EGI does, with the
// granule files nested inside a numbered order directory.
func orderZip(t *testing.T, orderID string, files map[string]string) []byte {
	t.Helper()
	var b bytes.Buffer
	zw := zip.NewWriter(&b)
	for name, content := range files {
		w, err := zw.Create(orderID + "/" + name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return b.Bytes()
}

func TestDownload(t *testing.T) {
	zips := map[string][]byte{
		"/5000001201.zip": orderZip(t, "5000001201", map[string]string{
			"processed_ATL06_20190221121851_08410203_005_01.h5": "granule one",
		}),
		"/5000001202.zip": orderZip(t, "5000001202", map[string]string{
			"processed_ATL06_20190222010344_08490205_005_01.h5": "granule two",
		}),
	}
	requested := make(map[string]int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested[r.URL.Path]++
		z, ok := zips[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(z)
	}))
	defer srv.Close()
	oldURL := DownloadURL
	DownloadURL = srv.URL
	defer func() { DownloadURL = oldURL }()

	dir, err := ioutil.TempDir("", "icesat2_download_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	orders := []*Order{
		{ID: "5000001201", Status: "complete"},
		{ID: "5000001202", Status: "complete"},
	}
	ctx := context.Background()
	if err := Download(ctx, http.DefaultClient, orders, dir, false, nil); err != nil {
		t.Fatal(err)
	}
	for name, want := range map[string]string{
		"processed_ATL06_20190221121851_08410203_005_01.h5": "granule one",
		"processed_ATL06_20190222010344_08490205_005_01.h5": "granule two",
	} {
		b, err := ioutil.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != want {
			t.Errorf("%s content = %q; want %q", name, b, want)
		}
	}

	// Restarting skips orders already recorded in the state file.
	if err := Download(ctx, http.DefaultClient, orders, dir, true, nil); err != nil {
		t.Fatal(err)
	}
	for path, n := range requested {
		if n != 1 {
			t.Errorf("%s fetched %d times; restart should not refetch", path, n)
		}
	}

	// Without restart, everything is fetched again.
	if err := Download(ctx, http.DefaultClient, orders, dir, false, nil); err != nil {
		t.Fatal(err)
	}
	if n := requested["/5000001201.zip"]; n != 2 {
		t.Errorf("order fetched %d times; want 2 after a non-restart rerun", n)
	}
}

func TestDownload_missingOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer srv.Close()
	oldURL := DownloadURL
	DownloadURL = srv.URL
	defer func() { DownloadURL = oldURL }()

	dir, err := ioutil.TempDir("", "icesat2_download_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	orders := []*Order{{ID: "5000009999", Status: "complete"}}
	if err := Download(context.Background(), http.DefaultClient, orders, dir, false, nil); err == nil {
		t.Fatal("expected error for missing order zip")
	}
}
