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
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"

	"gocloud.dev/blob"
)

// stateFile records the IDs of orders that have been fully
// downloaded to a destination, so that an interrupted download can
// be restarted without refetching them.
const stateFile = ".icesat2_downloaded.json"

// Download fetches the zipped output of each order and unpacks the
// contained granule files into dest, which may be a local directory
// or a blob location (file://, gs://, s3://). The EGI nests order
// output in numbered subdirectories; those are flattened away so
// dest contains the granule files directly.
//
// If restart is true, orders recorded as complete in dest from a
// previous run are skipped. Progress messages are sent to logc if it
// is non-nil.
func Download(ctx context.Context, client Client, orders []*Order, dest string, restart bool, logc chan string) error {
	d, err := newDestination(ctx, dest)
	if err != nil {
		return err
	}
	done := make(map[string]bool)
	if restart {
		if done, err = d.readState(ctx); err != nil {
			return err
		}
	}
	for _, o := range orders {
		if done[o.ID] {
			if logc != nil {
				logc <- fmt.Sprintf("order %s already downloaded, skipping", o.ID)
			}
			continue
		}
		if logc != nil {
			logc <- fmt.Sprintf("beginning download of zipped output for order %s", o.ID)
		}
		if err := downloadOrder(ctx, client, o, d); err != nil {
			return err
		}
		done[o.ID] = true
		if err := d.writeState(ctx, done); err != nil {
			return err
		}
	}
	return nil
}

func downloadOrder(ctx context.Context, client Client, o *Order, d *destination) error {
	resp, err := client.Get(DownloadURL + "/" + o.ID + ".zip")
	if err != nil {
		return fmt.Errorf("granules: downloading order %s: %v", o.ID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("granules: downloading order %s: %s", o.ID, resp.Status)
	}
	// The zip reader needs random access, so buffer through a
	// temporary file; order outputs can be large.
	tmp, err := ioutil.TempFile("", "icesat2_order")
	if err != nil {
		return fmt.Errorf("granules: creating temporary file: %v", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()
	size, err := io.Copy(tmp, resp.Body)
	if err != nil {
		return fmt.Errorf("granules: downloading order %s: %v", o.ID, err)
	}
	zr, err := zip.NewReader(tmp, size)
	if err != nil {
		return fmt.Errorf("granules: unpacking order %s: %v", o.ID, err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		r, err := f.Open()
		if err != nil {
			return fmt.Errorf("granules: unpacking order %s: %v", o.ID, err)
		}
		// Flatten the numbered order directories the EGI wraps
		// output files in.
		err = d.write(ctx, filepath.Base(f.Name), r)
		r.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// A destination is a local directory or blob bucket that granule
// files are unpacked into.
type destination struct {
	dir    string
	bucket *blob.Bucket
}

func newDestination(ctx context.Context, dest string) (*destination, error) {
	if IsBlob(dest) {
		bucket, err := OpenBucket(ctx, dest)
		if err != nil {
			return nil, err
		}
		return &destination{bucket: bucket}, nil
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, fmt.Errorf("granules: creating download directory %s: %v", dest, err)
	}
	return &destination{dir: dest}, nil
}

func (d *destination) write(ctx context.Context, name string, r io.Reader) error {
	if d.bucket != nil {
		return writeBlob(ctx, d.bucket, name, r)
	}
	w, err := os.Create(filepath.Join(d.dir, name))
	if err != nil {
		return fmt.Errorf("granules: creating file for download: %v", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("granules: writing %s: %v", name, err)
	}
	return w.Close()
}

func (d *destination) readState(ctx context.Context) (map[string]bool, error) {
	var b []byte
	var err error
	if d.bucket != nil {
		b, err = readBlob(ctx, d.bucket, stateFile)
	} else {
		b, err = ioutil.ReadFile(filepath.Join(d.dir, stateFile))
	}
	if err != nil {
		return make(map[string]bool), nil // no prior state
	}
	done := make(map[string]bool)
	if err := json.Unmarshal(b, &done); err != nil {
		return nil, fmt.Errorf("granules: reading download state: %v", err)
	}
	return done, nil
}

func (d *destination) writeState(ctx context.Context, done map[string]bool) error {
	b, err := json.Marshal(done)
	if err != nil {
		return err
	}
	return d.write(ctx, stateFile, bytes.NewReader(b))
}
