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
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/s3blob"

	"github.com/spatialdata/icesat2/earthdata"
)

// Stage copies cloud-hosted granules (s3:// URLs as returned by a
// CMR search) into dir so they can be read locally. prov supplies
// the temporary AWS credentials; direct access only works from
// within the archive's AWS region, so CheckRegion is consulted
// first. Stage returns the local paths of the staged files.
func Stage(ctx context.Context, prov *earthdata.S3Provider, urls []string, dir string) ([]string, error) {
	if err := earthdata.CheckRegion(); err != nil {
		return nil, err
	}
	sess, err := prov.AWSSession()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("read: creating staging directory %s: %v", dir, err)
	}
	buckets := make(map[string]*blob.Bucket)
	defer func() {
		for _, b := range buckets {
			b.Close()
		}
	}()
	var files []string
	for _, u := range urls {
		loc, err := url.Parse(u)
		if err != nil || loc.Scheme != "s3" {
			return nil, fmt.Errorf("read: %q is not an s3:// URL", u)
		}
		bucket := buckets[loc.Host]
		if bucket == nil {
			if bucket, err = s3blob.OpenBucket(ctx, sess, loc.Host, nil); err != nil {
				return nil, fmt.Errorf("read: opening bucket %s: %v", loc.Host, err)
			}
			buckets[loc.Host] = bucket
		}
		key := strings.TrimPrefix(loc.Path, "/")
		dst := filepath.Join(dir, path.Base(key))
		if err := stageObject(ctx, bucket, key, dst); err != nil {
			return nil, err
		}
		files = append(files, dst)
	}
	return files, nil
}

func stageObject(ctx context.Context, bucket *blob.Bucket, key, dst string) error {
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("read: staging %s: %v", key, err)
	}
	defer r.Close()
	w, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("read: staging %s: %v", key, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("read: staging %s: %v", key, err)
	}
	return w.Close()
}
