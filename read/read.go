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

// Package read loads downloaded ICESat-2 granule files into memory,
// merging variables across granules per beam.
package read

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spatialdata/icesat2"
	"github.com/spatialdata/icesat2/variables"
)

// A Read is a set of granule files of a single product and version.
type Read struct {
	product, version string

	// files are the granule paths, sorted by acquisition start
	// time.
	files []string
}

// New collects the granule files in source, which may be a single
// granule file or a directory. Directories are matched against the
// given filename patterns (filepath.Match syntax, relative to
// source); with no patterns, every ICESat-2 granule file in the
// directory is taken. All matched granules must agree on product and
// version.
func New(source string, patterns []string) (*Read, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("read: %v", err)
	}
	var files []string
	if !info.IsDir() {
		files = []string{source}
	} else if len(patterns) == 0 {
		entries, err := os.ReadDir(source)
		if err != nil {
			return nil, fmt.Errorf("read: %v", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if _, err := icesat2.ParseGranuleID(e.Name()); err == nil {
				files = append(files, filepath.Join(source, e.Name()))
			}
		}
	} else {
		for _, p := range patterns {
			matches, err := filepath.Glob(filepath.Join(source, p))
			if err != nil {
				return nil, fmt.Errorf("read: bad filename pattern %q: %v", p, err)
			}
			files = append(files, matches...)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("read: no granule files found in %s", source)
	}
	sort.Strings(files)
	files = dedup(files)

	r := new(Read)
	type timed struct {
		file  string
		start string
	}
	var order []timed
	for _, f := range files {
		g, err := icesat2.ParseGranuleID(f)
		if err != nil {
			return nil, fmt.Errorf("read: %v", err)
		}
		if r.product == "" {
			r.product, r.version = g.Product, g.Version
		}
		if g.Product != r.product {
			return nil, fmt.Errorf("read: %s is a %s granule; expected %s (all files must be one product)",
				f, g.Product, r.product)
		}
		if g.Version != r.version {
			return nil, fmt.Errorf("read: %s is version %s; expected %s (all files must be one version)",
				f, g.Version, r.version)
		}
		order = append(order, timed{file: f, start: g.StartTime.Format("20060102150405")})
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].start < order[j].start })
	for _, o := range order {
		r.files = append(r.files, o.file)
	}
	return r, nil
}

// Product returns the data product shared by all files.
func (r *Read) Product() string { return r.product }

// ProductVersion returns the product version shared by all files.
func (r *Read) ProductVersion() string { return r.version }

// Files returns the granule paths in acquisition order.
func (r *Read) Files() []string { return r.files }

// Variables returns a variable tracker whose available paths are
// enumerated from the first granule file.
func (r *Read) Variables() (*variables.Variables, error) {
	g, err := openFile(r.files[0])
	if err != nil {
		return nil, fmt.Errorf("read: opening %s: %v", r.files[0], err)
	}
	defer g.Close()
	var paths []string
	walkPaths(g, "", &paths)
	sort.Strings(paths)
	return variables.New(r.product, paths)
}

func dedup(sorted []string) []string {
	o := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			o = append(o, s)
		}
	}
	return o
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}
