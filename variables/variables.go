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

// Package variables manages the lists of data variables within
// ICESat-2 granules: which variables a product offers, and which of
// them the user wants the NSIDC subsetter to return. Variable paths
// are slash-delimited HDF5 group paths such as
// gt1l/land_ice_segments/h_li.
package variables

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spatialdata/icesat2"
)

// beamRe matches the beam-specific group names used across products:
// ground track pairs (gt1l), ATL09 profiles (profile_1), and ATL11
// pair tracks (pt1).
var beamRe = regexp.MustCompile(`^(gt[123][lr]|profile_[123]|pt[123])$`)

// Variables tracks the available and wanted variables for a product.
type Variables struct {
	product string
	avail   []string

	// wanted maps variable names to the full paths selected for
	// them, in selection order.
	wanted map[string][]string
}

// New creates a Variables tracker from a list of available full
// variable paths (e.g. from the product capabilities document or from
// walking a granule file).
func New(product string, avail []string) (*Variables, error) {
	product, err := icesat2.ValidProduct(product)
	if err != nil {
		return nil, err
	}
	return &Variables{
		product: product,
		avail:   avail,
		wanted:  make(map[string][]string),
	}, nil
}

// FromCapabilities creates a Variables tracker from a parsed
// capabilities document.
func FromCapabilities(product string, opts *CustomOptions) (*Variables, error) {
	return New(product, opts.Variables)
}

// Avail returns the full paths of all available variables.
func (v *Variables) Avail() []string { return v.avail }

// Wanted returns the wanted variables as a map from variable name to
// the full paths selected for it.
func (v *Variables) Wanted() map[string][]string { return v.wanted }

// ParseVarList organizes a list of full variable paths into a map
// from variable name (the last path component) to the full paths
// ending in it, plus a by-depth table where byDepth[i] lists the
// unique group names appearing at depth i.
func ParseVarList(paths []string) (byName map[string][]string, byDepth [][]string) {
	byName = make(map[string][]string)
	var seen []map[string]bool
	for _, p := range paths {
		parts := strings.Split(p, "/")
		name := parts[len(parts)-1]
		byName[name] = append(byName[name], p)
		for i, part := range parts[:len(parts)-1] {
			for len(seen) <= i {
				seen = append(seen, make(map[string]bool))
				byDepth = append(byDepth, nil)
			}
			if !seen[i][part] {
				seen[i][part] = true
				byDepth[i] = append(byDepth[i], part)
			}
		}
	}
	for i := range byDepth {
		sort.Strings(byDepth[i])
	}
	return byName, byDepth
}

// A Selection filters the available variable paths when appending to
// or removing from the wanted list. Empty fields are unconstrained.
type Selection struct {
	// Defaults selects the curated default variable list for the
	// product (when appending).
	Defaults bool

	// Vars selects variables by name (last path component).
	Vars []string

	// Beams restricts beam-specific paths to the named beams
	// (e.g. gt1l, profile_2). Paths that are not beam-specific are
	// unaffected by this filter.
	Beams []string

	// Keywords requires at least one of the named groups to appear
	// somewhere in the path.
	Keywords []string

	// Depth, when positive, restricts matches to paths nested at
	// most Depth group levels deep: Depth 2 matches
	// gt1l/land_ice_segments/h_li but not the deeper
	// gt1l/land_ice_segments/ground_track variables.
	Depth int
}

func (s *Selection) empty() bool {
	return !s.Defaults && len(s.Vars) == 0 && len(s.Beams) == 0 &&
		len(s.Keywords) == 0 && s.Depth == 0
}

// validate checks the selection against the available paths.
func (v *Variables) validate(s *Selection) error {
	byName, byDepth := ParseVarList(v.avail)
	for _, name := range s.Vars {
		if _, ok := byName[name]; !ok {
			return fmt.Errorf("variables: %s is not an available variable for %s", name, v.product)
		}
	}
	for _, b := range s.Beams {
		if !beamRe.MatchString(b) {
			return fmt.Errorf("variables: %s is not a valid beam name", b)
		}
	}
	if s.Depth < 0 {
		return fmt.Errorf("variables: depth limit must be positive; got %d", s.Depth)
	}
	if s.Depth > len(byDepth) {
		return fmt.Errorf("variables: depth limit %d exceeds the deepest group level (%d) for %s",
			s.Depth, len(byDepth), v.product)
	}
	return nil
}

// matches reports whether path passes the beam, keyword and depth
// filters and, for appending, the variable-name criteria.
func (s *Selection) matches(path string, defaults map[string]bool, forAppend bool) bool {
	parts := strings.Split(path, "/")
	name := parts[len(parts)-1]

	if s.Depth > 0 && len(parts)-1 > s.Depth {
		return false
	}

	if len(s.Beams) > 0 {
		beamOK := true
		for _, part := range parts {
			if beamRe.MatchString(part) {
				beamOK = false
				for _, b := range s.Beams {
					if part == b {
						beamOK = true
						break
					}
				}
				break
			}
		}
		if !beamOK {
			return false
		}
	}

	if len(s.Keywords) > 0 {
		found := false
	keywords:
		for _, kw := range s.Keywords {
			for _, part := range parts {
				if part == kw {
					found = true
					break keywords
				}
			}
		}
		if !found {
			return false
		}
	}

	nameListed := false
	for _, n := range s.Vars {
		if n == name {
			nameListed = true
			break
		}
	}
	if forAppend {
		// When appending, the variable name must be selected either
		// explicitly or through the defaults; beam/keyword filters
		// alone select every variable they match.
		if len(s.Vars) > 0 || s.Defaults {
			return nameListed || (s.Defaults && defaults[name])
		}
		return true
	}
	// When removing, an empty name list matches every name.
	return len(s.Vars) == 0 || nameListed
}

// Append adds the available variable paths matching the selection to
// the wanted list. At least one selection criterion is required.
// Appending is idempotent: paths already wanted are not duplicated.
func (v *Variables) Append(s Selection) error {
	if s.empty() {
		return fmt.Errorf("variables: append requires at least one of: defaults, variable names, beams, keywords, a depth limit")
	}
	if err := v.validate(&s); err != nil {
		return err
	}
	defaults := make(map[string]bool)
	if s.Defaults {
		for _, name := range icesat2.DefaultVariables(v.product) {
			defaults[name] = true
		}
	}
	for _, path := range v.avail {
		if !s.matches(path, defaults, true) {
			continue
		}
		parts := strings.Split(path, "/")
		name := parts[len(parts)-1]
		if contains(v.wanted[name], path) {
			continue
		}
		v.wanted[name] = append(v.wanted[name], path)
	}
	return nil
}

// Remove deletes the wanted variable paths matching the selection.
// If all is true the entire wanted list is cleared and the selection
// is ignored.
func (v *Variables) Remove(all bool, s Selection) error {
	if all {
		v.wanted = make(map[string][]string)
		return nil
	}
	if s.empty() {
		return fmt.Errorf("variables: remove requires all=true or at least one selection criterion")
	}
	for name, paths := range v.wanted {
		var keep []string
		for _, path := range paths {
			if !s.matches(path, nil, false) {
				keep = append(keep, path)
			}
		}
		if len(keep) == 0 {
			delete(v.wanted, name)
		} else {
			v.wanted[name] = keep
		}
	}
	return nil
}

// CoverageString formats the wanted list as the EGI Coverage
// parameter: a comma-separated list of slash-prefixed paths in
// sorted order.
func (v *Variables) CoverageString() string {
	var paths []string
	for _, p := range v.wanted {
		for _, path := range p {
			paths = append(paths, "/"+path)
		}
	}
	sort.Strings(paths)
	return strings.Join(paths, ",")
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
