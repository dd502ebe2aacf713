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

// Package icesat2 provides reference information about the ICESat-2
// data products archived at the NSIDC DAAC: the product catalog,
// default variable lists for the server-side subsetter, granule file
// name parsing, and the mapping between ground tracks and laser spots.
package icesat2

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Version is the version of this client. It is reported to NASA
// services as part of the client string on orders.
const Version = "0.3.0"

// products lists the valid ICESat-2 product short names.
var products = []string{
	"ATL01", "ATL02", "ATL03", "ATL04", "ATL06", "ATL07", "ATL07QL",
	"ATL08", "ATL08QL", "ATL09", "ATL09QL", "ATL10", "ATL11", "ATL12",
	"ATL13", "ATL14", "ATL15", "ATL16", "ATL17", "ATL19", "ATL20", "ATL21",
}

// GroundTracks lists the six ICESat-2 beam ground tracks in the
// left/right pair naming used within granule files.
var GroundTracks = []string{"gt1l", "gt1r", "gt2l", "gt2r", "gt3l", "gt3r"}

// ValidProduct normalizes p to upper case and checks it against the
// catalog of ICESat-2 product short names.
func ValidProduct(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("icesat2: a product short name (e.g. ATL06) must be specified")
	}
	p = strings.ToUpper(p)
	for _, v := range products {
		if p == v {
			return p, nil
		}
	}
	return "", fmt.Errorf("icesat2: %s is not a valid ICESat-2 product", p)
}

// ValidVersion checks that v is a valid product version and pads it to
// the 3-digit form used by NASA services, so "4" becomes "004".
// latest, if non-empty, is the most recent version available for the
// product; requesting a version newer than it is an error.
func ValidVersion(v, latest string) (string, error) {
	i, err := strconv.Atoi(v)
	if err != nil || i < 1 {
		return "", fmt.Errorf("icesat2: %s is not a valid product version", v)
	}
	v = fmt.Sprintf("%03d", i)
	if latest != "" && v > latest {
		return "", fmt.Errorf("icesat2: version %s is newer than the most recent version (%s)", v, latest)
	}
	return v, nil
}

// Spot returns the laser spot number (1-6) illuminating ground track
// gt when the spacecraft is in orientation scOrient (0 for backward,
// 1 for forward). The strong and weak beams trade ground tracks when
// the spacecraft yaw flips, so the spot number depends on both.
func Spot(gt string, scOrient int) (int, error) {
	track := -1
	for i, v := range GroundTracks {
		if gt == v {
			track = i
			break
		}
	}
	if track == -1 {
		return 0, fmt.Errorf("icesat2: %s is not a valid ground track", gt)
	}
	// Spots by ground track index for the forward orientation; the
	// backward orientation is its mirror image.
	forward := []int{2, 1, 4, 3, 6, 5}
	switch scOrient {
	case 1:
		return forward[track], nil
	case 0:
		return 7 - forward[track], nil
	}
	return 0, fmt.Errorf("icesat2: spacecraft orientation must be 0 or 1 (got %d)", scOrient)
}

// commonVariables are present in every product and returned by the
// subsetter even when no other variables are requested.
var commonVariables = []string{"delta_time", "latitude", "longitude"}

// defaultVariables holds the per-product default variable lists for
// the NSIDC subsetter, not including the common variables.
var defaultVariables = map[string][]string{
	"ATL06": {
		"h_li", "h_li_sigma", "atl06_quality_summary", "segment_id",
		"sigma_geo_h", "x_atc", "y_atc", "seg_azimuth", "sigma_geo_at",
		"sigma_geo_xt", "dh_fit_dx", "dh_fit_dx_sigma", "h_mean",
		"dh_fit_dy", "h_rms_misfit", "h_robust_sprd", "n_fit_photons",
		"signal_selection_source", "snr_significance",
		"w_surface_window_final", "bsnow_conf", "bsnow_h",
		"cloud_flg_asr", "cloud_flg_atm", "r_eff", "tide_ocean",
	},
	"ATL07": {
		"seg_dist_x", "height_segment_height", "height_segment_length_seg",
		"height_segment_ssh_flag", "height_segment_type",
		"height_segment_quality", "height_segment_confidence",
	},
	"ATL09": {
		"bsnow_h", "bsnow_dens", "bsnow_con", "bsnow_psc", "bsnow_od",
		"cloud_flag_asr", "cloud_fold_flag", "cloud_flag_atm",
		"column_od_asr", "column_od_asr_qf", "layer_attr", "layer_bot",
		"layer_top", "layer_flag", "layer_dens", "layer_ib", "msw_flag",
		"prof_dist_x", "prof_dist_y", "apparent_surf_reflec",
	},
	"ATL10": {
		"seg_dist_x", "lead_height", "lead_length", "beam_fb_height",
		"beam_fb_length", "beam_fb_confidence", "beam_fb_quality_flag",
		"height_segment_height", "height_segment_length_seg",
		"height_segment_ssh_flag", "height_segment_type",
		"height_segment_confidence",
	},
	"ATL11": {
		"h_corr", "h_corr_sigma", "h_corr_sigma_systematic",
		"quality_summary",
	},
}

// DefaultVariables returns the default variable list to request from
// the subsetter for the given product. Products without a curated
// list get only the common variables (delta_time, latitude,
// longitude).
func DefaultVariables(product string) []string {
	o := make([]string, len(commonVariables))
	copy(o, commonVariables)
	return append(o, defaultVariables[product]...)
}

// granuleRe matches ICESat-2 granule producer IDs, for example
// ATL06_20190221121851_08410203_005_01.h5. The middle field packs the
// reference ground track, orbital cycle and granule region.
var granuleRe = regexp.MustCompile(
	`^(processed_)?(ATL\d{2}(?:QL)?)_(\d{14})_(\d{4})(\d{2})(\d{2})_(\d{3})_(\d{2})(.*)?(\.h5)$`)

// A Granule describes a single ICESat-2 data file as parsed from its
// producer ID.
type Granule struct {
	Product   string    // Product short name, e.g. ATL06.
	StartTime time.Time // Acquisition start (UTC).
	RGT       string    // 4-digit reference ground track.
	Cycle     string    // 2-digit orbital cycle.
	Region    string    // 2-digit granule region.
	Version   string    // 3-digit product version.
	Revision  string    // 2-digit file revision.
}

// ParseGranuleID parses an ICESat-2 granule file name (with or
// without a leading directory or "processed_" prefix, which NSIDC
// prepends to subsetted files).
func ParseGranuleID(id string) (*Granule, error) {
	if i := strings.LastIndexByte(id, '/'); i != -1 {
		id = id[i+1:]
	}
	m := granuleRe.FindStringSubmatch(id)
	if m == nil {
		return nil, fmt.Errorf("icesat2: %s is not an ICESat-2 granule file name", id)
	}
	start, err := time.Parse("20060102150405", m[3])
	if err != nil {
		return nil, fmt.Errorf("icesat2: parsing granule %s start time: %v", id, err)
	}
	return &Granule{
		Product:   m[2],
		StartTime: start,
		RGT:       m[4],
		Cycle:     m[5],
		Region:    m[6],
		Version:   m[7],
		Revision:  m[8],
	}, nil
}
