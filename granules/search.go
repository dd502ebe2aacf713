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

// Package granules searches for ICESat-2 granules in the NASA CMR
// catalog, places subsetting orders with the NSIDC EGI service, polls
// them to completion, and downloads the results.
package granules

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spatialdata/icesat2"
)

// CMRGranuleURL is the CMR granule search endpoint.
var CMRGranuleURL = "https://cmr.earthdata.nasa.gov/search/granules.json"

// A Record describes one granule returned by a CMR search.
type Record struct {
	// ProducerID is the granule file name assigned by the producer,
	// e.g. ATL06_20190221121851_08410203_005_01.h5.
	ProducerID string

	// SizeMB is the archive size of the granule.
	SizeMB float64

	// DownloadURLs are the HTTPS locations the granule can be
	// fetched from; CloudURLs are the s3:// locations of
	// cloud-hosted copies.
	DownloadURLs, CloudURLs []string
}

// Orbit parses the granule producer ID for its orbital fields.
func (r *Record) Orbit() (*icesat2.Granule, error) {
	return icesat2.ParseGranuleID(r.ProducerID)
}

// cmrFeed mirrors the CMR Atom-JSON response layout.
type cmrFeed struct {
	Feed struct {
		Entry []struct {
			ProducerGranuleID string `json:"producer_granule_id"`
			GranuleSize       string `json:"granule_size"`
			Links             []struct {
				Rel       string `json:"rel"`
				Href      string `json:"href"`
				Inherited bool   `json:"inherited"`
			} `json:"links"`
		} `json:"entry"`
	} `json:"feed"`
}

// Search queries the CMR for all granules matching params, following
// result pages until the last partial page. pageSize is the number
// of results requested per page (CMR caps it at 2000).
func Search(client *http.Client, params url.Values, pageSize int) ([]*Record, error) {
	if client == nil {
		client = http.DefaultClient
	}
	var records []*Record
	for page := 1; ; page++ {
		v := url.Values{}
		for key, vals := range params {
			v[key] = vals
		}
		v.Set("page_size", strconv.Itoa(pageSize))
		v.Set("page_num", strconv.Itoa(page))
		resp, err := client.Get(CMRGranuleURL + "?" + v.Encode())
		if err != nil {
			return nil, fmt.Errorf("granules: searching CMR: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("granules: searching CMR: %s", resp.Status)
		}
		var feed cmrFeed
		err = json.NewDecoder(resp.Body).Decode(&feed)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("granules: decoding CMR response: %v", err)
		}
		for _, e := range feed.Feed.Entry {
			r := &Record{ProducerID: e.ProducerGranuleID}
			if s, err := strconv.ParseFloat(e.GranuleSize, 64); err == nil {
				r.SizeMB = s
			}
			for _, l := range e.Links {
				if l.Inherited || !strings.HasSuffix(l.Rel, "/data#") {
					continue
				}
				if strings.HasPrefix(l.Href, "s3://") {
					r.CloudURLs = append(r.CloudURLs, l.Href)
				} else if strings.HasPrefix(l.Href, "http") {
					r.DownloadURLs = append(r.DownloadURLs, l.Href)
				}
			}
			records = append(records, r)
		}
		if len(feed.Feed.Entry) < pageSize {
			break
		}
	}
	return records, nil
}

// A Summary reports aggregate information about a set of granules.
type Summary struct {
	Count              int
	AvgSizeMB, TotalMB float64
}

// Summarize computes summary statistics for a granule list.
func Summarize(records []*Record) *Summary {
	s := &Summary{Count: len(records)}
	for _, r := range records {
		s.TotalMB += r.SizeMB
	}
	if s.Count > 0 {
		s.AvgSizeMB = s.TotalMB / float64(s.Count)
	}
	return s
}

// IDs returns the producer IDs of the given granules.
func IDs(records []*Record) []string {
	o := make([]string, len(records))
	for i, r := range records {
		o[i] = r.ProducerID
	}
	return o
}

// Cycles returns the orbital cycle of each granule, in granule order.
func Cycles(records []*Record) ([]string, error) {
	o := make([]string, len(records))
	for i, r := range records {
		g, err := r.Orbit()
		if err != nil {
			return nil, err
		}
		o[i] = g.Cycle
	}
	return o, nil
}

// Tracks returns the reference ground track of each granule, in
// granule order.
func Tracks(records []*Record) ([]string, error) {
	o := make([]string, len(records))
	for i, r := range records {
		g, err := r.Orbit()
		if err != nil {
			return nil, err
		}
		o[i] = g.RGT
	}
	return o, nil
}

// CloudURLs returns the s3:// locations of all cloud-hosted granules
// in the list.
func CloudURLs(records []*Record) []string {
	var o []string
	for _, r := range records {
		o = append(o, r.CloudURLs...)
	}
	return o
}

// ReadableGranulePatterns builds the CMR readable_granule_name
// wildcard patterns selecting the given orbital cycles and reference
// ground tracks for a product. Empty cycles or tracks match all.
func ReadableGranulePatterns(product string, cycles, tracks []string) []string {
	if len(cycles) == 0 {
		cycles = []string{"??"}
	}
	if len(tracks) == 0 {
		tracks = []string{"????"}
	}
	var o []string
	for _, c := range cycles {
		for _, t := range tracks {
			o = append(o, fmt.Sprintf("%s_??????????????_%s%s??_*", product, t, c))
		}
	}
	return o
}
