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

// Package query ties a data product, spatial extent and temporal
// range together into granule searches, subsetting orders and
// downloads against the NSIDC DAAC.
package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spatialdata/icesat2"
	"github.com/spatialdata/icesat2/granules"
	"github.com/spatialdata/icesat2/spatial"
	"github.com/spatialdata/icesat2/temporal"
	"github.com/spatialdata/icesat2/variables"
)

const (
	// searchPageSize is the number of results requested per CMR
	// page; the CMR caps page_size at 2000.
	searchPageSize = 2000

	// orderPageSize is the number of granules bundled into one
	// EGI order.
	orderPageSize = 2000

	// clientString identifies this client to the EGI.
	clientString = "icesat2-go"
)

// A Query describes a set of granules of one data product, bounded
// in space and time and optionally restricted to specific orbital
// cycles and reference ground tracks.
type Query struct {
	Product string
	Version string

	Extent   *spatial.Extent
	Temporal *temporal.Range

	// Cycles and Tracks restrict results to the given orbital
	// cycles (2-digit) and reference ground tracks (4-digit).
	Cycles, Tracks []string

	client  *http.Client
	records []*granules.Record
	orders  []*granules.Order
}

// New creates a query for the given product over the given extent
// and time range. If version is empty the latest version in the CMR
// catalog is used; otherwise it is validated against the catalog.
// cycles and tracks may be nil. client is used for CMR requests and
// may be nil to use http.DefaultClient.
func New(client *http.Client, product, version string, extent *spatial.Extent, tr *temporal.Range, cycles, tracks []string) (*Query, error) {
	product, err := icesat2.ValidProduct(product)
	if err != nil {
		return nil, err
	}
	if extent == nil {
		return nil, fmt.Errorf("query: a spatial extent is required")
	}
	latest, err := LatestVersion(client, product)
	if err != nil {
		return nil, err
	}
	if version == "" {
		version = latest
	} else if version, err = icesat2.ValidVersion(version, latest); err != nil {
		return nil, err
	}
	q := &Query{
		Product:  product,
		Version:  version,
		Extent:   extent,
		Temporal: tr,
		client:   client,
	}
	if q.Cycles, err = padOrbitals(cycles, 2, 1, 99); err != nil {
		return nil, fmt.Errorf("query: invalid cycle: %v", err)
	}
	if q.Tracks, err = padOrbitals(tracks, 4, 1, 1387); err != nil {
		return nil, fmt.Errorf("query: invalid reference ground track: %v", err)
	}
	return q, nil
}

// padOrbitals zero-pads the given orbital identifiers to the given
// width, checking that each falls within [min, max].
func padOrbitals(vals []string, width, min, max int) ([]string, error) {
	var o []string
	for _, v := range vals {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", v)
		}
		if n < min || n > max {
			return nil, fmt.Errorf("%d is outside [%d, %d]", n, min, max)
		}
		o = append(o, fmt.Sprintf("%0*d", width, n))
	}
	return o, nil
}

// granulePatterns returns the readable_granule_name wildcard
// patterns implied by the query's cycles and tracks, or nil if
// neither is set.
func (q *Query) granulePatterns() []string {
	if len(q.Cycles) == 0 && len(q.Tracks) == 0 {
		return nil
	}
	return granules.ReadableGranulePatterns(q.Product, q.Cycles, q.Tracks)
}

// CMRParams returns the CMR search parameters for the query.
func (q *Query) CMRParams() url.Values {
	v := url.Values{}
	v.Set("short_name", q.Product)
	v.Set("version", q.Version)
	if q.Temporal != nil {
		v.Set("temporal", q.Temporal.ForCMR())
	}
	key, val := q.Extent.ForCMR()
	v.Set(key, val)
	if patterns := q.granulePatterns(); patterns != nil {
		v["readable_granule_name[]"] = patterns
		v.Set("options[readable_granule_name][pattern]", "true")
	}
	return v
}

// ReqParams returns the EGI request parameters for ordering. An
// email address may be given for order notifications; pass "" for
// none.
func (q *Query) ReqParams(email string) url.Values {
	v := url.Values{}
	v.Set("page_size", strconv.Itoa(orderPageSize))
	v.Set("request_mode", "async")
	v.Set("include_meta", "Y")
	v.Set("client_string", clientString)
	if email != "" {
		v.Set("email", email)
	}
	return v
}

// SubsetOptions modify how the EGI subsets and reformats ordered
// granules. The zero value orders unmodified granules subset to the
// query's extent and time range.
type SubsetOptions struct {
	// Vars restricts the output to the wanted variable paths.
	Vars *variables.Variables

	// Format reformats the output (e.g. TABULAR_ASCII, NetCDF4-CF).
	Format string

	// Projection reprojects the output; Parameters passes
	// projection parameters through to the subsetter.
	Projection string
	Parameters string
}

// SubsetParams returns the EGI subsetting parameters for the query.
func (q *Query) SubsetParams(opts SubsetOptions) url.Values {
	v := url.Values{}
	if q.Temporal != nil {
		v.Set("time", q.Temporal.ForEGI())
	}
	key, val := q.Extent.ForEGI()
	v.Set(key, val)
	if opts.Vars != nil {
		if c := opts.Vars.CoverageString(); c != "" {
			v.Set("Coverage", c)
		}
	}
	if opts.Format != "" {
		v.Set("format", opts.Format)
	}
	if opts.Projection != "" {
		v.Set("projection", opts.Projection)
	}
	if opts.Parameters != "" {
		v.Set("projection_parameters", opts.Parameters)
	}
	return v
}

// AvailGranules searches the CMR for the granules matching the
// query, remembering the results, and returns summary statistics.
func (q *Query) AvailGranules() (*granules.Summary, error) {
	records, err := granules.Search(q.client, q.CMRParams(), searchPageSize)
	if err != nil {
		return nil, err
	}
	q.records = records
	return granules.Summarize(records), nil
}

// Granules returns the records found by the most recent
// AvailGranules call, searching first if none has been made.
func (q *Query) Granules() ([]*granules.Record, error) {
	if q.records == nil {
		if _, err := q.AvailGranules(); err != nil {
			return nil, err
		}
	}
	return q.records, nil
}

// GranuleIDs returns the producer IDs of the matching granules.
func (q *Query) GranuleIDs() ([]string, error) {
	records, err := q.Granules()
	if err != nil {
		return nil, err
	}
	return granules.IDs(records), nil
}

// CloudURLs returns the s3:// locations of the matching granules.
func (q *Query) CloudURLs() ([]string, error) {
	records, err := q.Granules()
	if err != nil {
		return nil, err
	}
	return granules.CloudURLs(records), nil
}

// Variables returns a variable tracker populated from the product's
// capabilities document, for building Coverage subsets.
func (q *Query) Variables() (*variables.Variables, error) {
	opts, err := variables.GetCustomOptions(q.client, q.Product, q.Version)
	if err != nil {
		return nil, err
	}
	return variables.FromCapabilities(q.Product, opts)
}

// ShowCustomOptions fetches the product's customization capabilities
// from the EGI and writes a readable rendition to w.
func (q *Query) ShowCustomOptions(w io.Writer) error {
	opts, err := variables.GetCustomOptions(q.client, q.Product, q.Version)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Subsetting options for %s version %s:\n", q.Product, q.Version)
	for _, agent := range opts.SubsetAgents {
		fmt.Fprintf(w, "  subset agent %s:\n", agent["id"])
		for k, v := range agent {
			if k == "id" {
				continue
			}
			fmt.Fprintf(w, "    %s: %s\n", k, v)
		}
	}
	fmt.Fprintf(w, "  output formats: %s\n", strings.Join(opts.Formats, ", "))
	fmt.Fprintf(w, "  reprojections: %s\n", strings.Join(opts.Projections, ", "))
	if len(opts.NoProjFormats) > 0 {
		fmt.Fprintf(w, "  formats without reprojection: %s\n", strings.Join(opts.NoProjFormats, ", "))
	}
	if len(opts.ReprojFormats) > 0 {
		fmt.Fprintf(w, "  formats with reprojection: %s\n", strings.Join(opts.ReprojFormats, ", "))
	}
	fmt.Fprintf(w, "  subsettable variables: %d\n", len(opts.Variables))
	return nil
}

// OrderGranules places subsetting orders for all granules matching
// the query and polls them to completion. client must be an
// authenticated Earthdata session. When cycles or tracks restrict
// the query, one order is placed per granule name pattern; otherwise
// granules are bundled into pages. Progress messages are sent to
// logc if it is non-nil.
//
// Orders whose subset constraints match no data are reported on logc
// and skipped rather than failing the whole request.
func (q *Query) OrderGranules(client granules.Client, opts SubsetOptions, email string, logc chan string) ([]*granules.Order, error) {
	records, err := q.Granules()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("query: no granules matched; nothing to order")
	}
	cmrParams := q.CMRParams()
	reqParams := q.ReqParams(email)
	subsetParams := q.SubsetParams(opts)

	var orders []*granules.Order
	if patterns := q.granulePatterns(); patterns != nil {
		// One order per named granule pattern: the subsetter
		// cannot page within a wildcard restriction.
		for _, p := range patterns {
			params := url.Values{}
			for key, vals := range cmrParams {
				params[key] = vals
			}
			params["readable_granule_name[]"] = []string{p}
			o, err := granules.PlaceOrders(client, params, reqParams, subsetParams, 1, 1, logc)
			orders = append(orders, o...)
			if err != nil {
				return orders, err
			}
		}
	} else {
		if orders, err = granules.PlaceOrders(client, cmrParams, reqParams, subsetParams, len(records), orderPageSize, logc); err != nil {
			return orders, err
		}
	}
	var done []*granules.Order
	for _, o := range orders {
		if err := o.Wait(client, logc); err != nil {
			if errors.Is(err, granules.ErrNoData) {
				if logc != nil {
					logc <- fmt.Sprintf("order %s matched no data within the subset constraints; skipping", o.ID)
				}
				continue
			}
			return orders, err
		}
		done = append(done, o)
	}
	q.orders = done
	return done, nil
}

// DownloadGranules downloads the output of previously placed orders
// into dest, which may be a local directory or a blob location. If
// restart is true, orders already downloaded to dest are skipped.
func (q *Query) DownloadGranules(ctx context.Context, client granules.Client, dest string, restart bool, logc chan string) error {
	if len(q.orders) == 0 {
		return fmt.Errorf("query: no orders have been placed; run OrderGranules first")
	}
	return granules.Download(ctx, client, q.orders, dest, restart, logc)
}

// Orders returns the completed orders placed by OrderGranules.
func (q *Query) Orders() []*granules.Order { return q.orders }
