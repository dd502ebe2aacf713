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
	"os"
	"strconv"
	"strings"

	"github.com/lnashier/viper"

	"github.com/spatialdata/icesat2/earthdata"
	"github.com/spatialdata/icesat2/query"
	"github.com/spatialdata/icesat2/spatial"
	"github.com/spatialdata/icesat2/temporal"
	"github.com/spatialdata/icesat2/variables"
)

// Login authenticates with Earthdata Login using credentials from
// the environment, a .env file, or .netrc.
func Login() (*earthdata.Session, error) {
	creds, err := earthdata.FindCredentials()
	if err != nil {
		return nil, err
	}
	log.Infof("logging in to Earthdata as %s", creds.Username)
	return earthdata.Login(creds)
}

// BuildQuery assembles a granule query from the configuration.
// client is used for CMR requests and may be nil.
func BuildQuery(cfg *viper.Viper, client *http.Client) (*query.Query, error) {
	product := os.ExpandEnv(cfg.GetString("Query.Product"))
	if product == "" {
		return nil, fmt.Errorf("is2util: no data product specified; set Query.Product")
	}
	extent, err := buildExtent(cfg)
	if err != nil {
		return nil, err
	}
	tr, err := buildRange(cfg)
	if err != nil {
		return nil, err
	}
	cycles, err := GetStringSlice("Query.Cycles", cfg)
	if err != nil {
		return nil, err
	}
	tracks, err := GetStringSlice("Query.Tracks", cfg)
	if err != nil {
		return nil, err
	}
	return query.New(client, product, cfg.GetString("Query.ProductVersion"),
		extent, tr, cycles, tracks)
}

// buildExtent resolves the configured spatial extent: a bounding
// box, a vertex list, or a polygon file path.
func buildExtent(cfg *viper.Viper) (*spatial.Extent, error) {
	dateline := cfg.GetBool("Query.Dateline")
	if bbox := cfg.GetString("Query.BoundingBox"); bbox != "" {
		coords, err := parseFloats(bbox)
		if err != nil {
			return nil, fmt.Errorf("is2util: parsing Query.BoundingBox: %v", err)
		}
		return spatial.FromBoundingBox(coords, dateline)
	}
	poly := os.ExpandEnv(cfg.GetString("Query.Polygon"))
	if poly == "" {
		return nil, fmt.Errorf("is2util: no spatial extent specified; set Query.BoundingBox or Query.Polygon")
	}
	if coords, err := parseFloats(poly); err == nil {
		return spatial.FromCoords(coords, dateline)
	}
	return spatial.FromFile(maybeDownload(context.TODO(), poly, outChan()), dateline)
}

func buildRange(cfg *viper.Viper) (*temporal.Range, error) {
	start := cfg.GetString("Query.StartDate")
	end := cfg.GetString("Query.EndDate")
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, fmt.Errorf("is2util: Query.StartDate and Query.EndDate must be set together")
	}
	return temporal.New(start, end,
		cfg.GetString("Query.StartTime"), cfg.GetString("Query.EndTime"))
}

func parseFloats(s string) ([]float64, error) {
	var o []float64
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", f)
		}
		o = append(o, v)
	}
	return o, nil
}

// subsetOptions builds the order subsetting options from the
// configuration, fetching the product's subsettable variables when a
// variable restriction is configured.
func subsetOptions(cfg *viper.Viper, q *query.Query) (query.SubsetOptions, error) {
	opts := query.SubsetOptions{
		Format:     cfg.GetString("Order.Format"),
		Projection: cfg.GetString("Order.Projection"),
	}
	vars, err := GetStringSlice("Order.Variables", cfg)
	if err != nil {
		return opts, err
	}
	beams, err := GetStringSlice("Order.Beams", cfg)
	if err != nil {
		return opts, err
	}
	sel := variables.Selection{
		Defaults: cfg.GetBool("Order.DefaultVariables"),
		Vars:     vars,
		Beams:    beams,
	}
	if !sel.Defaults && len(sel.Vars) == 0 && len(sel.Beams) == 0 {
		return opts, nil // order whole granules
	}
	v, err := q.Variables()
	if err != nil {
		return opts, err
	}
	if err := v.Append(sel); err != nil {
		return opts, err
	}
	opts.Vars = v
	return opts, nil
}
