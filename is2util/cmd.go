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

// Package is2util holds the configuration and command-line interface
// for the icesat2 client.
package is2util

import (
	"context"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/spatialdata/icesat2"
	"github.com/spatialdata/icesat2/granules"
	"github.com/spatialdata/icesat2/read"
	"github.com/spatialdata/icesat2/variables"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var log = logrus.StandardLogger()

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	queryFlags := []*pflag.FlagSet{
		searchCmd.Flags(), orderCmd.Flags(), variablesCmd.PersistentFlags(),
	}
	// Options are the configuration options available to the
	// icesat2 commands.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Query.Product",
			usage: `
              Query.Product specifies the ICESat-2 data product short name,
              for example ATL06.`,
			shorthand:  "p",
			defaultVal: "",
			flagsets:   queryFlags,
		},
		{
			name: "Query.ProductVersion",
			usage: `
              Query.ProductVersion specifies the data product version as a
              3-digit string. The default is the latest version in the CMR
              catalog.`,
			defaultVal: "",
			flagsets:   queryFlags,
		},
		{
			name: "Query.BoundingBox",
			usage: `
              Query.BoundingBox specifies the spatial extent as a
              'lonW,latS,lonE,latN' decimal-degree bounding box.`,
			defaultVal: "",
			flagsets:   queryFlags,
		},
		{
			name: "Query.Polygon",
			usage: `
              Query.Polygon specifies the spatial extent as either a
              comma-separated lon,lat,lon,lat,... vertex list or the path
              of a polygon file (.shp or .geojson). It is ignored when
              Query.BoundingBox is set.`,
			defaultVal: "",
			flagsets:   queryFlags,
		},
		{
			name: "Query.Dateline",
			usage: `
              Query.Dateline specifies that the spatial extent crosses the
              international date line.`,
			defaultVal: false,
			flagsets:   queryFlags,
		},
		{
			name: "Query.StartDate",
			usage: `
              Query.StartDate specifies the beginning of the time range of
              interest in YYYY-MM-DD format.`,
			defaultVal: "",
			flagsets:   queryFlags,
		},
		{
			name: "Query.EndDate",
			usage: `
              Query.EndDate specifies the end of the time range of interest
              in YYYY-MM-DD format.`,
			defaultVal: "",
			flagsets:   queryFlags,
		},
		{
			name: "Query.StartTime",
			usage: `
              Query.StartTime specifies the time of day beginning the time
              range in HH:MM:SS format. The default is 00:00:00.`,
			defaultVal: "",
			flagsets:   queryFlags,
		},
		{
			name: "Query.EndTime",
			usage: `
              Query.EndTime specifies the time of day ending the time range
              in HH:MM:SS format. The default is 23:59:59.`,
			defaultVal: "",
			flagsets:   queryFlags,
		},
		{
			name: "Query.Cycles",
			usage: `
              Query.Cycles restricts results to the given 91-day orbital
              cycles.`,
			defaultVal: []string{},
			flagsets:   queryFlags,
		},
		{
			name: "Query.Tracks",
			usage: `
              Query.Tracks restricts results to the given reference ground
              tracks (1-1387).`,
			defaultVal: []string{},
			flagsets:   queryFlags,
		},
		{
			name: "Order.Email",
			usage: `
              Order.Email specifies an address for order status
              notifications from NSIDC. No mail is sent if it is empty.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{orderCmd.Flags()},
		},
		{
			name: "Order.Format",
			usage: `
              Order.Format specifies an output format conversion for
              ordered granules, for example NetCDF4-CF or TABULAR_ASCII.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{orderCmd.Flags()},
		},
		{
			name: "Order.Projection",
			usage: `
              Order.Projection specifies a reprojection for ordered
              granules, for example GEOGRAPHIC.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{orderCmd.Flags()},
		},
		{
			name: "Order.Variables",
			usage: `
              Order.Variables restricts ordered granules to the named
              variables (by short name, e.g. h_li).`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{orderCmd.Flags()},
		},
		{
			name: "Order.Beams",
			usage: `
              Order.Beams restricts beam-specific variables in ordered
              granules to the named beams, e.g. gt1l.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{orderCmd.Flags()},
		},
		{
			name: "Order.DefaultVariables",
			usage: `
              Order.DefaultVariables restricts ordered granules to the
              curated default variable list for the product.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{orderCmd.Flags()},
		},
		{
			name: "Download.Dest",
			usage: `
              Download.Dest specifies where downloaded granules are
              written: a local directory or a file://, gs:// or s3://
              bucket location.`,
			shorthand:  "o",
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{orderCmd.Flags(), downloadCmd.Flags()},
		},
		{
			name: "Download.Restart",
			usage: `
              Download.Restart skips orders that a previous download run
              already wrote to Download.Dest.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{orderCmd.Flags(), downloadCmd.Flags()},
		},
		{
			name: "Download.Orders",
			usage: `
              Download.Orders lists previously placed order IDs to
              download.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{downloadCmd.Flags()},
		},
		{
			name: "Read.Source",
			usage: `
              Read.Source specifies the granule file or directory to read.`,
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{readCmd.Flags(), variablesCmd.Flags()},
		},
		{
			name: "Read.Patterns",
			usage: `
              Read.Patterns specifies filename wildcard patterns selecting
              granule files within Read.Source.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{readCmd.Flags(), variablesCmd.Flags()},
		},
		{
			name: "Read.Variables",
			usage: `
              Read.Variables specifies the variable short names to load,
              e.g. h_li.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{readCmd.Flags()},
		},
		{
			name: "Read.Beams",
			usage: `
              Read.Beams restricts loaded beam-specific variables to the
              named beams.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{readCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("ICESAT2")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(searchCmd)
	Root.AddCommand(orderCmd)
	Root.AddCommand(downloadCmd)
	Root.AddCommand(variablesCmd)
	Root.AddCommand(readCmd)
	variablesCmd.AddCommand(optionsCmd)
}

// outChan returns a channel whose messages are written to the log.
func outChan() chan string {
	outChan := make(chan string)
	go func() {
		for msg := range outChan {
			log.Info(msg)
		}
	}()
	return outChan
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("is2util: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "is2",
	Short: "A client for ICESat-2 satellite data.",
	Long: `is2 searches for, orders, downloads and reads ICESat-2 altimetry
data archived at the NSIDC DAAC.

Ordering and downloading require NASA Earthdata Login credentials, taken
from the EARTHDATA_USERNAME and EARTHDATA_PASSWORD environment variables,
a .env file, or a .netrc entry for urs.earthdata.nasa.gov.

Configuration can be changed by using a configuration file (and providing
the path to the file using the --config flag), by using command-line
arguments, or by setting environment variables in the format 'ICESAT2_var'
where 'var' is the name of the variable to be set.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of the icesat2 client.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("icesat2 v%s\n", icesat2.Version)
	},
	DisableAutoGenTag: true,
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the CMR for matching granules.",
	Long: `search queries NASA's Common Metadata Repository for the granules of
a product within the configured spatial extent and time range, and prints
a summary and the granule IDs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := BuildQuery(Cfg, nil)
		if err != nil {
			return err
		}
		summary, err := q.AvailGranules()
		if err != nil {
			return err
		}
		cmd.Printf("%d granules, %.1f MB total (%.1f MB average)\n",
			summary.Count, summary.TotalMB, summary.AvgSizeMB)
		ids, err := q.GranuleIDs()
		if err != nil {
			return err
		}
		for _, id := range ids {
			cmd.Println(id)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Order subset granules from the NSIDC DAAC.",
	Long: `order places subsetting orders for all granules matching the
configured query, waits for the subsetter to finish, and downloads the
results to Download.Dest.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logc := outChan()
		session, err := Login()
		if err != nil {
			return err
		}
		q, err := BuildQuery(Cfg, session.Client)
		if err != nil {
			return err
		}
		opts, err := subsetOptions(Cfg, q)
		if err != nil {
			return err
		}
		orders, err := q.OrderGranules(session, opts, Cfg.GetString("Order.Email"), logc)
		if err != nil {
			return err
		}
		log.Infof("%d orders complete", len(orders))
		return q.DownloadGranules(context.Background(), session,
			Cfg.GetString("Download.Dest"), Cfg.GetBool("Download.Restart"), logc)
	},
	DisableAutoGenTag: true,
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download previously placed orders.",
	Long: `download fetches the zipped output of previously placed orders, given
their IDs in Download.Orders, and unpacks the granule files into
Download.Dest.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := GetStringSlice("Download.Orders", Cfg)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return fmt.Errorf("is2util: no order IDs given; set Download.Orders")
		}
		session, err := Login()
		if err != nil {
			return err
		}
		orders := make([]*granules.Order, len(ids))
		for i, id := range ids {
			orders[i] = &granules.Order{ID: id}
		}
		return granules.Download(context.Background(), session, orders,
			Cfg.GetString("Download.Dest"), Cfg.GetBool("Download.Restart"), outChan())
	},
	DisableAutoGenTag: true,
}

var variablesCmd = &cobra.Command{
	Use:   "variables",
	Short: "List the variables in local granule files.",
	Long: `variables lists the full variable paths available in the granule
files found in Read.Source.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		patterns, err := GetStringSlice("Read.Patterns", Cfg)
		if err != nil {
			return err
		}
		r, err := read.New(Cfg.GetString("Read.Source"), patterns)
		if err != nil {
			return err
		}
		v, err := r.Variables()
		if err != nil {
			return err
		}
		for _, path := range v.Avail() {
			cmd.Println(path)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Show the subsetting options for a product.",
	Long: `options fetches the customization capabilities the NSIDC subsetter
offers for the configured product: subsettable variables, output formats
and reprojections.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := Login()
		if err != nil {
			return err
		}
		q, err := BuildQuery(Cfg, session.Client)
		if err != nil {
			return err
		}
		return q.ShowCustomOptions(cmd.OutOrStdout())
	},
	DisableAutoGenTag: true,
}

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read local granule files into merged series.",
	Long: `read loads the requested variables from the granule files in
Read.Source, merges them per beam across granules, and prints a summary
of the resulting series.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		patterns, err := GetStringSlice("Read.Patterns", Cfg)
		if err != nil {
			return err
		}
		r, err := read.New(Cfg.GetString("Read.Source"), patterns)
		if err != nil {
			return err
		}
		v, err := r.Variables()
		if err != nil {
			return err
		}
		vars, err := GetStringSlice("Read.Variables", Cfg)
		if err != nil {
			return err
		}
		beams, err := GetStringSlice("Read.Beams", Cfg)
		if err != nil {
			return err
		}
		sel := variables.Selection{
			Vars:  vars,
			Beams: beams,
		}
		if len(sel.Vars) == 0 {
			sel.Defaults = true
		}
		if err := v.Append(sel); err != nil {
			return err
		}
		d, err := r.Load(v)
		if err != nil {
			return err
		}
		cmd.Printf("%s version %s: %d series from %d granules\n",
			d.Product, d.Version, len(d.Series), len(r.Files()))
		for _, s := range d.Series {
			beam := s.Beam
			if beam == "" {
				beam = "-"
			}
			cmd.Printf("%-10s %-50s %8d values from %d granules\n",
				beam, s.Path, len(s.Values), len(s.Sources))
		}
		return nil
	},
	DisableAutoGenTag: true,
}

func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}
