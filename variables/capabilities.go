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

package variables

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// CapabilityURL is the NSIDC EGI endpoint describing the
// customization services available for a product version.
var CapabilityURL = "https://n5eil02u.ecs.nsidc.org/egi/capabilities"

// CustomOptions describes the server-side customization (subsetting,
// reformatting, reprojection) capabilities of a product at NSIDC.
type CustomOptions struct {
	// SubsetAgents holds the attributes of each subset agent, e.g.
	// spatialSubsetting, temporalSubsetting and granule limits.
	SubsetAgents []map[string]string

	// Formats lists the available output file formats.
	Formats []string

	// Projections lists the available reprojection targets
	// (excluding NO_CHANGE).
	Projections []string

	// NoProjFormats lists the output formats that do not support
	// reprojection; ReprojFormats lists those that do.
	NoProjFormats, ReprojFormats []string

	// Variables lists the full paths of all subsettable variables.
	Variables []string
}

// xmlNode is a generic element tree used to walk the capabilities
// document, which has a deeply product-specific layout.
type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []xmlNode  `xml:",any"`
}

func (n *xmlNode) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (n *xmlNode) walk(f func(*xmlNode)) {
	f(n)
	for i := range n.Nodes {
		n.Nodes[i].walk(f)
	}
}

// ParseCapabilities parses an EGI capabilities XML document.
func ParseCapabilities(r io.Reader) (*CustomOptions, error) {
	var root xmlNode
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("variables: parsing capabilities: %v", err)
	}
	o := new(CustomOptions)
	noProj := make(map[string]bool)
	root.walk(func(n *xmlNode) {
		switch n.XMLName.Local {
		case "SubsetAgent":
			attrs := make(map[string]string)
			for _, a := range n.Attrs {
				attrs[a.Name.Local] = a.Value
			}
			o.SubsetAgents = append(o.SubsetAgents, attrs)
		case "Format":
			if v, ok := n.attr("value"); ok && v != "" {
				o.Formats = append(o.Formats, v)
			}
		case "Projection":
			if v, ok := n.attr("value"); ok && v != "NO_CHANGE" {
				o.Projections = append(o.Projections, v)
			}
			if excl, ok := n.attr("excludeFormat"); ok {
				for _, f := range strings.Split(excl, ",") {
					noProj[f] = true
				}
			}
		case "SubsetVariable":
			if len(n.Nodes) == 0 {
				if v, ok := n.attr("value"); ok {
					o.Variables = append(o.Variables, normalizeVarPath(v))
				}
			}
		}
	})
	for f := range noProj {
		o.NoProjFormats = append(o.NoProjFormats, f)
	}
	sort.Strings(o.NoProjFormats)
	for _, f := range o.Formats {
		if !noProj[f] {
			o.ReprojFormats = append(o.ReprojFormats, f)
		}
	}
	return o, nil
}

// GetCustomOptions fetches and parses the capabilities document for
// the given product and version. client must be an authenticated
// Earthdata session.
func GetCustomOptions(client *http.Client, product, version string) (*CustomOptions, error) {
	if client == nil {
		client = http.DefaultClient
	}
	url := fmt.Sprintf("%s/%s.%s.xml", CapabilityURL, product, version)
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("variables: fetching capabilities for %s v%s: %v", product, version, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("variables: fetching capabilities for %s v%s: %s", product, version, resp.Status)
	}
	return ParseCapabilities(resp.Body)
}

// normalizeVarPath converts the colon-delimited variable paths in the
// capabilities document to slash-delimited HDF5 group paths.
func normalizeVarPath(v string) string {
	v = strings.TrimLeft(v, "/:")
	return strings.Replace(v, ":", "/", -1)
}
