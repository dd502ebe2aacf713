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
	"fmt"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spf13/cast"
)

// GetStringSlice returns a []string from a viper configuration,
// accounting for the fact that it might be a comma-separated string
// if it was set from a command line argument or an environment
// variable.
func GetStringSlice(varName string, cfg *viper.Viper) ([]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return nil, nil
	case []string:
		return expandStringSlice(v), nil
	case string:
		var o []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				o = append(o, s)
			}
		}
		return expandStringSlice(o), nil
	case []interface{}:
		o, err := cast.ToStringSliceE(v)
		if err != nil {
			return nil, fmt.Errorf("is2util: invalid value for %s: %v", varName, err)
		}
		return expandStringSlice(o), nil
	default:
		return nil, fmt.Errorf("is2util: invalid type for %s: %#v", varName, i)
	}
}
