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

// Command is2 is a command-line interface for searching, ordering,
// downloading and reading ICESat-2 satellite data.
package main

import (
	"fmt"
	"os"

	"github.com/spatialdata/icesat2/is2util"
)

func main() {
	if err := is2util.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
