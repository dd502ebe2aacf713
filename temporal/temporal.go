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

// Package temporal validates and formats the date ranges used to
// search for and subset ICESat-2 granules.
package temporal

import (
	"fmt"
	"time"
)

// Default times of day applied when a date range is given without
// explicit times.
const (
	DefaultStartTime = "00:00:00"
	DefaultEndTime   = "23:59:59"
)

// A Range is a validated date-time range, inclusive on both ends.
// Times are UTC.
type Range struct {
	Start, End time.Time
}

// New creates a Range from inclusive "YYYY-MM-DD" start and end
// dates and optional "HH:MM:SS" times of day. Empty times default to
// the start of the start day and the end of the end day.
func New(startDate, endDate, startTime, endTime string) (*Range, error) {
	if startTime == "" {
		startTime = DefaultStartTime
	}
	if endTime == "" {
		endTime = DefaultEndTime
	}
	start, err := time.Parse("2006-01-02 15:04:05", startDate+" "+startTime)
	if err != nil {
		return nil, fmt.Errorf("temporal: parsing range start: %v", err)
	}
	end, err := time.Parse("2006-01-02 15:04:05", endDate+" "+endTime)
	if err != nil {
		return nil, fmt.Errorf("temporal: parsing range end: %v", err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("temporal: range end (%s) is before its start (%s)", endDate, startDate)
	}
	return &Range{Start: start.UTC(), End: end.UTC()}, nil
}

// Dates returns the start and end dates in "YYYY-MM-DD" form.
func (r *Range) Dates() (string, string) {
	return r.Start.Format("2006-01-02"), r.End.Format("2006-01-02")
}

func (r *Range) String() string {
	return fmt.Sprintf("Date range: (%s, %s)",
		r.Start.Format("2006-01-02 15:04:05"), r.End.Format("2006-01-02 15:04:05"))
}

// ForCMR formats the range for a CMR search ("temporal" parameter).
func (r *Range) ForCMR() string {
	return r.Start.Format("2006-01-02T15:04:05Z") + "," + r.End.Format("2006-01-02T15:04:05Z")
}

// ForEGI formats the range for the NSIDC EGI subsetter ("time"
// parameter, no zone designator).
func (r *Range) ForEGI() string {
	return r.Start.Format("2006-01-02T15:04:05") + "," + r.End.Format("2006-01-02T15:04:05")
}
