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

package granules

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
)

// NSIDC EGI service endpoints. Orders are placed against OrderURL;
// the zipped output of order nnn is served at DownloadURL/nnn.zip.
var (
	OrderURL    = "https://n5eil02u.ecs.nsidc.org/egi/request"
	DownloadURL = "https://n5eil02u.ecs.nsidc.org/esir"
)

// PollTimeout limits how long to wait for an order to finish
// processing before giving up.
var PollTimeout = 2 * time.Hour

// ErrNoData is returned when the subsetter finds no data within the
// subset constraints. This commonly happens when a granule's
// metadata footprint overlaps the search area but the granule
// contains no data points inside it.
var ErrNoData = errors.New("granules: no data found that matched subset constraints")

// A Client issues authenticated HTTP GET requests. Both
// *http.Client and *earthdata.Session satisfy it.
type Client interface {
	Get(url string) (*http.Response, error)
}

// An Order is a subsetting/download request placed with the EGI.
type Order struct {
	ID     string
	Status string

	// Messages holds any informational or error messages the
	// subsetter attached to the order.
	Messages []string
}

// orderNode is a generic element tree for the EGI's namespaced XML
// responses.
type orderNode struct {
	XMLName xml.Name
	Content string      `xml:",chardata"`
	Nodes   []orderNode `xml:",any"`
}

func (n *orderNode) walk(f func(*orderNode)) {
	f(n)
	for i := range n.Nodes {
		n.Nodes[i].walk(f)
	}
}

func parseOrderResponse(r io.Reader) (ids []string, status string, messages []string, err error) {
	var root orderNode
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, "", nil, fmt.Errorf("granules: parsing EGI response: %v", err)
	}
	root.walk(func(n *orderNode) {
		switch n.XMLName.Local {
		case "orderId":
			ids = append(ids, strings.TrimSpace(n.Content))
		case "status":
			status = strings.TrimSpace(n.Content)
		case "info", "message", "faultstring":
			if m := strings.TrimSpace(n.Content); m != "" {
				messages = append(messages, m)
			}
		}
	})
	return ids, status, messages, nil
}

// PlaceOrders submits orders for all granules matching the given CMR
// parameters, one order per result page of pageSize granules
// (numGranules total). reqParams and subsetParams are merged into
// each request. Progress messages are sent to logc if it is non-nil.
//
// The returned orders have been accepted but not necessarily
// processed; use Wait to poll them to completion.
func PlaceOrders(client Client, cmrParams, reqParams, subsetParams url.Values, numGranules, pageSize int, logc chan string) ([]*Order, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("granules: invalid order page size %d", pageSize)
	}
	pages := (numGranules + pageSize - 1) / pageSize
	if pages == 0 {
		return nil, fmt.Errorf("granules: no granules to order; run a search first")
	}
	var orders []*Order
	for page := 1; page <= pages; page++ {
		v := url.Values{}
		for _, p := range []url.Values{cmrParams, reqParams, subsetParams} {
			for key, vals := range p {
				v[key] = vals
			}
		}
		v.Set("page_num", strconv.Itoa(page))
		resp, err := client.Get(OrderURL + "?" + v.Encode())
		if err != nil {
			return orders, fmt.Errorf("granules: placing order (page %d): %v", page, err)
		}
		if resp.StatusCode >= 400 {
			_, _, messages, perr := parseOrderResponse(resp.Body)
			resp.Body.Close()
			if perr == nil && len(messages) > 0 {
				return orders, fmt.Errorf("granules: placing order (page %d): %s: %s",
					page, resp.Status, strings.Join(messages, "; "))
			}
			return orders, fmt.Errorf("granules: placing order (page %d): %s", page, resp.Status)
		}
		ids, status, messages, err := parseOrderResponse(resp.Body)
		resp.Body.Close()
		if err != nil {
			return orders, err
		}
		if len(ids) == 0 {
			return orders, fmt.Errorf("granules: EGI accepted the request but returned no order ID (page %d)", page)
		}
		for _, id := range ids {
			o := &Order{ID: id, Status: status, Messages: messages}
			orders = append(orders, o)
			if logc != nil {
				logc <- fmt.Sprintf("order ID: %s", id)
			}
		}
	}
	return orders, nil
}

// StatusUpdate fetches the current status of the order, updating o
// in place.
func (o *Order) StatusUpdate(client Client) error {
	resp, err := client.Get(OrderURL + "/" + o.ID)
	if err != nil {
		return fmt.Errorf("granules: checking order %s: %v", o.ID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("granules: checking order %s: %s", o.ID, resp.Status)
	}
	_, status, messages, err := parseOrderResponse(resp.Body)
	if err != nil {
		return err
	}
	o.Status = status
	o.Messages = messages
	return nil
}

// Wait polls the order with exponential backoff until it leaves the
// pending/processing states. It returns ErrNoData (wrapped) if the
// subsetter found nothing inside the subset constraints, and a
// generic error for failed orders. An order that completes with
// errors is not an error: the messages are recorded on the order and
// sent to logc.
func (o *Order) Wait(client Client, logc chan string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Second
	b.MaxInterval = 2 * time.Minute
	b.MaxElapsedTime = PollTimeout
	err := backoff.Retry(func() error {
		if err := o.StatusUpdate(client); err != nil {
			return backoff.Permanent(err)
		}
		switch o.Status {
		case "pending", "processing", "in progress":
			return fmt.Errorf("granules: order %s is still %s", o.ID, o.Status)
		}
		return nil
	}, b)
	if err != nil {
		return err
	}
	if logc != nil {
		logc <- fmt.Sprintf("order %s status: %s", o.ID, o.Status)
		for _, m := range o.Messages {
			logc <- m
		}
	}
	switch o.Status {
	case "complete":
		return nil
	case "complete_with_errors":
		if o.noData() {
			return fmt.Errorf("granules: order %s: %w", o.ID, ErrNoData)
		}
		return nil
	case "failed":
		if o.noData() {
			return fmt.Errorf("granules: order %s: %w", o.ID, ErrNoData)
		}
		return fmt.Errorf("granules: order %s failed: %s", o.ID, strings.Join(o.Messages, "; "))
	}
	return fmt.Errorf("granules: order %s finished with unexpected status %q", o.ID, o.Status)
}

// noData reports whether the order messages indicate an empty subset
// result.
func (o *Order) noData() bool {
	for _, m := range o.Messages {
		if strings.Contains(strings.ToLower(m), "no data found that matched subset constraints") {
			return true
		}
	}
	return false
}
