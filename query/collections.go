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

package query

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"runtime"
	"sync"

	"github.com/ctessum/requestcache/v2"
)

// CMRCollectionURL is the CMR collection search endpoint.
var CMRCollectionURL = "https://cmr.earthdata.nasa.gov/search/collections.json"

// A Collection describes one version of a data product as cataloged
// in the CMR.
type Collection struct {
	ShortName string `json:"short_name"`
	VersionID string `json:"version_id"`
	Title     string `json:"dataset_id"`
	Summary   string `json:"summary"`
}

var (
	collectionCache     *requestcache.Cache
	collectionCacheOnce sync.Once
)

// Collection metadata rarely changes, so results are held in a
// small in-memory cache shared by all queries in the process.
func cache() *requestcache.Cache {
	collectionCacheOnce.Do(func() {
		collectionCache = requestcache.NewCache(runtime.GOMAXPROCS(-1),
			requestcache.Deduplicate(), requestcache.Memory(20))
	})
	return collectionCache
}

type collectionsRequest struct {
	client  *http.Client
	product string
}

func (r *collectionsRequest) Key() string {
	return "cmr_collections_" + r.product
}

func (r *collectionsRequest) Run(ctx context.Context) (interface{}, error) {
	client := r.client
	if client == nil {
		client = http.DefaultClient
	}
	v := url.Values{"short_name": []string{r.product}}
	resp, err := client.Get(CMRCollectionURL + "?" + v.Encode())
	if err != nil {
		return nil, fmt.Errorf("query: fetching collection metadata for %s: %v", r.product, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query: fetching collection metadata for %s: %s", r.product, resp.Status)
	}
	var feed struct {
		Feed struct {
			Entry []*Collection `json:"entry"`
		} `json:"feed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("query: decoding collection metadata for %s: %v", r.product, err)
	}
	if len(feed.Feed.Entry) == 0 {
		return nil, fmt.Errorf("query: no CMR collections found for product %s", r.product)
	}
	return feed.Feed.Entry, nil
}

// Collections returns the CMR collection entries for all versions of
// the given product.
func Collections(client *http.Client, product string) ([]*Collection, error) {
	result, err := cache().NewRequest(context.TODO(), &collectionsRequest{client: client, product: product}).Result()
	if err != nil {
		return nil, err
	}
	return result.([]*Collection), nil
}

// LatestVersion returns the most recent version of the given product
// in the CMR catalog, as a zero-padded 3-digit string.
func LatestVersion(client *http.Client, product string) (string, error) {
	entries, err := Collections(client, product)
	if err != nil {
		return "", err
	}
	var latest string
	for _, e := range entries {
		if v := padVersion(e.VersionID); v > latest {
			latest = v
		}
	}
	return latest, nil
}

func padVersion(v string) string {
	for len(v) < 3 {
		v = "0" + v
	}
	return v
}

// ProductSummary returns the collection entry for the latest version
// of the given product, which includes its title and text summary.
func ProductSummary(client *http.Client, product string) (*Collection, error) {
	entries, err := Collections(client, product)
	if err != nil {
		return nil, err
	}
	latest := entries[0]
	for _, e := range entries[1:] {
		if padVersion(e.VersionID) > padVersion(latest.VersionID) {
			latest = e
		}
	}
	return latest, nil
}
