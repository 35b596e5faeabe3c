// Package prices resolves best-effort market valuations from the
// albion-online-data project. Lookups are batched by quality tier, rate
// limited, and optionally cached locally; a failed lookup yields a
// not-found price, never an aborted confirmation.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"loottracker/shared/activity"
)

const (
	defaultHost = "https://west.albion-online-data.com"

	// maxItemsPerRequest keeps the request URL under the API's 4096 char
	// limit.
	maxItemsPerRequest = 100
)

// fallbackCities are tried in order for single-item lookups when the
// primary city has no listing.
var fallbackCities = []string{"Caerleon", "Bridgewatch", "Lymhurst", "Martlock", "Thetford", "Fort Sterling"}

// Key identifies a priced item: the feed prices per type and quality, not
// per slot.
type Key struct {
	ItemType string
	Quality  int
}

type marketPrice struct {
	ItemID       string `json:"item_id"`
	City         string `json:"city"`
	Quality      int    `json:"quality"`
	SellPriceMin int64  `json:"sell_price_min"`
	BuyPriceMax  int64  `json:"buy_price_max"`
}

type Client struct {
	host    string
	http    *http.Client
	limiter *rate.Limiter
	cache   *Cache
	now     func() time.Time
}

// NewClient builds a price client. cache may be nil to disable local
// caching.
func NewClient(cache *Cache) *Client {
	host := os.Getenv("PRICE_API_HOST")
	if host == "" {
		host = defaultHost
	}
	return &Client{
		host: host,
		http: &http.Client{Timeout: 15 * time.Second},
		// ~180 requests/minute allowed upstream; 350ms spacing keeps a margin.
		limiter: rate.NewLimiter(rate.Every(350*time.Millisecond), 1),
		cache:   cache,
		now:     time.Now,
	}
}

// ItemPrices resolves prices for the given loot in one city, grouped by
// quality to minimize API calls. Items the market has never listed come back
// with Found=false and zero value. A transport failure degrades to
// not-found results for the unresolved remainder rather than an error: the
// caller must be able to confirm loot with zero valuation.
func (c *Client) ItemPrices(ctx context.Context, items []activity.LootItem, city string) (map[Key]activity.ItemPrice, error) {
	result := make(map[Key]activity.ItemPrice)
	if len(items) == 0 {
		return result, nil
	}
	if city == "" {
		city = activity.DefaultCity
	}

	// Group distinct item types by quality tier.
	byQuality := make(map[int]map[string]bool)
	for _, item := range items {
		key := Key{ItemType: item.Type, Quality: item.Quality}
		if _, done := result[key]; done {
			continue
		}
		if c.cache != nil {
			if price, ok := c.cache.Get(key, city); ok {
				result[key] = price
				continue
			}
		}
		if byQuality[item.Quality] == nil {
			byQuality[item.Quality] = make(map[string]bool)
		}
		byQuality[item.Quality][item.Type] = true
	}

	var lastErr error
	for quality, types := range byQuality {
		typeList := make([]string, 0, len(types))
		for t := range types {
			typeList = append(typeList, t)
		}

		data, err := c.fetchPrices(ctx, typeList, city, quality)
		if err != nil {
			log.Printf("Error fetching prices for %d items in %s: %s", len(typeList), city, err)
			lastErr = err
			continue
		}

		for _, p := range data {
			key := Key{ItemType: p.ItemID, Quality: p.Quality}
			price := activity.ItemPrice{
				SellPrice:  p.SellPriceMin,
				BuyPrice:   p.BuyPriceMax,
				City:       p.City,
				LastUpdate: c.now(),
				Found:      p.SellPriceMin > 0,
			}
			result[key] = price
			if c.cache != nil && price.Found {
				c.cache.Put(key, city, price)
			}
		}
	}

	// Anything still unresolved is recorded as not found so callers get a
	// complete map.
	for _, item := range items {
		key := Key{ItemType: item.Type, Quality: item.Quality}
		if _, ok := result[key]; !ok {
			result[key] = activity.ItemPrice{City: city, LastUpdate: c.now(), Found: false}
		}
	}

	return result, lastErr
}

// ItemPrice resolves one item, falling back through the major market cities
// when the primary city has no listing.
func (c *Client) ItemPrice(ctx context.Context, itemType string, quality int, primaryCity string) (activity.ItemPrice, error) {
	cities := []string{primaryCity}
	for _, city := range fallbackCities {
		if city != primaryCity {
			cities = append(cities, city)
		}
	}
	for _, city := range cities {
		if city == "" {
			continue
		}
		data, err := c.fetchPrices(ctx, []string{itemType}, city, quality)
		if err != nil {
			return activity.ItemPrice{}, err
		}
		if len(data) > 0 && data[0].SellPriceMin > 0 {
			return activity.ItemPrice{
				SellPrice:  data[0].SellPriceMin,
				BuyPrice:   data[0].BuyPriceMax,
				City:       city,
				LastUpdate: c.now(),
				Found:      true,
			}, nil
		}
	}
	return activity.ItemPrice{City: primaryCity, LastUpdate: c.now(), Found: false}, nil
}

func (c *Client) fetchPrices(ctx context.Context, itemTypes []string, city string, quality int) ([]marketPrice, error) {
	var all []marketPrice
	for start := 0; start < len(itemTypes); start += maxItemsPerRequest {
		end := min(start+maxItemsPerRequest, len(itemTypes))
		chunk := itemTypes[start:end]

		if err := c.limiter.Wait(ctx); err != nil {
			return all, err
		}

		u := fmt.Sprintf("%s/api/v2/stats/prices/%s.json?locations=%s&qualities=%d",
			c.host, strings.Join(chunk, ","), strings.ReplaceAll(city, " ", "%20"), quality)

		req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
		if err != nil {
			return all, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return all, err
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return all, fmt.Errorf("price api: unexpected status %d", resp.StatusCode)
		}

		var data []marketPrice
		err = json.NewDecoder(resp.Body).Decode(&data)
		resp.Body.Close()
		if err != nil {
			return all, err
		}
		all = append(all, data...)
	}
	return all, nil
}

// TotalValue sums count x sell price across items; unpriced items count as
// zero.
func TotalValue(items []activity.LootItem) int64 {
	var total int64
	for _, item := range items {
		if item.Price == nil {
			continue
		}
		count := item.Count
		if count < 1 {
			count = 1
		}
		total += item.Price.SellPrice * int64(count)
	}
	return total
}

// FormatPrice renders a silver amount with a K/M/B suffix.
func FormatPrice(value int64) string {
	switch {
	case value >= 1_000_000_000:
		return strconv.FormatFloat(float64(value)/1_000_000_000, 'f', 2, 64) + "B"
	case value >= 1_000_000:
		return strconv.FormatFloat(float64(value)/1_000_000, 'f', 2, 64) + "M"
	case value >= 1_000:
		return strconv.FormatFloat(float64(value)/1_000, 'f', 1, 64) + "K"
	default:
		return strconv.FormatInt(value, 10)
	}
}
