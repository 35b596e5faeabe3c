package prices

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"loottracker/shared/activity"
)

func testClient(host string) *Client {
	return &Client{
		host:    host,
		http:    &http.Client{Timeout: 5 * time.Second},
		limiter: rate.NewLimiter(rate.Inf, 1),
		now:     func() time.Time { return time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC) },
	}
}

func TestItemPricesGroupsByQuality(t *testing.T) {
	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.String())
		quality := r.URL.Query().Get("qualities")
		var data []marketPrice
		if strings.Contains(r.URL.Path, "T4_ORE") {
			data = append(data, marketPrice{ItemID: "T4_ORE", City: "Caerleon", Quality: 1, SellPriceMin: 40, BuyPriceMax: 35})
		}
		if strings.Contains(r.URL.Path, "T4_BAG") && quality == "2" {
			data = append(data, marketPrice{ItemID: "T4_BAG", City: "Caerleon", Quality: 2, SellPriceMin: 900, BuyPriceMax: 800})
		}
		json.NewEncoder(w).Encode(data)
	}))
	defer server.Close()

	client := testClient(server.URL)
	items := []activity.LootItem{
		{Type: "T4_ORE", Quality: 1},
		{Type: "T4_ORE", Quality: 1}, // duplicate, priced once
		{Type: "T4_BAG", Quality: 2},
		{Type: "T4_NEVER_LISTED", Quality: 1},
	}

	result, err := client.ItemPrices(context.Background(), items, "Caerleon")
	if err != nil {
		t.Fatalf("item prices: %v", err)
	}
	// One request per quality tier.
	if len(requests) != 2 {
		t.Fatalf("expected 2 requests, got %d: %v", len(requests), requests)
	}

	ore := result[Key{ItemType: "T4_ORE", Quality: 1}]
	if !ore.Found || ore.SellPrice != 40 {
		t.Fatalf("unexpected ore price: %+v", ore)
	}
	bag := result[Key{ItemType: "T4_BAG", Quality: 2}]
	if !bag.Found || bag.SellPrice != 900 {
		t.Fatalf("unexpected bag price: %+v", bag)
	}
	missing := result[Key{ItemType: "T4_NEVER_LISTED", Quality: 1}]
	if missing.Found || missing.SellPrice != 0 {
		t.Fatalf("expected not-found entry, got %+v", missing)
	}
}

func TestItemPricesDegradesOnTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := testClient(server.URL)
	items := []activity.LootItem{{Type: "T4_ORE", Quality: 1}}

	result, err := client.ItemPrices(context.Background(), items, "Caerleon")
	if err == nil {
		t.Fatal("expected transport error reported")
	}
	// The map is still complete: the caller confirms with zero valuation.
	price, ok := result[Key{ItemType: "T4_ORE", Quality: 1}]
	if !ok || price.Found {
		t.Fatalf("expected not-found fallback entry, got %+v", price)
	}
}

func TestItemPriceFallsBackThroughCities(t *testing.T) {
	var cities []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		city := r.URL.Query().Get("locations")
		cities = append(cities, city)
		var data []marketPrice
		if city == "Lymhurst" {
			data = append(data, marketPrice{ItemID: "T4_ORE", City: city, Quality: 1, SellPriceMin: 55})
		}
		json.NewEncoder(w).Encode(data)
	}))
	defer server.Close()

	client := testClient(server.URL)
	price, err := client.ItemPrice(context.Background(), "T4_ORE", 1, "Thetford")
	if err != nil {
		t.Fatalf("item price: %v", err)
	}
	if !price.Found || price.City != "Lymhurst" || price.SellPrice != 55 {
		t.Fatalf("unexpected price: %+v", price)
	}
	if cities[0] != "Thetford" {
		t.Fatalf("expected primary city tried first, got %v", cities)
	}
}

func TestTotalValue(t *testing.T) {
	items := []activity.LootItem{
		{Type: "a", Count: 3, Price: &activity.ItemPrice{SellPrice: 10, Found: true}},
		{Type: "b", Count: 0, Price: &activity.ItemPrice{SellPrice: 7, Found: true}}, // counts as 1
		{Type: "c", Count: 5},
	}
	if got := TotalValue(items); got != 37 {
		t.Fatalf("expected 37, got %d", got)
	}
}

func TestFormatPrice(t *testing.T) {
	cases := []struct {
		value int64
		want  string
	}{
		{0, "0"},
		{999, "999"},
		{1500, "1.5K"},
		{2_340_000, "2.34M"},
		{7_100_000_000, "7.10B"},
	}
	for _, tc := range cases {
		if got := FormatPrice(tc.value); got != tc.want {
			t.Fatalf("FormatPrice(%d) = %q, want %q", tc.value, got, tc.want)
		}
	}
}
