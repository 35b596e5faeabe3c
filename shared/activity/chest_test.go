package activity

import (
	"testing"
	"time"
)

func TestChestStacksByIdentity(t *testing.T) {
	var chest LootChest
	now := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)

	chest.Add([]LootItem{{Type: "T4_ORE", Count: 2, Quality: 1, Slot: "inventory_0"}}, now)
	chest.Add([]LootItem{{Type: "T4_ORE", Count: 3, Quality: 1, Slot: "inventory_0"}}, now)

	if len(chest.Items) != 1 {
		t.Fatalf("expected 1 stack, got %d", len(chest.Items))
	}
	if chest.Items[0].Count != 5 {
		t.Fatalf("expected count 5, got %d", chest.Items[0].Count)
	}
}

func TestChestDifferentQualityDoesNotStack(t *testing.T) {
	var chest LootChest
	now := time.Now()

	chest.Add([]LootItem{
		{Type: "T4_ORE", Count: 1, Quality: 1, Slot: "inventory_0"},
		{Type: "T4_ORE", Count: 1, Quality: 2, Slot: "inventory_0"},
		{Type: "T4_ORE", Count: 1, Quality: 1, Slot: "inventory_1"},
	}, now)

	if len(chest.Items) != 3 {
		t.Fatalf("expected 3 stacks, got %d", len(chest.Items))
	}
}

func TestChestPriceOverwriteRules(t *testing.T) {
	var chest LootChest
	now := time.Now()

	found := &ItemPrice{SellPrice: 100, Found: true}
	chest.Add([]LootItem{{Type: "T4_ORE", Count: 2, Quality: 1, Slot: "s", Price: found}}, now)

	// A not-found price never clobbers a resolved one.
	missing := &ItemPrice{Found: false}
	chest.Add([]LootItem{{Type: "T4_ORE", Count: 1, Quality: 1, Slot: "s", Price: missing}}, now)

	if chest.Items[0].Price == nil || !chest.Items[0].Price.Found {
		t.Fatal("expected resolved price retained")
	}
	if chest.TotalValue != 300 {
		t.Fatalf("expected value 300, got %d", chest.TotalValue)
	}

	// A newer resolved price does.
	newer := &ItemPrice{SellPrice: 150, Found: true}
	chest.Add([]LootItem{{Type: "T4_ORE", Count: 1, Quality: 1, Slot: "s", Price: newer}}, now)
	if chest.Items[0].Price.SellPrice != 150 {
		t.Fatalf("expected price 150, got %d", chest.Items[0].Price.SellPrice)
	}
	if chest.TotalValue != 600 {
		t.Fatalf("expected value 600, got %d", chest.TotalValue)
	}
}

func TestChestValueTreatsUnpricedAsZero(t *testing.T) {
	var chest LootChest
	now := time.Now()

	chest.Add([]LootItem{
		{Type: "T4_ORE", Count: 2, Quality: 1, Slot: "a", Price: &ItemPrice{SellPrice: 50, Found: true}},
		{Type: "T4_BAG", Count: 1, Quality: 1, Slot: "b"},
	}, now)

	if chest.TotalValue != 100 {
		t.Fatalf("expected value 100, got %d", chest.TotalValue)
	}

	summary := chest.Summary()
	if summary.TotalItems != 3 || summary.UniqueItems != 2 || summary.TotalValue != 100 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestChestAddEmptyIsNoop(t *testing.T) {
	var chest LootChest
	chest.Add(nil, time.Now())
	if chest.LastPriceUpdate != nil {
		t.Fatal("expected no update timestamp for empty add")
	}
}
