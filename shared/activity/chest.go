package activity

import "time"

// ChestKey is the stacking identity of a chest slot.
type ChestKey struct {
	Type    string
	Quality int
	Slot    string
}

// ChestItem is one aggregated stackable slot in the loot chest.
type ChestItem struct {
	Type    string     `json:"type"`
	Count   int        `json:"count"`
	Quality int        `json:"quality"`
	Slot    string     `json:"slot"`
	Price   *ItemPrice `json:"price,omitempty"`
}

func (i *ChestItem) key() ChestKey {
	return ChestKey{Type: i.Type, Quality: i.Quality, Slot: i.Slot}
}

// LootChest aggregates confirmed loot across kills. TotalValue is recomputed
// after every merge so the chest is never observably stale relative to the
// confirmed kill list.
type LootChest struct {
	Name            string      `json:"name"`
	Items           []ChestItem `json:"items"`
	TotalValue      int64       `json:"totalValue"`
	City            string      `json:"city"`
	LastPriceUpdate *time.Time  `json:"lastPriceUpdate,omitempty"`
}

// Add merges confirmed items into the chest. An existing slot with the same
// (type, quality, slot) identity has its count incremented; its price is
// overwritten only when the incoming item carries a resolved price.
func (c *LootChest) Add(items []LootItem, now time.Time) {
	if len(items) == 0 {
		return
	}

	for _, item := range items {
		key := ChestKey{Type: item.Type, Quality: item.Quality, Slot: item.Slot}
		idx := -1
		for i := range c.Items {
			if c.Items[i].key() == key {
				idx = i
				break
			}
		}
		if idx >= 0 {
			c.Items[idx].Count += item.Count
			if item.Price != nil && item.Price.Found {
				price := *item.Price
				c.Items[idx].Price = &price
			}
			continue
		}

		chestItem := ChestItem{
			Type:    item.Type,
			Count:   item.Count,
			Quality: item.Quality,
			Slot:    item.Slot,
		}
		if item.Price != nil {
			price := *item.Price
			chestItem.Price = &price
		}
		c.Items = append(c.Items, chestItem)
	}

	c.recomputeValue()
	at := now
	c.LastPriceUpdate = &at
}

func (c *LootChest) recomputeValue() {
	var total int64
	for _, item := range c.Items {
		if item.Price == nil {
			continue
		}
		count := item.Count
		if count < 1 {
			count = 1
		}
		total += item.Price.SellPrice * int64(count)
	}
	c.TotalValue = total
}

// ChestSummary is the operator-facing rollup of the chest.
type ChestSummary struct {
	Name        string `json:"name"`
	TotalItems  int    `json:"totalItems"`
	UniqueItems int    `json:"uniqueItems"`
	TotalValue  int64  `json:"totalValue"`
}

func (c *LootChest) Summary() ChestSummary {
	total := 0
	for _, item := range c.Items {
		total += item.Count
	}
	return ChestSummary{
		Name:        c.Name,
		TotalItems:  total,
		UniqueItems: len(c.Items),
		TotalValue:  c.TotalValue,
	}
}
