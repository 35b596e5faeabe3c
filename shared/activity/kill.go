package activity

import (
	"fmt"
	"time"

	"loottracker/shared/albion"
)

type KillStatus string

const (
	KillPending   KillStatus = "pending"
	KillConfirmed KillStatus = "confirmed"
)

// KillActor is the killer side of a kill record.
type KillActor struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	GuildName        string  `json:"guildName"`
	KillFame         int64   `json:"killFame"`
	AverageItemPower float64 `json:"averageItemPower"`
}

// KillVictim is the victim side of a kill record.
type KillVictim struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	GuildName        string  `json:"guildName"`
	DeathFame        int64   `json:"deathFame"`
	AverageItemPower float64 `json:"averageItemPower"`
}

// KillParticipant is one contributor to a kill.
type KillParticipant struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	DamageDone  float64 `json:"damageDone"`
	HealingDone float64 `json:"healingDone"`
}

// ItemPrice is a best-effort market price. Found is false when no market had
// the item listed; such items contribute zero value but are still tracked.
type ItemPrice struct {
	SellPrice  int64     `json:"sellPrice"`
	BuyPrice   int64     `json:"buyPrice"`
	City       string    `json:"city"`
	LastUpdate time.Time `json:"lastUpdate"`
	Found      bool      `json:"found"`
}

// LootItem is one detected or confirmed item. Slot records where the item was
// found on the victim (an equipment slot name or inventory_<index>) and is
// part of the item's stacking identity.
type LootItem struct {
	Type    string     `json:"type"`
	Count   int        `json:"count"`
	Quality int        `json:"quality"`
	Slot    string     `json:"slot"`
	Price   *ItemPrice `json:"price,omitempty"`
}

// KillRecord is one external kill event mapped into domain terms.
// VictimInventory is immutable once recorded; LootConfirmed is set exactly
// once, at confirmation time, and is a subset of VictimInventory.
type KillRecord struct {
	EventID         int64             `json:"eventId"`
	BattleID        int64             `json:"battleId"`
	Timestamp       time.Time         `json:"timestamp"`
	Killer          KillActor         `json:"killer"`
	Victim          KillVictim        `json:"victim"`
	Participants    []KillParticipant `json:"participants"`
	VictimInventory []LootItem        `json:"victimInventory"`
	LootConfirmed   []LootItem        `json:"lootConfirmed"`
	Status          KillStatus        `json:"status"`
}

// KillFromEvent maps a feed event into a pending KillRecord. The victim's
// equipped slots come first in canonical order, then bag items tagged with
// their inventory index. The feed reports the victim's full inventory, not
// what actually dropped; the operator adjudicates that at confirmation.
func KillFromEvent(event *albion.KillEvent) *KillRecord {
	var inventory []LootItem
	for _, slot := range event.Victim.Equipment.Slots() {
		inventory = append(inventory, LootItem{
			Type:    slot.Item.Type,
			Count:   max(slot.Item.Count, 1),
			Quality: slot.Item.Quality,
			Slot:    slot.Name,
		})
	}
	for i, item := range event.Victim.Inventory {
		if item == nil || item.Type == "" {
			continue
		}
		inventory = append(inventory, LootItem{
			Type:    item.Type,
			Count:   max(item.Count, 1),
			Quality: item.Quality,
			Slot:    fmt.Sprintf("inventory_%d", i),
		})
	}

	participants := make([]KillParticipant, 0, len(event.Participants))
	for _, p := range event.Participants {
		participants = append(participants, KillParticipant{
			ID:          p.ID,
			Name:        p.Name,
			DamageDone:  p.DamageDone,
			HealingDone: p.SupportHealingDone,
		})
	}

	return &KillRecord{
		EventID:   event.EventID,
		BattleID:  event.BattleID,
		Timestamp: event.TimeStamp,
		Killer: KillActor{
			ID:               event.Killer.ID,
			Name:             event.Killer.Name,
			GuildName:        event.Killer.GuildName,
			KillFame:         event.Killer.KillFame,
			AverageItemPower: event.Killer.AverageItemPower,
		},
		Victim: KillVictim{
			ID:               event.Victim.ID,
			Name:             event.Victim.Name,
			GuildName:        event.Victim.GuildName,
			DeathFame:        event.Victim.DeathFame,
			AverageItemPower: event.Victim.AverageItemPower,
		},
		Participants:    participants,
		VictimInventory: inventory,
		Status:          KillPending,
	}
}

// DestroyedCount is the number of detected items not selected as loot,
// meaningful only once the kill is confirmed.
func (k *KillRecord) DestroyedCount() int {
	return len(k.VictimInventory) - len(k.LootConfirmed)
}
