package albion

import "time"

// KillEvent is one entry from the gameinfo events feed. Decoded payloads are
// treated as immutable; engine-side state lives in the activity package.
type KillEvent struct {
	EventID             int64              `json:"EventId"`
	BattleID            int64              `json:"BattleId"`
	TimeStamp           time.Time          `json:"TimeStamp"`
	TotalVictimKillFame int64              `json:"TotalVictimKillFame"`
	Killer              EventPlayer        `json:"Killer"`
	Victim              EventVictim        `json:"Victim"`
	Participants        []EventParticipant `json:"Participants"`
}

type EventPlayer struct {
	ID               string  `json:"Id"`
	Name             string  `json:"Name"`
	GuildName        string  `json:"GuildName"`
	AllianceName     string  `json:"AllianceName"`
	KillFame         int64   `json:"KillFame"`
	AverageItemPower float64 `json:"AverageItemPower"`
}

type EventVictim struct {
	ID               string           `json:"Id"`
	Name             string           `json:"Name"`
	GuildName        string           `json:"GuildName"`
	AllianceName     string           `json:"AllianceName"`
	DeathFame        int64            `json:"DeathFame"`
	AverageItemPower float64          `json:"AverageItemPower"`
	Equipment        Equipment        `json:"Equipment"`
	Inventory        []*InventoryItem `json:"Inventory"`
}

type EventParticipant struct {
	ID                 string  `json:"Id"`
	Name               string  `json:"Name"`
	GuildName          string  `json:"GuildName"`
	DamageDone         float64 `json:"DamageDone"`
	SupportHealingDone float64 `json:"SupportHealingDone"`
}

// Equipment holds the victim's equipped slots. Unequipped slots are null in
// the feed payload.
type Equipment struct {
	MainHand *InventoryItem `json:"MainHand"`
	OffHand  *InventoryItem `json:"OffHand"`
	Head     *InventoryItem `json:"Head"`
	Armor    *InventoryItem `json:"Armor"`
	Shoes    *InventoryItem `json:"Shoes"`
	Bag      *InventoryItem `json:"Bag"`
	Cape     *InventoryItem `json:"Cape"`
	Mount    *InventoryItem `json:"Mount"`
	Potion   *InventoryItem `json:"Potion"`
	Food     *InventoryItem `json:"Food"`
}

type InventoryItem struct {
	Type    string `json:"Type"`
	Count   int    `json:"Count"`
	Quality int    `json:"Quality"`
}

// EquipmentSlot pairs a slot name with the item occupying it.
type EquipmentSlot struct {
	Name string
	Item *InventoryItem
}

// Slots returns the occupied equipment slots in canonical order.
func (e *Equipment) Slots() []EquipmentSlot {
	all := []EquipmentSlot{
		{"MainHand", e.MainHand},
		{"OffHand", e.OffHand},
		{"Head", e.Head},
		{"Armor", e.Armor},
		{"Shoes", e.Shoes},
		{"Bag", e.Bag},
		{"Cape", e.Cape},
		{"Mount", e.Mount},
		{"Potion", e.Potion},
		{"Food", e.Food},
	}
	var occupied []EquipmentSlot
	for _, s := range all {
		if s.Item != nil && s.Item.Type != "" {
			occupied = append(occupied, s)
		}
	}
	return occupied
}

// Guild is a guild record from the search and guild info endpoints.
type Guild struct {
	ID           string `json:"Id"`
	Name         string `json:"Name"`
	AllianceID   string `json:"AllianceId"`
	AllianceName string `json:"AllianceName"`
	MemberCount  int    `json:"MemberCount"`
}

// GuildMember is one member record from the guild members endpoint.
type GuildMember struct {
	ID                 string              `json:"Id"`
	Name               string              `json:"Name"`
	GuildID            string              `json:"GuildId"`
	GuildName          string              `json:"GuildName"`
	AllianceID         string              `json:"AllianceId"`
	KillFame           int64               `json:"KillFame"`
	DeathFame          int64               `json:"DeathFame"`
	LifetimeStatistics *LifetimeStatistics `json:"LifetimeStatistics"`
}

type LifetimeStatistics struct {
	PvE *struct {
		Total int64 `json:"Total"`
	} `json:"PvE"`
}
