package activity

import (
	"testing"
	"time"

	"loottracker/shared/albion"
)

func pendingKill(id int64, killer string, ts time.Time) *KillRecord {
	return &KillRecord{
		EventID:   id,
		Timestamp: ts,
		Killer:    KillActor{Name: killer, KillFame: 1000},
		Victim:    KillVictim{Name: "Victim", DeathFame: 5000},
		VictimInventory: []LootItem{
			{Type: "T4_BAG", Count: 1, Quality: 1, Slot: "Bag"},
			{Type: "T4_ORE", Count: 20, Quality: 1, Slot: "inventory_0"},
		},
	}
}

func TestAddPendingKillDedup(t *testing.T) {
	a := New("test", "", base)
	a.AddParticipant("Alice", base)

	if !a.AddPendingKill(pendingKill(1, "Alice", base.Add(time.Minute))) {
		t.Fatal("expected first add to succeed")
	}
	if a.AddPendingKill(pendingKill(1, "Alice", base.Add(time.Minute))) {
		t.Fatal("expected duplicate pending add to fail")
	}

	a.ConfirmKill(1, nil, base.Add(2*time.Minute))
	if a.AddPendingKill(pendingKill(1, "Alice", base.Add(time.Minute))) {
		t.Fatal("expected duplicate of confirmed kill to fail")
	}
}

func TestConfirmKillMovesRecordAndCreditsStats(t *testing.T) {
	a := New("test", "", base)
	a.AddParticipant("Alice", base)
	a.AddParticipant("Bob", base)

	kill := pendingKill(1, "Alice", base.Add(time.Minute))
	kill.Participants = []KillParticipant{
		{Name: "Alice", DamageDone: 800},
		{Name: "Bob", DamageDone: 200, HealingDone: 50},
	}
	a.AddPendingKill(kill)

	confirmed := a.ConfirmKill(1, kill.VictimInventory[:1], base.Add(2*time.Minute))
	if confirmed == nil {
		t.Fatal("expected confirmation to succeed")
	}
	if confirmed.Status != KillConfirmed {
		t.Fatalf("expected confirmed status, got %s", confirmed.Status)
	}
	if len(a.PendingKills) != 0 || len(a.Kills) != 1 {
		t.Fatalf("expected 0 pending and 1 confirmed, got %d and %d", len(a.PendingKills), len(a.Kills))
	}
	if confirmed.DestroyedCount() != 1 {
		t.Fatalf("expected 1 destroyed item, got %d", confirmed.DestroyedCount())
	}

	alice := a.Participant("Alice")
	if alice.Stats.Kills != 1 || alice.Stats.KillFame != 1000 || alice.Stats.Assists != 0 {
		t.Fatalf("unexpected killer stats: %+v", alice.Stats)
	}
	if alice.Stats.DamageDone != 800 {
		t.Fatalf("expected killer damage 800, got %g", alice.Stats.DamageDone)
	}
	bob := a.Participant("Bob")
	if bob.Stats.Assists != 1 || bob.Stats.DamageDone != 200 || bob.Stats.HealingDone != 50 {
		t.Fatalf("unexpected assist stats: %+v", bob.Stats)
	}
}

func TestConfirmKillPausedKillerGetsNoCredit(t *testing.T) {
	a := New("test", "", base)
	a.AddParticipant("Alice", base)
	a.PauseParticipant("Alice", base.Add(time.Second))

	kill := pendingKill(1, "Alice", base.Add(time.Minute))
	kill.Participants = []KillParticipant{{Name: "Alice", DamageDone: 500}}
	a.AddPendingKill(kill)
	a.ConfirmKill(1, nil, base.Add(2*time.Minute))

	alice := a.Participant("Alice")
	if alice.Stats.Kills != 0 || alice.Stats.KillFame != 0 {
		t.Fatalf("expected no kill credit while paused, got %+v", alice.Stats)
	}
	// Damage still accrues: the pause gates credit, not contribution.
	if alice.Stats.DamageDone != 500 {
		t.Fatalf("expected damage 500, got %g", alice.Stats.DamageDone)
	}
}

func TestConfirmKillTrackedVictimTakesDeath(t *testing.T) {
	a := New("test", "", base)
	a.AddParticipant("Alice", base)
	a.AddParticipant("Bob", base)

	kill := pendingKill(1, "Stranger", base.Add(time.Minute))
	kill.Victim = KillVictim{Name: "Bob", DeathFame: 5000}
	kill.Participants = []KillParticipant{{Name: "Alice", DamageDone: 100}}
	a.AddPendingKill(kill)
	a.ConfirmKill(1, nil, base.Add(2*time.Minute))

	if deaths := a.Participant("Bob").Stats.Deaths; deaths != 1 {
		t.Fatalf("expected 1 death, got %d", deaths)
	}
}

func TestDiscardKillHasNoLedgerEffect(t *testing.T) {
	a := New("test", "", base)
	a.AddParticipant("Alice", base)
	a.AddPendingKill(pendingKill(1, "Alice", base.Add(time.Minute)))

	if !a.DiscardKill(1) {
		t.Fatal("expected discard to succeed")
	}
	if len(a.PendingKills) != 0 || len(a.Kills) != 0 {
		t.Fatal("expected no kills retained")
	}
	if a.Participant("Alice").Stats.Kills != 0 {
		t.Fatal("expected no stat credit")
	}
	if len(a.LootChest.Items) != 0 {
		t.Fatal("expected chest untouched")
	}

	// A discarded id may legitimately reappear on a later page.
	if !a.AddPendingKill(pendingKill(1, "Alice", base.Add(time.Minute))) {
		t.Fatal("expected re-add after discard to succeed")
	}
}

func TestConfirmUnknownKill(t *testing.T) {
	a := New("test", "", base)
	if a.ConfirmKill(99, nil, base) != nil {
		t.Fatal("expected confirmation of unknown id to fail")
	}
	if a.DiscardKill(99) {
		t.Fatal("expected discard of unknown id to fail")
	}
}

func TestCompletedActivityRejectsMutation(t *testing.T) {
	a := New("test", "", base)
	a.AddParticipant("Alice", base)
	a.AddPendingKill(pendingKill(1, "Alice", base.Add(time.Minute)))
	a.Complete(base.Add(time.Hour))

	if a.AddParticipant("Bob", base.Add(time.Hour)) {
		t.Fatal("expected add participant to fail on completed activity")
	}
	if a.AddPendingKill(pendingKill(2, "Alice", base.Add(time.Minute))) {
		t.Fatal("expected add pending kill to fail on completed activity")
	}
	if a.ConfirmKill(1, nil, base.Add(time.Hour)) != nil {
		t.Fatal("expected confirm to fail on completed activity")
	}
	if a.Complete(base.Add(2 * time.Hour)) {
		t.Fatal("expected second complete to fail")
	}
}

func TestRemoveStalePendingKills(t *testing.T) {
	a := New("test", "", base)
	a.AddParticipant("Alice", base)

	a.PendingKills = []*KillRecord{
		pendingKill(1, "Alice", base.Add(time.Minute)),
		pendingKill(1, "Alice", base.Add(time.Minute)),  // duplicate
		pendingKill(2, "Alice", base.Add(-time.Minute)), // predates the activity
		pendingKill(3, "Alice", base.Add(2*time.Minute)),
	}

	duplicates, old := a.RemoveStalePendingKills()
	if duplicates != 1 || old != 1 {
		t.Fatalf("expected 1 duplicate and 1 old, got %d and %d", duplicates, old)
	}
	if len(a.PendingKills) != 2 {
		t.Fatalf("expected 2 kept, got %d", len(a.PendingKills))
	}
	if a.PendingKills[0].EventID != 1 || a.PendingKills[1].EventID != 3 {
		t.Fatalf("unexpected kept ids: %d, %d", a.PendingKills[0].EventID, a.PendingKills[1].EventID)
	}
}

func TestKillFromEventMapsEquipmentThenInventory(t *testing.T) {
	event := &albion.KillEvent{
		EventID:   42,
		BattleID:  7,
		TimeStamp: base,
		Killer:    albion.EventPlayer{Name: "Alice", KillFame: 1200, GuildName: "BLUE"},
		Victim: albion.EventVictim{
			Name:      "Victim",
			DeathFame: 6000,
			Equipment: albion.Equipment{
				OffHand: &albion.InventoryItem{Type: "T4_SHIELD", Count: 1, Quality: 2},
				Head:    &albion.InventoryItem{Type: "T4_HEAD", Count: 0, Quality: 1},
			},
			Inventory: []*albion.InventoryItem{
				nil,
				{Type: "T4_ORE", Count: 30, Quality: 1},
			},
		},
		Participants: []albion.EventParticipant{
			{Name: "Alice", DamageDone: 900, SupportHealingDone: 10},
		},
	}

	kill := KillFromEvent(event)
	if kill.EventID != 42 || kill.Status != KillPending {
		t.Fatalf("unexpected record header: %+v", kill)
	}
	if len(kill.VictimInventory) != 3 {
		t.Fatalf("expected 3 items, got %d", len(kill.VictimInventory))
	}
	if kill.VictimInventory[0].Slot != "OffHand" || kill.VictimInventory[1].Slot != "Head" {
		t.Fatalf("expected canonical equipment order, got %q then %q", kill.VictimInventory[0].Slot, kill.VictimInventory[1].Slot)
	}
	// Zero counts are normalized so every slot stacks as at least one item.
	if kill.VictimInventory[1].Count != 1 {
		t.Fatalf("expected count 1, got %d", kill.VictimInventory[1].Count)
	}
	if kill.VictimInventory[2].Slot != "inventory_1" || kill.VictimInventory[2].Count != 30 {
		t.Fatalf("unexpected inventory item: %+v", kill.VictimInventory[2])
	}
	if len(kill.Participants) != 1 || kill.Participants[0].HealingDone != 10 {
		t.Fatalf("unexpected participants: %+v", kill.Participants)
	}
}
