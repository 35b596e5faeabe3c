package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"loottracker/shared/rabbit"
)

// InsertConfirmedKills appends confirmed kill rows to the analytics table.
// Loot lists are stored as JSON strings; the analytics queries only ever
// aggregate over the scalar columns.
func InsertConfirmedKills(conn driver.Conn, messages []rabbit.ConfirmedKillMessage) error {
	ctx := context.Background()
	batch, err := conn.PrepareBatch(ctx, "INSERT INTO confirmed_kill SETTINGS async_insert=1, wait_for_async_insert=1")
	if err != nil {
		return fmt.Errorf("error preparing batch for confirmed kills: %s", err)
	}

	for _, msg := range messages {
		kill := msg.Kill
		lootJSON, err := json.Marshal(kill.LootConfirmed)
		if err != nil {
			return err
		}
		inventoryJSON, err := json.Marshal(kill.VictimInventory)
		if err != nil {
			return err
		}

		err = batch.Append(
			kill.EventID,
			kill.BattleID,
			msg.ActivityID,
			msg.ActivityName,
			msg.City,
			kill.Timestamp,
			msg.ConfirmedAt,
			kill.Killer.Name,
			kill.Killer.GuildName,
			kill.Killer.KillFame,
			kill.Victim.Name,
			kill.Victim.GuildName,
			kill.Victim.DeathFame,
			uint8(len(kill.Participants)),
			string(lootJSON),
			string(inventoryJSON),
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}
