package tracker

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

var makeLogsDir sync.Once

// WriteMissedRange appends an unrecoverable event-id range to the missed
// log so the hole can be reconciled by hand later. Ranges are half-open:
// from is the last processed id, to the oldest id that was fetched.
func WriteMissedRange(from, to int64) error {
	makeLogsDir.Do(func() {
		if err := os.MkdirAll("logs", 0755); err != nil {
			log.Printf("Error creating logs directory: %s", err)
		}
	})

	file, err := os.OpenFile("logs/missed.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening missed log: %w", err)
	}
	defer file.Close()

	line := fmt.Sprintf("%s missed events (%d, %d]\n", time.Now().UTC().Format(time.RFC3339), from, to)
	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("writing missed log: %w", err)
	}
	return nil
}
