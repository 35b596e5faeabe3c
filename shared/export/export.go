// Package export defines the versioned JSON envelope used for backups and
// transfers between tracker instances.
package export

import (
	"encoding/json"
	"errors"
	"time"

	"loottracker/shared/activity"
)

// Version is the current envelope format version.
const Version = "1.0"

var ErrMissingVersion = errors.New("export: missing envelope version")

// Envelope wraps everything the tracker persists. Optional sections are
// omitted when empty so a single-activity export stays small.
type Envelope struct {
	Version         string                `json:"version"`
	Config          *activity.GuildConfig `json:"config,omitempty"`
	CurrentActivity *activity.Activity    `json:"currentActivity,omitempty"`
	History         []*activity.Activity  `json:"history,omitempty"`
	ExportDate      time.Time             `json:"exportDate"`
}

// Marshal serializes an envelope stamped with the current version.
func Marshal(config *activity.GuildConfig, current *activity.Activity, history []*activity.Activity, now time.Time) ([]byte, error) {
	env := Envelope{
		Version:         Version,
		Config:          config,
		CurrentActivity: current,
		History:         history,
		ExportDate:      now,
	}
	return json.MarshalIndent(&env, "", "  ")
}

// Parse validates and decodes an envelope. Envelopes without a version are
// rejected; unknown future versions are accepted best-effort since the
// format only ever adds fields.
func Parse(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Version == "" {
		return nil, ErrMissingVersion
	}
	return &env, nil
}
