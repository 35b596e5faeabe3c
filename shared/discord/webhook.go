// Package discord posts operator alerts to a Discord webhook.
package discord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Webhook struct {
	Username *string `json:"username,omitempty"`
	Content  *string `json:"content,omitempty"`
	Embeds   []Embed `json:"embeds"`
}

type Embed struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Color       int     `json:"color"`
	Fields      []Field `json:"fields,omitempty"`
	Footer      Footer  `json:"footer"`
	Timestamp   string  `json:"timestamp"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Footer struct {
	Text string `json:"text"`
}

var CommonFooter = Footer{
	Text: "Loot Tracker Alerts",
}

// Embed colors used across the tracker's alerts.
const (
	ColorBlue    = 3447003
	ColorGray    = 9807270
	ColorYellow  = 16776960
	ColorRed     = 15548997
	ColorDarkRed = 10038562
	ColorGreen   = 5763719
)

// NewEmbed builds a timestamped embed with the shared footer.
func NewEmbed(title string, color int, fields ...Field) Embed {
	return Embed{
		Title:     title,
		Color:     color,
		Fields:    fields,
		Footer:    CommonFooter,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// A hung webhook endpoint must never stall the caller indefinitely.
var client = &http.Client{Timeout: 10 * time.Second}

func SendWebhook(url string, webhook *Webhook) error {
	if url == "" {
		return nil
	}

	payload, err := json.Marshal(webhook)
	if err != nil {
		return err
	}

	resp, err := client.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord: unexpected status code %d", resp.StatusCode)
	}

	return nil
}
