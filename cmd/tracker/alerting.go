package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"loottracker/shared/discord"
)

var (
	_trackerWebhookURL string
	webhookOnce        sync.Once
	webhookRl          = rate.NewLimiter(rate.Every(10*time.Second), 5)
)

func getTrackerWebhookURL() string {
	webhookOnce.Do(func() {
		_trackerWebhookURL = os.Getenv("TRACKER_WEBHOOK_URL")
	})
	return _trackerWebhookURL
}

// discordAlerter adapts the tracker engine's alert hooks onto the shared
// webhook sender. Gap, failure and kill alerts go through a rate limiter;
// losing one under a burst is fine, the log line always lands.
type discordAlerter struct{}

func (discordAlerter) GapDetected(gap, lastProcessed, oldestFetched int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := webhookRl.Wait(ctx); err == nil {
		webhook := discord.Webhook{
			Embeds: []discord.Embed{discord.NewEmbed("Event Gap Detected", discord.ColorYellow,
				discord.Field{Name: "Gap Size", Value: fmt.Sprintf("%d", gap)},
				discord.Field{Name: "Last Processed", Value: fmt.Sprintf("`%d`", lastProcessed)},
				discord.Field{Name: "Oldest Fetched", Value: fmt.Sprintf("`%d`", oldestFetched)},
			)},
		}
		discord.SendWebhook(getTrackerWebhookURL(), &webhook)
	}
	log.Printf("Warning: gap of %d events between %d and %d", gap, lastProcessed, oldestFetched)
}

func (discordAlerter) PageSaturated(count int) {
	log.Printf("Warning: first page saturated with %d events, feed may be outrunning the poll interval", count)
}

func (discordAlerter) KillsDetected(added int, initial bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := webhookRl.Wait(ctx); err == nil {
		title := "New Kills Detected"
		if initial {
			title = "Initial Load Complete"
		}
		webhook := discord.Webhook{
			Embeds: []discord.Embed{discord.NewEmbed(title, discord.ColorGreen,
				discord.Field{Name: "Pending Kills Added", Value: fmt.Sprintf("%d", added)},
			)},
		}
		discord.SendWebhook(getTrackerWebhookURL(), &webhook)
	}
	log.Printf("Info: %d new pending kills", added)
}

func (discordAlerter) PollFailed(err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if rlErr := webhookRl.Wait(ctx); rlErr == nil {
		webhook := discord.Webhook{
			Embeds: []discord.Embed{discord.NewEmbed("Poll Failed", discord.ColorRed,
				discord.Field{Name: "Error", Value: err.Error()},
			)},
		}
		discord.SendWebhook(getTrackerWebhookURL(), &webhook)
	}
	log.Printf("Error: poll failed: %s", err)
}

func handlePanic(r interface{}) {
	content := fmt.Sprintf("<@&%s>", os.Getenv("ALERTS_ROLE_ID"))
	webhook := discord.Webhook{
		Content: &content,
		Embeds: []discord.Embed{discord.NewEmbed("Fatal error in Tracker", discord.ColorDarkRed,
			discord.Field{Name: "Error", Value: fmt.Sprintf("%s", r)},
		)},
	}
	discord.SendWebhook(getTrackerWebhookURL(), &webhook)
	log.Printf("Fatal error in Tracker: %s", r)
}

func sendStartUpAlert() {
	webhook := discord.Webhook{
		Embeds: []discord.Embed{discord.NewEmbed("Starting up...", discord.ColorBlue)},
	}
	discord.SendWebhook(getTrackerWebhookURL(), &webhook)
	log.Println("Info: Starting up...")
}
