package main

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"loottracker/shared/activity"
	"loottracker/shared/albion"
	"loottracker/shared/prices"
	"loottracker/shared/tracker"
)

func registerRoutes(app *fiber.App, engine *tracker.Engine, poller *tracker.Poller, client *albion.Client, priceClient *prices.Client, ctx context.Context) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/diagnostics", func(c *fiber.Ctx) error {
		return c.JSON(engine.Diagnose(ctx))
	})

	// Item render served by the game's CDN; quality, count and size are
	// baked into the image.
	app.Get("/items/:type/icon", func(c *fiber.Ctx) error {
		url := albion.ItemImageURL(c.Params("type"), c.QueryInt("quality", 1), c.QueryInt("count", 1), c.QueryInt("size", 64))
		return c.Redirect(url, fiber.StatusTemporaryRedirect)
	})

	// Single-item lookup with city fallback, for ad-hoc operator checks.
	app.Get("/prices/:type", func(c *fiber.Ctx) error {
		price, err := priceClient.ItemPrice(ctx, c.Params("type"), c.QueryInt("quality", 1), c.Query("city"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(fiber.Map{
			"price":     price,
			"formatted": prices.FormatPrice(price.SellPrice),
		})
	})

	registerConfigRoutes(app, engine, client, ctx)
	registerActivityRoutes(app, engine, poller, ctx)
	registerKillRoutes(app, engine)
	registerTransferRoutes(app, engine)
}

func registerConfigRoutes(app *fiber.App, engine *tracker.Engine, client *albion.Client, ctx context.Context) {
	app.Get("/config", func(c *fiber.Ctx) error {
		config := engine.GuildConfig()
		if config == nil {
			return fiber.NewError(fiber.StatusNotFound, "no guild configured")
		}
		return c.JSON(config)
	})

	// Configuring a guild resolves its id and pulls the full roster so the
	// relevance filter has member names to match against.
	app.Post("/config", func(c *fiber.Ctx) error {
		var body struct {
			GuildID string `json:"guildId"`
		}
		if err := c.BodyParser(&body); err != nil || body.GuildID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "guildId is required")
		}

		info, err := client.GuildInfo(ctx, body.GuildID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "error fetching guild: "+err.Error())
		}
		members, err := client.GuildMembers(ctx, body.GuildID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "error fetching members: "+err.Error())
		}

		config := &activity.GuildConfig{
			GuildName: info.Name,
			GuildID:   info.ID,
		}
		now := time.Now()
		for _, m := range members {
			config.Members = append(config.Members, activity.GuildMember{
				Name:      m.Name,
				ID:        m.ID,
				GuildName: info.Name,
				FirstSeen: now,
			})
		}
		if err := engine.SetGuildConfig(config); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(config)
	})

	app.Post("/config/members", func(c *fiber.Ctx) error {
		var body struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&body); err != nil || body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}
		if err := engine.AddGuildMember(body.Name); err != nil {
			return trackerError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Delete("/config/members/:name", func(c *fiber.Ctx) error {
		if err := engine.RemoveGuildMember(c.Params("name")); err != nil {
			return trackerError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Get("/guilds/search", func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return fiber.NewError(fiber.StatusBadRequest, "q is required")
		}
		guilds, err := client.SearchGuilds(ctx, query)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(guilds)
	})

	app.Get("/guilds/:id/members", func(c *fiber.Ctx) error {
		members, err := client.GuildMembers(ctx, c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(members)
	})
}

func registerActivityRoutes(app *fiber.App, engine *tracker.Engine, poller *tracker.Poller, ctx context.Context) {
	app.Get("/activity", func(c *fiber.Ctx) error {
		act := engine.CurrentActivity()
		if act == nil {
			return fiber.NewError(fiber.StatusNotFound, "no activity")
		}
		return c.JSON(act)
	})

	app.Post("/activity", func(c *fiber.Ctx) error {
		var body struct {
			Name         string   `json:"name"`
			City         string   `json:"city"`
			Participants []string `json:"participants"`
		}
		if err := c.BodyParser(&body); err != nil || body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}

		act, err := engine.StartActivity(body.Name, body.City, body.Participants)
		if err != nil {
			return trackerError(err)
		}
		if err := poller.Start(ctx, true); err != nil {
			log.Printf("Error starting poller: %s", err)
		}
		return c.Status(fiber.StatusCreated).JSON(act)
	})

	app.Post("/activity/end", func(c *fiber.Ctx) error {
		act, err := engine.EndActivity()
		if err != nil {
			return trackerError(err)
		}
		poller.Pause()
		return c.JSON(act)
	})

	app.Post("/activity/cancel", func(c *fiber.Ctx) error {
		act, err := engine.CancelActivity()
		if err != nil {
			return trackerError(err)
		}
		poller.Pause()
		return c.JSON(act)
	})

	app.Post("/activity/check", func(c *fiber.Ctx) error {
		if err := engine.CheckForKills(ctx, false); err != nil {
			return trackerError(err)
		}
		return c.JSON(fiber.Map{"cursor": engine.Cursor()})
	})

	app.Get("/activity/summary", func(c *fiber.Ctx) error {
		act := engine.CurrentActivity()
		if act == nil {
			return fiber.NewError(fiber.StatusNotFound, "no activity")
		}
		return c.JSON(act.Summarize(time.Now()))
	})

	app.Get("/activity/participants", func(c *fiber.Ctx) error {
		reports, err := engine.ParticipantReports()
		if err != nil {
			return trackerError(err)
		}
		return c.JSON(reports)
	})

	app.Post("/activity/participants", func(c *fiber.Ctx) error {
		var body struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&body); err != nil || body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}
		if err := engine.AddParticipant(body.Name); err != nil {
			return trackerError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Delete("/activity/participants/:name", func(c *fiber.Ctx) error {
		if err := engine.RemoveParticipant(c.Params("name")); err != nil {
			return trackerError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Post("/activity/participants/:name/pause", func(c *fiber.Ctx) error {
		if err := engine.PauseParticipant(c.Params("name")); err != nil {
			return trackerError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Post("/activity/participants/:name/resume", func(c *fiber.Ctx) error {
		if err := engine.ResumeParticipant(c.Params("name")); err != nil {
			return trackerError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Post("/activity/city", func(c *fiber.Ctx) error {
		var body struct {
			City string `json:"city"`
		}
		if err := c.BodyParser(&body); err != nil || body.City == "" {
			return fiber.NewError(fiber.StatusBadRequest, "city is required")
		}
		if err := engine.SetCity(body.City); err != nil {
			return trackerError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Get("/activity/chest", func(c *fiber.Ctx) error {
		act := engine.CurrentActivity()
		if act == nil {
			return fiber.NewError(fiber.StatusNotFound, "no activity")
		}
		return c.JSON(fiber.Map{
			"chest":          act.LootChest,
			"formattedValue": prices.FormatPrice(act.LootChest.TotalValue),
		})
	})

	app.Get("/activity/other-kills", func(c *fiber.Ctx) error {
		kills, err := engine.RefreshOtherGuildKills(ctx, c.QueryBool("more"))
		if err != nil {
			return trackerError(err)
		}
		return c.JSON(kills)
	})
}

func registerKillRoutes(app *fiber.App, engine *tracker.Engine) {
	app.Get("/activity/kills", func(c *fiber.Ctx) error {
		act := engine.CurrentActivity()
		if act == nil {
			return fiber.NewError(fiber.StatusNotFound, "no activity")
		}
		return c.JSON(act.Kills)
	})

	app.Get("/activity/kills/pending", func(c *fiber.Ctx) error {
		act := engine.CurrentActivity()
		if act == nil {
			return fiber.NewError(fiber.StatusNotFound, "no activity")
		}
		return c.JSON(act.PendingKills)
	})

	app.Post("/activity/kills/:eventId/confirm", func(c *fiber.Ctx) error {
		eventID, err := strconv.ParseInt(c.Params("eventId"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid event id")
		}

		// An absent selection field confirms all detected loot; an explicit
		// empty list confirms the kill with nothing kept.
		var body struct {
			Selection []int `json:"selection"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid body")
			}
		}

		kill, err := engine.ConfirmKill(c.Context(), eventID, body.Selection)
		if err != nil {
			return trackerError(err)
		}
		value := prices.TotalValue(kill.LootConfirmed)
		return c.JSON(fiber.Map{
			"kill":           kill,
			"lootValue":      value,
			"formattedValue": prices.FormatPrice(value),
			"destroyed":      kill.DestroyedCount(),
		})
	})

	app.Post("/activity/kills/:eventId/discard", func(c *fiber.Ctx) error {
		eventID, err := strconv.ParseInt(c.Params("eventId"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid event id")
		}
		if err := engine.DiscardKill(eventID); err != nil {
			return trackerError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func registerTransferRoutes(app *fiber.App, engine *tracker.Engine) {
	app.Get("/history", func(c *fiber.Ctx) error {
		history, err := engine.History()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if history == nil {
			history = []*activity.Activity{}
		}
		return c.JSON(history)
	})

	app.Get("/export", func(c *fiber.Ctx) error {
		data, err := engine.Export()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	})

	app.Get("/activity/export", func(c *fiber.Ctx) error {
		data, err := engine.ExportActivity()
		if err != nil {
			return trackerError(err)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	})

	app.Post("/import", func(c *fiber.Ctx) error {
		if engine.Active() && c.Query("force") != "true" {
			return fiber.NewError(fiber.StatusConflict, "an activity is active, pass force=true to overwrite")
		}
		if err := engine.Import(c.Body()); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func trackerError(err error) error {
	switch {
	case errors.Is(err, tracker.ErrNoActivity), errors.Is(err, tracker.ErrUnknownKill), errors.Is(err, tracker.ErrUnknownParticipant):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, tracker.ErrActivityActive):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, tracker.ErrNoConfig):
		return fiber.NewError(fiber.StatusPreconditionFailed, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
