package albion

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

const searchRetries = 3

type searchResults struct {
	Guilds []Guild `json:"guilds"`
}

// SearchGuilds looks up guilds by name. The search endpoint is flakier than
// the events feed, so it gets a couple of retries.
func (c *Client) SearchGuilds(ctx context.Context, query string) ([]Guild, error) {
	u := fmt.Sprintf("%s/search?q=%s", c.baseURL, url.QueryEscape(query))

	var lastErr error
	for i := 0; i < searchRetries; i++ {
		var results searchResults
		if err := c.getJSON(ctx, u, &results); err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		return results.Guilds, nil
	}
	return nil, lastErr
}

// GuildInfo fetches a single guild record by id.
func (c *Client) GuildInfo(ctx context.Context, guildID string) (*Guild, error) {
	u := fmt.Sprintf("%s/guilds/%s", c.baseURL, url.PathEscape(guildID))
	var guild Guild
	if err := c.getJSON(ctx, u, &guild); err != nil {
		return nil, err
	}
	return &guild, nil
}

// GuildMembers fetches the current roster of a guild.
func (c *Client) GuildMembers(ctx context.Context, guildID string) ([]GuildMember, error) {
	u := fmt.Sprintf("%s/guilds/%s/members", c.baseURL, url.PathEscape(guildID))
	var members []GuildMember
	if err := c.getJSON(ctx, u, &members); err != nil {
		return nil, err
	}
	return members, nil
}
