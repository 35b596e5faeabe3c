package albion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://gameinfo.albiononline.com/api/gameinfo"
	renderBaseURL  = "https://render.albiononline.com/v1/item"

	// MaxPageSize is the largest events page the feed will return.
	MaxPageSize = 51
	// MaxOffset is the deepest pagination offset the feed accepts.
	MaxOffset = 1000
)

// Client talks to the gameinfo API. The feed enforces a request budget, so
// all event calls go through a shared limiter; callers suspend on the
// limiter rather than busy-waiting.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient() *Client {
	baseURL := os.Getenv("GAMEINFO_URL_BASE")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// FetchEvents returns one page of the global kill-event feed, newest first.
func (c *Client) FetchEvents(ctx context.Context, limit, offset int) ([]KillEvent, error) {
	u := fmt.Sprintf("%s/events?limit=%d&offset=%d", c.baseURL, limit, offset)
	var events []KillEvent
	if err := c.getJSON(ctx, u, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// FetchGuildEvents returns one page of kill events scoped to a guild.
func (c *Client) FetchGuildEvents(ctx context.Context, guildID string, limit, offset int) ([]KillEvent, error) {
	u := fmt.Sprintf("%s/events?limit=%d&offset=%d&guildId=%s", c.baseURL, limit, offset, url.QueryEscape(guildID))
	var events []KillEvent
	if err := c.getJSON(ctx, u, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gameinfo: unexpected status %d for %s", resp.StatusCode, url)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// ItemImageURL builds the render-service URL for an item icon.
func ItemImageURL(itemType string, quality, count, size int) string {
	return fmt.Sprintf("%s/%s.png?quality=%d&count=%d&size=%d", renderBaseURL, itemType, quality, count, size)
}
