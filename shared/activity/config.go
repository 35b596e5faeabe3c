package activity

import "time"

// GuildMember is one roster entry in the guild configuration, with lifetime
// counters accumulated across sessions.
type GuildMember struct {
	Name         string    `json:"name"`
	ID           string    `json:"id,omitempty"`
	GuildName    string    `json:"guildName,omitempty"`
	FirstSeen    time.Time `json:"firstSeen"`
	TotalKills   int       `json:"totalKills"`
	TotalAssists int       `json:"totalAssists"`
	TotalDeaths  int       `json:"totalDeaths"`
}

// GuildConfig is the operator's guild setup: the tag used for relevance
// filtering, the optional feed guild id for scoped fetches, and the roster.
type GuildConfig struct {
	GuildName string        `json:"guildName"`
	GuildID   string        `json:"guildId,omitempty"`
	Members   []GuildMember `json:"members"`
}

func (c *GuildConfig) Member(name string) *GuildMember {
	for i := range c.Members {
		if c.Members[i].Name == name {
			return &c.Members[i]
		}
	}
	return nil
}

// AddMember appends a roster entry if the name is not already present.
func (c *GuildConfig) AddMember(name string, now time.Time) bool {
	if c.Member(name) != nil {
		return false
	}
	c.Members = append(c.Members, GuildMember{
		Name:      name,
		GuildName: c.GuildName,
		FirstSeen: now,
	})
	return true
}

func (c *GuildConfig) RemoveMember(name string) bool {
	for i := range c.Members {
		if c.Members[i].Name == name {
			c.Members = append(c.Members[:i], c.Members[i+1:]...)
			return true
		}
	}
	return false
}

func (c *GuildConfig) MemberNames() []string {
	names := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		names = append(names, m.Name)
	}
	return names
}
