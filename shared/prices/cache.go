package prices

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"loottracker/shared/activity"
)

// Cache is a local SQLite cache of resolved prices. Market prices move
// slowly relative to a session, so cached entries are served until they age
// out. Only resolved (Found) prices are cached; misses are always retried
// upstream.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func OpenCache(path string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS price_cache (
		item_type TEXT NOT NULL,
		quality INTEGER NOT NULL,
		city TEXT NOT NULL,
		sell_price INTEGER NOT NULL,
		buy_price INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (item_type, quality, city)
	)`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db, ttl: ttl, now: time.Now}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns a cached price that has not expired.
func (c *Cache) Get(key Key, city string) (activity.ItemPrice, bool) {
	var sellPrice, buyPrice, updatedAt int64
	err := c.db.QueryRow(
		`SELECT sell_price, buy_price, updated_at FROM price_cache
		 WHERE item_type = ? AND quality = ? AND city = ?`,
		key.ItemType, key.Quality, city,
	).Scan(&sellPrice, &buyPrice, &updatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("Error reading price cache for %s: %s", key.ItemType, err)
		}
		return activity.ItemPrice{}, false
	}

	at := time.Unix(updatedAt, 0)
	if c.now().Sub(at) > c.ttl {
		return activity.ItemPrice{}, false
	}

	return activity.ItemPrice{
		SellPrice:  sellPrice,
		BuyPrice:   buyPrice,
		City:       city,
		LastUpdate: at,
		Found:      true,
	}, true
}

func (c *Cache) Put(key Key, city string, price activity.ItemPrice) {
	_, err := c.db.Exec(
		`INSERT INTO price_cache (item_type, quality, city, sell_price, buy_price, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (item_type, quality, city) DO UPDATE SET
			sell_price = excluded.sell_price,
			buy_price = excluded.buy_price,
			updated_at = excluded.updated_at`,
		key.ItemType, key.Quality, city, price.SellPrice, price.BuyPrice, c.now().Unix(),
	)
	if err != nil {
		log.Printf("Error writing price cache for %s: %s", key.ItemType, err)
	}
}
