package storage

import (
	"database/sql"
	"encoding/json"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func Connect() (*sql.DB, error) {
	if err := godotenv.Load(); err != nil {
		return nil, err
	}

	user := os.Getenv("POSTGRES_USER")
	password := os.Getenv("POSTGRES_PASSWORD")
	dbname := os.Getenv("POSTGRES_DB")
	if dbname == "" {
		dbname = "loottracker"
	}

	connStr := "user=" + user + " dbname=" + dbname + " password=" + password + " sslmode=disable"

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// KV is a key to JSON blob store backed by Postgres. Collaborators treat
// each save as a whole-snapshot replace; there is no partial-write recovery.
type KV struct {
	db *sql.DB
}

func NewKV(db *sql.DB) (*KV, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv_blob (
		key TEXT PRIMARY KEY,
		value JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return nil, err
	}
	return &KV{db: db}, nil
}

// Load unmarshals the blob under key into v. Reports false when the key does
// not exist.
func (s *KV) Load(key string, v any) (bool, error) {
	var raw []byte
	err := s.db.QueryRow(`SELECT value FROM kv_blob WHERE key = $1`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, err
	}
	return true, nil
}

// Save upserts the blob under key, replacing any previous value.
func (s *KV) Save(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO kv_blob (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, raw)
	return err
}

func (s *KV) Remove(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv_blob WHERE key = $1`, key)
	return err
}
