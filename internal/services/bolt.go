package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MegaGrindStone/playground-web-ui/internal/models"
	bolt "go.etcd.io/bbolt"
)

// BoltDB implements the session Store interface using a BoltDB backend. The whole transcript and the sampling
// settings live in a single bucket, each under its own key as a JSON document.
type BoltDB struct {
	db *bolt.DB
}

var (
	sessionBucket = []byte("session")
	messagesKey   = []byte("messages")
	settingsKey   = []byte("settings")
)

// NewBoltDB creates a new BoltDB instance with the specified file path. It initializes the database
// with the session bucket and returns an error if the database cannot be opened or initialized. The
// database file is created with 0600 permissions if it doesn't exist.
func NewBoltDB(path string) (BoltDB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return BoltDB{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return BoltDB{}, fmt.Errorf("failed to create session bucket: %w", err)
	}

	return BoltDB{db: db}, nil
}

// Close releases the database file.
func (b BoltDB) Close() error {
	return b.db.Close()
}

// Messages returns the stored transcript, or nil if nothing was saved yet.
func (b BoltDB) Messages(context.Context) ([]models.Message, error) {
	var messages []models.Message
	found, err := b.get(messagesKey, &messages)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	if !found {
		return nil, nil
	}
	return messages, nil
}

// SaveMessages replaces the stored transcript with messages.
func (b BoltDB) SaveMessages(_ context.Context, messages []models.Message) error {
	if messages == nil {
		messages = []models.Message{}
	}
	if err := b.put(messagesKey, messages); err != nil {
		return fmt.Errorf("failed to save messages: %w", err)
	}
	return nil
}

// Settings returns the stored sampling settings. The boolean is false when none were saved yet.
func (b BoltDB) Settings(context.Context) (models.SamplingSettings, bool, error) {
	var settings models.SamplingSettings
	found, err := b.get(settingsKey, &settings)
	if err != nil {
		return models.SamplingSettings{}, false, fmt.Errorf("failed to read settings: %w", err)
	}
	return settings, found, nil
}

// SaveSettings replaces the stored sampling settings.
func (b BoltDB) SaveSettings(_ context.Context, settings models.SamplingSettings) error {
	if err := b.put(settingsKey, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (b BoltDB) get(key []byte, v any) (bool, error) {
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(sessionBucket)
		if bucket == nil {
			return nil
		}

		raw := bucket.Get(key)
		if raw == nil {
			return nil
		}
		found = true
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", key, err)
		}
		return nil
	})
	return found, err
}

func (b BoltDB) put(key []byte, v any) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(sessionBucket)
		if bucket == nil {
			return fmt.Errorf("bucket %s not found", sessionBucket)
		}

		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", key, err)
		}

		return bucket.Put(key, raw)
	})
}
