package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/starskey-io/starskey"
	"golang.org/x/crypto/bcrypt"

	"github.com/sidharthv96/caprover/pkg/logger"
)

const (
	appKeyPrefix = "app:"
	indexKey     = "apps:index"
)

// StarskeyStore persists app definitions in an embedded Starskey database.
// Values are JSON; a separate index key keeps the sorted name list so Apps
// has a stable iteration order.
type StarskeyStore struct {
	db *starskey.Starskey
}

// Open opens (or creates) the store under dir.
func Open(dir string) (*StarskeyStore, error) {
	db, err := starskey.Open(&starskey.Config{
		Permission:        0755,
		Directory:         dir,
		FlushThreshold:    8 * 1024 * 1024,
		MaxLevel:          3,
		SizeFactor:        10,
		BloomFilter:       true,
		Logging:           false,
		Compression:       true,
		CompressionOption: starskey.SnappyCompression,
	})
	if err != nil {
		return nil, fmt.Errorf("opening app store: %w", err)
	}

	logger.Debug("App store opened", "path", dir)
	return &StarskeyStore{db: db}, nil
}

func appKey(name string) []byte {
	return []byte(appKeyPrefix + name)
}

func (s *StarskeyStore) index() ([]string, error) {
	value, err := s.db.Get([]byte(indexKey))
	if err != nil || value == nil {
		return nil, nil
	}

	var names []string
	if err := json.Unmarshal(value, &names); err != nil {
		return nil, fmt.Errorf("corrupt app index: %w", err)
	}
	return names, nil
}

// Apps returns all app definitions in name order.
func (s *StarskeyStore) Apps() ([]App, error) {
	names, err := s.index()
	if err != nil {
		return nil, err
	}

	apps := make([]App, 0, len(names))
	for _, name := range names {
		app, err := s.App(name)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}
	return apps, nil
}

// App returns one app definition by name.
func (s *StarskeyStore) App(name string) (*App, error) {
	value, err := s.db.Get(appKey(name))
	if err != nil {
		return nil, fmt.Errorf("reading app %q: %w", name, err)
	}
	if value == nil {
		return nil, &ErrAppNotFound{Name: name}
	}

	var app App
	if err := json.Unmarshal(value, &app); err != nil {
		return nil, fmt.Errorf("decoding app %q: %w", name, err)
	}
	return &app, nil
}

// SaveApp inserts or replaces an app definition and updates the index.
func (s *StarskeyStore) SaveApp(app *App) error {
	if app.Name == "" {
		return fmt.Errorf("app name is required")
	}

	data, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("encoding app %q: %w", app.Name, err)
	}

	names, err := s.index()
	if err != nil {
		return err
	}
	found := false
	for _, n := range names {
		if n == app.Name {
			found = true
			break
		}
	}
	if !found {
		names = append(names, app.Name)
		sort.Strings(names)
	}
	indexData, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("encoding app index: %w", err)
	}

	err = s.db.Update(func(txn *starskey.Txn) error {
		txn.Put(appKey(app.Name), data)
		txn.Put([]byte(indexKey), indexData)
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving app %q: %w", app.Name, err)
	}

	logger.Debug("App saved", "app", app.Name)
	return nil
}

// RemoveApp deletes an app definition and drops it from the index.
func (s *StarskeyStore) RemoveApp(name string) error {
	names, err := s.index()
	if err != nil {
		return err
	}
	kept := names[:0]
	for _, n := range names {
		if n != name {
			kept = append(kept, n)
		}
	}
	indexData, err := json.Marshal(kept)
	if err != nil {
		return fmt.Errorf("encoding app index: %w", err)
	}

	if err := s.db.Update(func(txn *starskey.Txn) error {
		txn.Put([]byte(indexKey), indexData)
		return nil
	}); err != nil {
		return fmt.Errorf("updating app index: %w", err)
	}

	if err := s.db.Delete(appKey(name)); err != nil {
		return fmt.Errorf("removing app %q: %w", name, err)
	}

	logger.Debug("App removed", "app", name)
	return nil
}

// SetBasicAuth sets (or clears, with an empty user) the basic-auth credential
// of an app. The password is stored bcrypt-hashed; the plaintext never
// touches disk.
func (s *StarskeyStore) SetBasicAuth(name, user, password string) error {
	app, err := s.App(name)
	if err != nil {
		return err
	}

	if user == "" {
		app.AuthUser = ""
		app.AuthPasswordHashed = ""
		return s.SaveApp(app)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password for app %q: %w", name, err)
	}

	app.AuthUser = user
	app.AuthPasswordHashed = string(hashed)
	return s.SaveApp(app)
}

// Close closes the underlying database.
func (s *StarskeyStore) Close() error {
	return s.db.Close()
}

var _ Store = (*StarskeyStore)(nil)
