package store

import (
	"log/slog"

	"caswitch/config/models"
	"caswitch/internal/logger"
)

// GlobalStore persists the active reference of every family in one document
type GlobalStore struct {
	path string
	log  *slog.Logger
}

// NewGlobalStore creates a store backed by path
func NewGlobalStore(path string, log *slog.Logger) *GlobalStore {
	if log == nil {
		log = logger.Discard()
	}
	return &GlobalStore{path: path, log: log}
}

// Path is where the document lives
func (s *GlobalStore) Path() string {
	return s.path
}

// Load reads the document; an absent or malformed file yields an empty one
func (s *GlobalStore) Load() (*models.GlobalConfig, error) {
	cfg := models.NewGlobalConfig()
	ok, err := readDocument(s.path, cfg, s.log)
	if err != nil {
		return nil, err
	}
	if !ok {
		cfg = models.NewGlobalConfig()
	}
	if cfg.Version == "" {
		cfg.Version = models.DocumentVersion
	}
	return cfg, nil
}

// Save bumps updated_at and writes the whole document
func (s *GlobalStore) Save(cfg *models.GlobalConfig) error {
	now := models.Timestamp()
	if cfg.Metadata.CreatedAt == "" {
		cfg.Metadata.CreatedAt = now
	}
	cfg.Metadata.UpdatedAt = now
	return writeDocument(s.path, cfg)
}

// Active returns the current references
func (s *GlobalStore) Active() (models.ActiveConfigs, error) {
	cfg, err := s.Load()
	if err != nil {
		return models.ActiveConfigs{}, err
	}
	return cfg.Active, nil
}

// Update loads the document, lets fn edit the references and saves it
func (s *GlobalStore) Update(fn func(*models.ActiveConfigs)) error {
	cfg, err := s.Load()
	if err != nil {
		return err
	}
	fn(&cfg.Active)
	return s.Save(cfg)
}
