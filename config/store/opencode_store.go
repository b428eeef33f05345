package store

import (
	"log/slog"

	"caswitch/config/models"
	"caswitch/config/validation"
	"caswitch/internal/logger"
)

// OpenCodeStore holds the OpenCode providers and their models
type OpenCodeStore struct {
	path string
	log  *slog.Logger
}

// NewOpenCodeStore creates a store backed by path
func NewOpenCodeStore(path string, log *slog.Logger) *OpenCodeStore {
	if log == nil {
		log = logger.Discard()
	}
	return &OpenCodeStore{path: path, log: log}
}

// Path is where the document lives
func (s *OpenCodeStore) Path() string {
	return s.path
}

// Load reads the document; an absent or malformed file yields an empty one
func (s *OpenCodeStore) Load() (*models.OpenCodeDocument, error) {
	doc := models.NewOpenCodeDocument()
	ok, err := readDocument(s.path, doc, s.log)
	if err != nil {
		return nil, err
	}
	if !ok {
		doc = models.NewOpenCodeDocument()
	}
	if doc.Version == "" {
		doc.Version = models.DocumentVersion
	}
	if doc.Providers == nil {
		doc.Providers = make(map[string]*models.Provider)
	}
	for name, p := range doc.Providers {
		if p == nil {
			delete(doc.Providers, name)
			continue
		}
		if p.Models == nil {
			p.Models = make(map[string]models.ModelInfo)
		}
	}
	return doc, nil
}

// Save writes the whole document
func (s *OpenCodeStore) Save(doc *models.OpenCodeDocument) error {
	return writeDocument(s.path, doc)
}

// Get returns the named provider
func (s *OpenCodeStore) Get(name string) (*models.Provider, bool, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, false, err
	}
	p, ok := doc.Providers[name]
	return p, ok, nil
}

// ProviderNames returns every provider name in sorted order
func (s *OpenCodeStore) ProviderNames() ([]string, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	return sortedKeys(doc.Providers), nil
}

// NewProviderInput carries the fields of a provider being added
type NewProviderInput struct {
	Name        string
	DisplayName string
	BaseURL     string
	APIKey      string
	NPM         *string
	Description *string
}

// AddProvider creates a provider without models. An empty display name
// defaults to the provider key.
func (s *OpenCodeStore) AddProvider(in NewProviderInput) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	if _, exists := doc.Providers[in.Name]; exists {
		return models.AlreadyExists(models.EntityProvider, in.Name, "")
	}

	display := in.DisplayName
	if display == "" {
		display = in.Name
	}
	now := models.Timestamp()
	doc.Providers[in.Name] = &models.Provider{
		NPM:     in.NPM,
		Name:    display,
		Options: models.ProviderOptions{BaseURL: in.BaseURL, APIKey: in.APIKey},
		Models:  make(map[string]models.ModelInfo),
		Metadata: models.ProviderMetadata{
			Description: in.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}

	if err := s.Save(doc); err != nil {
		return err
	}
	s.log.Info("provider added", "provider", in.Name)
	return nil
}

// UpdateProvider applies a sparse patch to the provider
func (s *OpenCodeStore) UpdateProvider(name string, patch models.ProviderPatch) error {
	return s.mutate(name, func(p *models.Provider) error {
		patch.Apply(p)
		return nil
	})
}

// RemoveProvider deletes the provider and its models
func (s *OpenCodeStore) RemoveProvider(name string) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	if _, exists := doc.Providers[name]; !exists {
		return models.NotFound(models.EntityProvider, name, "")
	}
	delete(doc.Providers, name)

	if err := s.Save(doc); err != nil {
		return err
	}
	s.log.Info("provider removed", "provider", name)
	return nil
}

// AddModel registers a model under provider
func (s *OpenCodeStore) AddModel(provider, id string, info models.ModelInfo) error {
	return s.mutate(provider, func(p *models.Provider) error {
		if _, exists := p.Models[id]; exists {
			return models.AlreadyExists(models.EntityModel, id, provider)
		}
		if info.Name == "" {
			info.Name = id
		}
		p.Models[id] = info
		return nil
	})
}

// UpdateModel applies a sparse patch to one model
func (s *OpenCodeStore) UpdateModel(provider, id string, patch models.ModelPatch) error {
	return s.mutate(provider, func(p *models.Provider) error {
		info, exists := p.Models[id]
		if !exists {
			return models.NotFound(models.EntityModel, id, provider)
		}
		patch.Apply(&info)
		p.Models[id] = info
		return nil
	})
}

// RemoveModel deletes one model
func (s *OpenCodeStore) RemoveModel(provider, id string) error {
	return s.mutate(provider, func(p *models.Provider) error {
		if _, exists := p.Models[id]; !exists {
			return models.NotFound(models.EntityModel, id, provider)
		}
		delete(p.Models, id)
		return nil
	})
}

// ImportModels adds every id not already present, named after itself.
// It returns the ids that were added.
func (s *OpenCodeStore) ImportModels(provider string, ids []string) ([]string, error) {
	var added []string
	err := s.mutate(provider, func(p *models.Provider) error {
		for _, id := range validation.NormalizeModels(ids) {
			if _, exists := p.Models[id]; exists {
				continue
			}
			p.Models[id] = models.ModelInfo{Name: id}
			added = append(added, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// ModelIDs lists the model ids of provider in sorted order
func (s *OpenCodeStore) ModelIDs(provider string) ([]string, error) {
	p, ok, err := s.Get(provider)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NotFound(models.EntityProvider, provider, "")
	}
	return sortedKeys(p.Models), nil
}

func (s *OpenCodeStore) mutate(name string, fn func(*models.Provider) error) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	p, ok := doc.Providers[name]
	if !ok {
		return models.NotFound(models.EntityProvider, name, "")
	}
	if err := fn(p); err != nil {
		return err
	}
	p.Touch()
	return s.Save(doc)
}
