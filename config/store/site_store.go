package store

import (
	"log/slog"

	"caswitch/config/models"
	"caswitch/internal/logger"
)

// siteRecord constrains P to the pointer type of a site record
type siteRecord[T any] interface {
	*T
	models.Site
}

// SiteStore is the credential store shared by the site-based families
type SiteStore[T any, P siteRecord[T]] struct {
	path         string
	secretEntity string
	log          *slog.Logger
}

func newSiteStore[T any, P siteRecord[T]](path, secretEntity string, log *slog.Logger) *SiteStore[T, P] {
	if log == nil {
		log = logger.Discard()
	}
	return &SiteStore[T, P]{path: path, secretEntity: secretEntity, log: log}
}

// Path is where the document lives
func (s *SiteStore[T, P]) Path() string {
	return s.path
}

// Load reads the document; an absent or malformed file yields an empty one
func (s *SiteStore[T, P]) Load() (*models.SiteDocument[T], error) {
	doc := models.NewSiteDocument[T]()
	ok, err := readDocument(s.path, doc, s.log)
	if err != nil {
		return nil, err
	}
	if !ok {
		doc = models.NewSiteDocument[T]()
	}
	if doc.Version == "" {
		doc.Version = models.DocumentVersion
	}
	if doc.Sites == nil {
		doc.Sites = make(map[string]*T)
	}
	for name, site := range doc.Sites {
		if site == nil {
			delete(doc.Sites, name)
			continue
		}
		P(site).InitSecrets()
	}
	return doc, nil
}

// Save writes the whole document
func (s *SiteStore[T, P]) Save(doc *models.SiteDocument[T]) error {
	return writeDocument(s.path, doc)
}

// Get returns the named site
func (s *SiteStore[T, P]) Get(name string) (*T, bool, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, false, err
	}
	site, ok := doc.Sites[name]
	return site, ok, nil
}

// SiteEntry is one site of a store listing
type SiteEntry struct {
	Name string
	Site models.Site
}

// Sites returns every site in name order
func (s *SiteStore[T, P]) Sites() ([]SiteEntry, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	entries := make([]SiteEntry, 0, len(doc.Sites))
	for _, name := range sortedKeys(doc.Sites) {
		entries = append(entries, SiteEntry{Name: name, Site: P(doc.Sites[name])})
	}
	return entries, nil
}

// SiteNames returns every site name in sorted order
func (s *SiteStore[T, P]) SiteNames() ([]string, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	return sortedKeys(doc.Sites), nil
}

// AddSite creates an empty site
func (s *SiteStore[T, P]) AddSite(name, url string, description *string) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	if _, exists := doc.Sites[name]; exists {
		return models.AlreadyExists(models.EntitySite, name, "")
	}

	site := P(new(T))
	*site.Meta() = models.NewSiteMetadata(url, description)
	site.InitSecrets()
	doc.Sites[name] = (*T)(site)

	if err := s.Save(doc); err != nil {
		return err
	}
	s.log.Info("site added", "site", name)
	return nil
}

// UpdateMetadata applies a sparse patch to the site's URL and description
func (s *SiteStore[T, P]) UpdateMetadata(name string, patch models.MetadataPatch) error {
	return s.mutate(name, func(site P) error {
		patch.Apply(site.Meta())
		return nil
	})
}

// RemoveSite deletes the site. References to it are left in place and fail
// on their next resolution.
func (s *SiteStore[T, P]) RemoveSite(name string) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	if _, exists := doc.Sites[name]; !exists {
		return models.NotFound(models.EntitySite, name, "")
	}
	delete(doc.Sites, name)

	if err := s.Save(doc); err != nil {
		return err
	}
	s.log.Info("site removed", "site", name)
	return nil
}

// AddSecret stores a new named secret under site
func (s *SiteStore[T, P]) AddSecret(site, name, value string) error {
	return s.mutate(site, func(rec P) error {
		secrets := rec.Secrets()
		if _, exists := secrets[name]; exists {
			return models.AlreadyExists(s.secretEntity, name, site)
		}
		secrets[name] = value
		return nil
	})
}

// UpdateSecret replaces the value of an existing secret
func (s *SiteStore[T, P]) UpdateSecret(site, name, value string) error {
	return s.mutate(site, func(rec P) error {
		secrets := rec.Secrets()
		if _, exists := secrets[name]; !exists {
			return models.NotFound(s.secretEntity, name, site)
		}
		secrets[name] = value
		return nil
	})
}

// RemoveSecret deletes a secret from site
func (s *SiteStore[T, P]) RemoveSecret(site, name string) error {
	return s.mutate(site, func(rec P) error {
		secrets := rec.Secrets()
		if _, exists := secrets[name]; !exists {
			return models.NotFound(s.secretEntity, name, site)
		}
		delete(secrets, name)
		return nil
	})
}

// SecretNames lists the secret names of site in sorted order
func (s *SiteStore[T, P]) SecretNames(site string) ([]string, error) {
	rec, ok, err := s.Get(site)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NotFound(models.EntitySite, site, "")
	}
	return sortedKeys(P(rec).Secrets()), nil
}

// mutate loads the document, applies fn to the named site, bumps its
// updated_at and saves. Nothing is written when fn fails.
func (s *SiteStore[T, P]) mutate(name string, fn func(P) error) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	site, ok := doc.Sites[name]
	if !ok {
		return models.NotFound(models.EntitySite, name, "")
	}

	rec := P(site)
	if err := fn(rec); err != nil {
		return err
	}
	rec.Meta().Touch()
	return s.Save(doc)
}

// ClaudeStore holds the Claude sites and their tokens
type ClaudeStore struct {
	*SiteStore[models.ClaudeSite, *models.ClaudeSite]
}

// NewClaudeStore creates a store backed by path
func NewClaudeStore(path string, log *slog.Logger) *ClaudeStore {
	return &ClaudeStore{newSiteStore[models.ClaudeSite, *models.ClaudeSite](path, models.EntityToken, log)}
}

// UpdateConfig applies a sparse patch to the site's settings
func (s *ClaudeStore) UpdateConfig(name string, patch models.ClaudeConfigPatch) error {
	return s.mutate(name, func(site *models.ClaudeSite) error {
		patch.Apply(&site.Config)
		return nil
	})
}

// CodexStore holds the Codex sites and their API keys
type CodexStore struct {
	*SiteStore[models.CodexSite, *models.CodexSite]
}

// NewCodexStore creates a store backed by path
func NewCodexStore(path string, log *slog.Logger) *CodexStore {
	return &CodexStore{newSiteStore[models.CodexSite, *models.CodexSite](path, models.EntityAPIKey, log)}
}

// UpdateConfig applies a sparse patch to the site's settings
func (s *CodexStore) UpdateConfig(name string, patch models.CodexConfigPatch) error {
	return s.mutate(name, func(site *models.CodexSite) error {
		patch.Apply(&site.Config)
		return nil
	})
}

// GeminiStore holds the Gemini sites and their API keys
type GeminiStore struct {
	*SiteStore[models.GeminiSite, *models.GeminiSite]
}

// NewGeminiStore creates a store backed by path
func NewGeminiStore(path string, log *slog.Logger) *GeminiStore {
	return &GeminiStore{newSiteStore[models.GeminiSite, *models.GeminiSite](path, models.EntityAPIKey, log)}
}

// UpdateConfig applies a sparse patch to the site's settings
func (s *GeminiStore) UpdateConfig(name string, patch models.GeminiConfigPatch) error {
	return s.mutate(name, func(site *models.GeminiSite) error {
		patch.Apply(&site.Config)
		return nil
	})
}
