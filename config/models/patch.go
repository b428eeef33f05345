package models

type fieldOp uint8

const (
	opKeep fieldOp = iota
	opSet
	opClear
)

// Field is one entry of a sparse patch. The zero value leaves the target
// untouched, Set overwrites it and Clear unsets it.
type Field[T any] struct {
	op    fieldOp
	value T
}

// Set returns a field that overwrites the target with v
func Set[T any](v T) Field[T] {
	return Field[T]{op: opSet, value: v}
}

// Clear returns a field that unsets the target
func Clear[T any]() Field[T] {
	return Field[T]{op: opClear}
}

// FieldFromInput maps interactive input onto a patch field: an empty string
// clears the target, anything else overwrites it.
func FieldFromInput(s string) Field[string] {
	if s == "" {
		return Clear[string]()
	}
	return Set(s)
}

// IsKeep reports whether the field leaves the target untouched
func (f Field[T]) IsKeep() bool { return f.op == opKeep }

// IsSet reports whether the field overwrites the target
func (f Field[T]) IsSet() bool { return f.op == opSet }

// IsClear reports whether the field unsets the target
func (f Field[T]) IsClear() bool { return f.op == opClear }

// Value returns the value carried by a Set field
func (f Field[T]) Value() T { return f.value }

// ApplyOptional applies the field to an optional target
func (f Field[T]) ApplyOptional(dst **T) bool {
	switch f.op {
	case opSet:
		v := f.value
		*dst = &v
		return true
	case opClear:
		*dst = nil
		return true
	}
	return false
}

// ApplyValue applies the field to a required target; Clear resets it to the zero value
func (f Field[T]) ApplyValue(dst *T) bool {
	switch f.op {
	case opSet:
		*dst = f.value
		return true
	case opClear:
		var zero T
		*dst = zero
		return true
	}
	return false
}

// MetadataPatch updates a site's URL and description
type MetadataPatch struct {
	URL         Field[string]
	Description Field[string]
}

// Apply reports whether anything changed
func (p MetadataPatch) Apply(m *SiteMetadata) bool {
	changed := p.URL.ApplyValue(&m.URL)
	changed = p.Description.ApplyOptional(&m.Description) || changed
	return changed
}

// VertexPatch updates the Claude Vertex AI settings
type VertexPatch struct {
	Enabled   Field[bool]
	ProjectID Field[string]
	BaseURL   Field[string]
	SkipAuth  Field[bool]
}

func (p VertexPatch) Apply(v *ClaudeVertexConfig) bool {
	changed := p.Enabled.ApplyValue(&v.Enabled)
	changed = p.ProjectID.ApplyOptional(&v.ProjectID) || changed
	changed = p.BaseURL.ApplyOptional(&v.BaseURL) || changed
	changed = p.SkipAuth.ApplyValue(&v.SkipAuth) || changed
	return changed
}

// ClaudeConfigPatch updates a Claude site's settings
type ClaudeConfigPatch struct {
	BaseURL Field[string]
	Model   Field[string]
	Vertex  VertexPatch
}

func (p ClaudeConfigPatch) Apply(c *ClaudeSiteConfig) bool {
	changed := p.BaseURL.ApplyOptional(&c.BaseURL)
	changed = p.Model.ApplyOptional(&c.Model) || changed
	changed = p.Vertex.Apply(&c.Vertex) || changed
	return changed
}

// CodexConfigPatch updates a Codex site's settings
type CodexConfigPatch struct {
	BaseURL                Field[string]
	Model                  Field[string]
	ModelReasoningEffort   Field[string]
	ModelProvider          Field[string]
	NetworkAccess          Field[string]
	DisableResponseStorage Field[bool]
	WireAPI                Field[string]
}

func (p CodexConfigPatch) Apply(c *CodexSiteConfig) bool {
	changed := p.BaseURL.ApplyOptional(&c.BaseURL)
	changed = p.Model.ApplyOptional(&c.Model) || changed
	changed = p.ModelReasoningEffort.ApplyOptional(&c.ModelReasoningEffort) || changed
	changed = p.ModelProvider.ApplyOptional(&c.ModelProvider) || changed
	changed = p.NetworkAccess.ApplyOptional(&c.NetworkAccess) || changed
	changed = p.DisableResponseStorage.ApplyOptional(&c.DisableResponseStorage) || changed
	changed = p.WireAPI.ApplyOptional(&c.WireAPI) || changed
	return changed
}

// GeminiConfigPatch updates a Gemini site's settings
type GeminiConfigPatch struct {
	BaseURL Field[string]
	Model   Field[string]
}

func (p GeminiConfigPatch) Apply(c *GeminiSiteConfig) bool {
	changed := p.BaseURL.ApplyOptional(&c.BaseURL)
	changed = p.Model.ApplyOptional(&c.Model) || changed
	return changed
}

// ProviderPatch updates an OpenCode provider
type ProviderPatch struct {
	Name        Field[string]
	BaseURL     Field[string]
	APIKey      Field[string]
	NPM         Field[string]
	Description Field[string]
}

func (p ProviderPatch) Apply(pr *Provider) bool {
	changed := p.Name.ApplyValue(&pr.Name)
	changed = p.BaseURL.ApplyValue(&pr.Options.BaseURL) || changed
	changed = p.APIKey.ApplyValue(&pr.Options.APIKey) || changed
	changed = p.NPM.ApplyOptional(&pr.NPM) || changed
	changed = p.Description.ApplyOptional(&pr.Metadata.Description) || changed
	return changed
}

// ModelPatch updates one provider model
type ModelPatch struct {
	Name    Field[string]
	Context Field[uint64]
	Output  Field[uint64]
}

func (p ModelPatch) Apply(m *ModelInfo) bool {
	changed := p.Name.ApplyValue(&m.Name)
	if p.Context.IsKeep() && p.Output.IsKeep() {
		return changed
	}
	if m.Limit == nil {
		m.Limit = &ModelLimit{}
	}
	p.Context.ApplyOptional(&m.Limit.Context)
	p.Output.ApplyOptional(&m.Limit.Output)
	if m.Limit.Context == nil && m.Limit.Output == nil {
		m.Limit = nil
	}
	return true
}
