package biz

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-kb/internal/kb/staging"
	"github.com/kart-io/sentinel-kb/internal/model"
	"github.com/kart-io/sentinel-kb/pkg/errors"
	"github.com/kart-io/sentinel-kb/pkg/id"
)

// SourceInput describes a source being added to a draft.
type SourceInput struct {
	Type    model.SourceType `json:"type"`
	Locator string           `json:"locator,omitempty"` // URL for websites, file name for files
	Content string           `json:"content,omitempty"` // inline content for text and file sources
}

// DraftPatch is a partial update applied to a staged draft.
type DraftPatch struct {
	Name            *string         `json:"name,omitempty"`
	Config          *model.KBConfig `json:"config,omitempty"`
	AddSources      []SourceInput   `json:"add_sources,omitempty"`
	RemoveSourceIDs []string        `json:"remove_source_ids,omitempty"`
}

// DraftManager owns the staged-draft lifecycle. Drafts never touch the
// relational store; everything here goes through the staging store and
// expires with it.
type DraftManager struct {
	staging   staging.Store
	extractor ContentExtractor
}

// NewDraftManager creates a DraftManager.
func NewDraftManager(st staging.Store, extractor ContentExtractor) *DraftManager {
	return &DraftManager{staging: st, extractor: extractor}
}

// Create stages a new empty draft. A nil config gets service defaults.
func (m *DraftManager) Create(ctx context.Context, tenant, name string, cfg *model.KBConfig) (*model.Draft, error) {
	config := model.DefaultKBConfig()
	if cfg != nil {
		config = *cfg
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ErrDraftInvalid.WithCause(err)
	}
	if name == "" {
		return nil, errors.ErrMissingParam.WithMessage("draft name is required")
	}

	draft := &model.Draft{
		ID:        id.NewULID(),
		Tenant:    tenant,
		Name:      name,
		Config:    config,
		CreatedAt: time.Now(),
	}
	if err := m.staging.Put(ctx, draft); err != nil {
		return nil, err
	}

	logger.Infow("draft created", "draft_id", draft.ID, "tenant", tenant)
	return draft, nil
}

// Get returns the staged draft.
func (m *DraftManager) Get(ctx context.Context, draftID string) (*model.Draft, error) {
	return m.staging.Get(ctx, draftID)
}

// Update applies a partial patch and refreshes the draft TTL. Config changes
// are validated against the closed schema before anything is stored, so an
// invalid patch leaves the draft untouched.
func (m *DraftManager) Update(ctx context.Context, draftID string, patch DraftPatch) (*model.Draft, error) {
	draft, err := m.staging.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if *patch.Name == "" {
			return nil, errors.ErrInvalidParam.WithMessage("draft name cannot be empty")
		}
		draft.Name = *patch.Name
	}
	if patch.Config != nil {
		if err := patch.Config.Validate(); err != nil {
			return nil, errors.ErrDraftInvalid.WithCause(err)
		}
		draft.Config = *patch.Config
	}

	for _, sid := range patch.RemoveSourceIDs {
		if draft.FindSource(sid) == nil {
			return nil, errors.ErrSourceNotFound.WithMessagef("source %s not found in draft %s", sid, draftID)
		}
		kept := draft.Sources[:0]
		for _, s := range draft.Sources {
			if s.ID != sid {
				kept = append(kept, s)
			}
		}
		draft.Sources = kept
	}

	for _, input := range patch.AddSources {
		src, err := m.buildSource(ctx, input)
		if err != nil {
			return nil, err
		}
		draft.Sources = append(draft.Sources, *src)
	}

	if err := m.staging.Put(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// buildSource materializes a SourceInput. Text and file sources carry their
// content inline and become ready immediately. Website sources are fetched
// once through the extractor so the draft can be previewed; a fetch failure
// stages the source in error status instead of failing the update.
func (m *DraftManager) buildSource(ctx context.Context, input SourceInput) (*model.Source, error) {
	now := time.Now()
	src := &model.Source{
		ID:      id.NewULID(),
		Type:    input.Type,
		Locator: input.Locator,
		AddedAt: now,
	}

	switch input.Type {
	case model.SourceText, model.SourceFile:
		if input.Content == "" {
			return nil, errors.ErrInvalidParam.WithMessagef("%s source requires content", input.Type)
		}
		src.Content = input.Content
		src.Status = model.SourceReady
		src.CharCount = utf8.RuneCountInString(input.Content)

	case model.SourceWebsite:
		if input.Locator == "" {
			return nil, errors.ErrInvalidParam.WithMessage("website source requires a locator URL")
		}
		src.Status = model.SourceFetching
		content, err := m.extractor.ExtractPage(ctx, input.Locator)
		if err != nil {
			logger.Warnw("draft source fetch failed", "url", input.Locator, "error", err)
			src.Status = model.SourceError
			src.Error = err.Error()
			return src, nil
		}
		src.Content = content
		src.Status = model.SourceReady
		src.CharCount = utf8.RuneCountInString(content)
		src.FetchedAt = &now

	default:
		return nil, errors.ErrInvalidParam.WithMessagef("unknown source type %q", input.Type)
	}

	return src, nil
}

// Delete discards the staged draft.
func (m *DraftManager) Delete(ctx context.Context, draftID string) error {
	return m.staging.Delete(ctx, draftID)
}

// Validate checks that the draft could be finalized: a valid config and at
// least one ready source.
func (m *DraftManager) Validate(draft *model.Draft) error {
	if err := draft.Config.Validate(); err != nil {
		return errors.ErrDraftInvalid.WithCause(err)
	}
	if len(draft.ReadySources()) == 0 {
		return errors.ErrNoReadySource
	}
	return nil
}
