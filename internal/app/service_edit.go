package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"genekb/api/internal/docstore"
	"genekb/api/internal/model"
	"genekb/api/internal/review"
	"genekb/api/internal/util"
)

// EditResult reports what an edit did to the pending state.
type EditResult struct {
	UUID     string `json:"uuid"`
	Reverted bool   `json:"reverted"`
}

// UpdateReviewableContent applies an editor's change to one reviewable
// field: the value is written immediately, the marker snapshots the prior
// value on first edit, and the ledger bit is set. Editing a field back to
// its snapshot clears the pending state instead.
func (s *Service) UpdateReviewableContent(ctx context.Context, symbol, fieldPath string, newValue any, editor string) (EditResult, error) {
	if editor == "" {
		return EditResult{}, domainError(http.StatusBadRequest, "missing_editor", "editor is required", nil)
	}
	fieldPath = strings.Trim(fieldPath, "/")
	if fieldPath == "" || strings.HasSuffix(fieldPath, "_review") || strings.HasSuffix(fieldPath, "_uuid") {
		return EditResult{}, domainError(http.StatusBadRequest, "bad_path", fmt.Sprintf("%q is not an editable field path", fieldPath), nil)
	}

	currentValue, err := s.readValue(ctx, symbol, fieldPath)
	if err != nil {
		return EditResult{}, err
	}
	var current *model.Review
	var existing model.Review
	switch err := s.docs.GetInto(ctx, review.GenePath(symbol, fieldPath+"_review"), &existing); {
	case err == nil:
		current = &existing
	case errors.Is(err, docstore.ErrNotFound):
	default:
		return EditResult{}, fmt.Errorf("load marker for %s/%s: %w", symbol, fieldPath, err)
	}

	patch := make(map[string]any)
	uuid, err := s.fieldUUID(ctx, symbol, fieldPath, patch)
	if err != nil {
		return EditResult{}, err
	}
	ledgerKey, err := s.ledgerKey(ctx, symbol, fieldPath, uuid)
	if err != nil {
		return EditResult{}, err
	}

	marker, reverted := review.Updated(current, editor, currentValue, newValue)
	patch[review.GenePath(symbol, fieldPath)] = newValue
	patch[review.GenePath(symbol, fieldPath+"_review")] = marker
	if reverted {
		patch[review.MetaReviewPath(symbol, ledgerKey)] = nil
	} else {
		patch[review.MetaReviewPath(symbol, ledgerKey)] = true
	}
	s.stampMeta(symbol, editor, patch)

	if err := s.docs.Update(ctx, patch); err != nil {
		return EditResult{}, fmt.Errorf("update %s/%s: %w", symbol, fieldPath, err)
	}
	return EditResult{UUID: ledgerKey, Reverted: reverted}, nil
}

// readValue fetches the current value at a field path, treating a missing
// path as an unset value.
func (s *Service) readValue(ctx context.Context, symbol, fieldPath string) (any, error) {
	raw, err := s.docs.Get(ctx, review.GenePath(symbol, fieldPath))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load value for %s/%s: %w", symbol, fieldPath, err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode value for %s/%s: %w", symbol, fieldPath, err)
	}
	return v, nil
}

// fieldUUID reads the field's stable id, minting one into the patch for
// legacy fields that predate id assignment.
func (s *Service) fieldUUID(ctx context.Context, symbol, fieldPath string, patch map[string]any) (string, error) {
	var uuid string
	err := s.docs.GetInto(ctx, review.GenePath(symbol, fieldPath+"_uuid"), &uuid)
	switch {
	case err == nil && uuid != "":
		return uuid, nil
	case err != nil && !errors.Is(err, docstore.ErrNotFound):
		return "", fmt.Errorf("load id for %s/%s: %w", symbol, fieldPath, err)
	}
	uuid = util.NewUUID()
	patch[review.GenePath(symbol, fieldPath+"_uuid")] = uuid
	return uuid, nil
}

// ledgerKey derives the key tracked in the ledger for a field. Both halves
// of the cancer-type pair are tracked as the composite of the two list ids,
// included side first.
func (s *Service) ledgerKey(ctx context.Context, symbol, fieldPath, uuid string) (string, error) {
	var siblingField string
	uuidLeads := true
	switch {
	case strings.HasSuffix(fieldPath, "/excludedCancerTypes"):
		siblingField = strings.TrimSuffix(fieldPath, "excludedCancerTypes") + "cancerTypes_uuid"
		uuidLeads = false
	case strings.HasSuffix(fieldPath, "/cancerTypes"):
		siblingField = strings.TrimSuffix(fieldPath, "cancerTypes") + "excludedCancerTypes_uuid"
	default:
		return uuid, nil
	}

	var sibling string
	err := s.docs.GetInto(ctx, review.GenePath(symbol, siblingField), &sibling)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return "", fmt.Errorf("load paired id for %s/%s: %w", symbol, fieldPath, err)
	}
	if sibling == "" {
		return uuid, nil
	}
	if uuidLeads {
		return review.PairedID(uuid, sibling).String(), nil
	}
	return review.PairedID(sibling, uuid).String(), nil
}

// FlagDeletion marks an entity for removal pending review. An entity whose
// own creation was never accepted is removed immediately instead, with its
// ledger entries cascaded away, since there is nothing reviewed to undo.
func (s *Service) FlagDeletion(ctx context.Context, symbol, entityPath, editor string) error {
	entityPath = strings.Trim(entityPath, "/")
	arrayPath, index, ok := review.ArrayElement(entityPath)
	if !ok {
		return domainError(http.StatusBadRequest, "bad_path", fmt.Sprintf("%q does not address a collection entity", entityPath), nil)
	}

	nameField := entityPath + "/name"
	if strings.HasSuffix(arrayPath, "tumors") {
		nameField = entityPath + "/cancerTypes"
	}
	var marker model.Review
	err := s.docs.GetInto(ctx, review.GenePath(symbol, nameField+"_review"), &marker)
	hasMarker := err == nil
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("load marker for %s/%s: %w", symbol, nameField, err)
	}

	if hasMarker && marker.Added {
		return s.removeUnreviewed(ctx, symbol, entityPath, arrayPath, index, editor)
	}

	patch := make(map[string]any)
	uuid, err := s.fieldUUID(ctx, symbol, nameField, patch)
	if err != nil {
		return err
	}
	ledgerKey, err := s.ledgerKey(ctx, symbol, nameField, uuid)
	if err != nil {
		return err
	}
	marker.Removed = true
	marker.Stamp(editor)
	patch[review.GenePath(symbol, nameField+"_review")] = &marker
	patch[review.MetaReviewPath(symbol, ledgerKey)] = true
	s.stampMeta(symbol, editor, patch)

	if err := s.docs.Update(ctx, patch); err != nil {
		return fmt.Errorf("flag deletion of %s/%s: %w", symbol, entityPath, err)
	}
	return nil
}

// removeUnreviewed drops a never-accepted entity outright and clears every
// ledger bit its subtree holds.
func (s *Service) removeUnreviewed(ctx context.Context, symbol, entityPath, arrayPath string, index int, editor string) error {
	raw, err := s.docs.Get(ctx, review.GenePath(symbol, entityPath))
	if err != nil {
		return fmt.Errorf("load entity %s/%s: %w", symbol, entityPath, err)
	}
	var entity any
	if err := json.Unmarshal(raw, &entity); err != nil {
		return fmt.Errorf("decode entity %s/%s: %w", symbol, entityPath, err)
	}

	patch := make(map[string]any)
	for _, uuid := range collectFieldUUIDs(entity) {
		patch[review.MetaReviewPath(symbol, uuid)] = nil
	}
	s.stampMeta(symbol, editor, patch)

	if err := s.docs.DeleteFromArray(ctx, review.GenePath(symbol, arrayPath), []int{index}); err != nil {
		return fmt.Errorf("remove %s/%s: %w", symbol, entityPath, err)
	}
	if err := s.docs.Update(ctx, patch); err != nil {
		return fmt.Errorf("clear ledger for %s/%s: %w", symbol, entityPath, err)
	}
	return nil
}

// collectFieldUUIDs gathers every stable id in a decoded entity subtree.
func collectFieldUUIDs(v any) []string {
	var out []string
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			for k, child := range t {
				if strings.HasSuffix(k, "_uuid") {
					if id, ok := child.(string); ok && id != "" {
						out = append(out, id)
					}
					continue
				}
				walk(child)
			}
		case []any:
			for _, child := range t {
				walk(child)
			}
		}
	}
	walk(v)
	return out
}

// CreateGene bootstraps an empty document for a new symbol.
func (s *Service) CreateGene(ctx context.Context, symbol, editor string) (*model.Gene, error) {
	if symbol == "" {
		return nil, domainError(http.StatusBadRequest, "missing_symbol", "gene symbol is required", nil)
	}
	if _, err := s.docs.Get(ctx, review.GenePath(symbol)); err == nil {
		return nil, domainError(http.StatusConflict, "gene_exists", fmt.Sprintf("gene %s already exists", symbol), nil)
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("check gene %s: %w", symbol, err)
	}

	g := model.NewGene(symbol)
	patch := map[string]any{review.GenePath(symbol): g}
	s.stampMeta(symbol, editor, patch)
	if err := s.docs.Update(ctx, patch); err != nil {
		return nil, fmt.Errorf("create gene %s: %w", symbol, err)
	}
	return g, nil
}

// GetGene reads a gene document.
func (s *Service) GetGene(ctx context.Context, symbol string) (*model.Gene, error) {
	g, _, err := s.loadGene(ctx, symbol)
	return g, err
}

// ListGenes lists every curated symbol.
func (s *Service) ListGenes(ctx context.Context) ([]string, error) {
	symbols, err := s.docs.ListRecords(ctx, "Genes")
	if err != nil {
		return nil, fmt.Errorf("list genes: %w", err)
	}
	return symbols, nil
}

// CreateMutation appends a new mutation in the pending-creation state: the
// entity is live immediately, flagged added, and its name id enters the
// ledger.
func (s *Service) CreateMutation(ctx context.Context, symbol, name, editor string) (*model.Mutation, error) {
	if name == "" {
		return nil, domainError(http.StatusBadRequest, "missing_name", "mutation name is required", nil)
	}
	g, _, err := s.loadGene(ctx, symbol)
	if err != nil {
		return nil, err
	}
	for _, m := range g.Mutations {
		if strings.EqualFold(m.Name, name) {
			return nil, domainError(http.StatusConflict, "mutation_exists", fmt.Sprintf("mutation %s already exists on %s", name, symbol), nil)
		}
	}

	m := model.NewMutation(name)
	m.NameReview = model.NewReview(editor)
	m.NameReview.Added = true

	patch := map[string]any{
		review.GenePath(symbol, fmt.Sprintf("mutations/%d", len(g.Mutations))): m,
		review.MetaReviewPath(symbol, m.NameUUID):                              true,
	}
	s.stampMeta(symbol, editor, patch)
	if err := s.docs.Update(ctx, patch); err != nil {
		return nil, fmt.Errorf("create mutation on %s: %w", symbol, err)
	}
	return m, nil
}
