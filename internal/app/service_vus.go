package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"genekb/api/internal/docstore"
	"genekb/api/internal/model"
	"genekb/api/internal/review"
)

// VusEntry is one keyed variant-of-unknown-significance record.
type VusEntry struct {
	Key string `json:"key"`
	model.Vus
}

// ListVus returns a gene's VUS list oldest first.
func (s *Service) ListVus(ctx context.Context, symbol string) ([]VusEntry, error) {
	entries := make(map[string]model.Vus)
	err := s.docs.GetInto(ctx, review.VusPath(symbol), &entries)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load vus for %s: %w", symbol, err)
	}
	out := make([]VusEntry, 0, len(entries))
	for key, v := range entries {
		out = append(out, VusEntry{Key: key, Vus: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time.Value != out[j].Time.Value {
			return out[i].Time.Value < out[j].Time.Value
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// AddVus appends entries for the given variant names. VUS additions bypass
// review and take effect immediately.
func (s *Service) AddVus(ctx context.Context, symbol string, names []string, editorName, editorEmail string) error {
	if len(names) == 0 {
		return domainError(http.StatusBadRequest, "missing_names", "at least one variant name is required", nil)
	}
	patch := make(map[string]any, len(names))
	for _, name := range names {
		for _, variant := range review.ParseVariantNames(name) {
			key := s.docs.PushKey(review.VusPath(symbol))
			patch[review.VusPath(symbol, key)] = model.NewVus(variant, editorName, editorEmail)
		}
	}
	if len(patch) == 0 {
		return domainError(http.StatusBadRequest, "missing_names", "no parsable variant names", nil)
	}
	if err := s.docs.Update(ctx, patch); err != nil {
		return fmt.Errorf("add vus on %s: %w", symbol, err)
	}
	return nil
}

// DeleteVus removes one entry immediately.
func (s *Service) DeleteVus(ctx context.Context, symbol, key string) error {
	if err := s.docs.Update(ctx, map[string]any{review.VusPath(symbol, key): nil}); err != nil {
		return fmt.Errorf("delete vus %s on %s: %w", key, symbol, err)
	}
	return nil
}

// RefreshVus re-stamps an entry to show it was recently re-confirmed.
func (s *Service) RefreshVus(ctx context.Context, symbol, key, editorName, editorEmail string) error {
	var v model.Vus
	if err := s.docs.GetInto(ctx, review.VusPath(symbol, key), &v); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return domainError(http.StatusNotFound, "vus_not_found", fmt.Sprintf("no vus entry %s on %s", key, symbol), nil)
		}
		return fmt.Errorf("load vus %s on %s: %w", key, symbol, err)
	}
	fresh := model.NewVus(v.Name, editorName, editorEmail)
	if err := s.docs.Update(ctx, map[string]any{review.VusPath(symbol, key): fresh}); err != nil {
		return fmt.Errorf("refresh vus %s on %s: %w", key, symbol, err)
	}
	return nil
}

// PromoteVus moves a VUS entry into the mutation list as a pending
// creation. The list entry disappears immediately; the new mutation carries
// the promotion flag until a reviewer accepts or rejects it.
func (s *Service) PromoteVus(ctx context.Context, symbol, key, editor string) (*model.Mutation, error) {
	var v model.Vus
	if err := s.docs.GetInto(ctx, review.VusPath(symbol, key), &v); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, domainError(http.StatusNotFound, "vus_not_found", fmt.Sprintf("no vus entry %s on %s", key, symbol), nil)
		}
		return nil, fmt.Errorf("load vus %s on %s: %w", key, symbol, err)
	}
	g, _, err := s.loadGene(ctx, symbol)
	if err != nil {
		return nil, err
	}

	m := model.NewMutation(v.Name)
	m.NameReview = model.NewReview(editor)
	m.NameReview.PromotedToMutation = true

	patch := map[string]any{
		review.GenePath(symbol, fmt.Sprintf("mutations/%d", len(g.Mutations))): m,
		review.MetaReviewPath(symbol, m.NameUUID):                              true,
		review.VusPath(symbol, key):                                            nil,
	}
	s.stampMeta(symbol, editor, patch)
	if err := s.docs.Update(ctx, patch); err != nil {
		return nil, fmt.Errorf("promote vus %s on %s: %w", key, symbol, err)
	}
	return m, nil
}

// DemoteMutation flags a mutation for demotion to the VUS list. The
// mutation stays in place until a reviewer accepts, at which point its name
// is split into variants and each re-enters the VUS list.
func (s *Service) DemoteMutation(ctx context.Context, symbol, nameUUID, editor string) error {
	g, _, err := s.loadGene(ctx, symbol)
	if err != nil {
		return err
	}
	index := -1
	var target *model.Mutation
	for i, m := range g.Mutations {
		if m.NameUUID == nameUUID {
			index, target = i, m
			break
		}
	}
	if target == nil {
		return domainError(http.StatusNotFound, "mutation_not_found", fmt.Sprintf("no mutation with id %s on %s", nameUUID, symbol), nil)
	}

	marker := target.NameReview
	if marker == nil {
		marker = model.NewReview(editor)
	} else {
		marker.Stamp(editor)
	}
	marker.DemotedToVus = true

	patch := map[string]any{
		review.GenePath(symbol, fmt.Sprintf("mutations/%d/name_review", index)): marker,
		review.MetaReviewPath(symbol, nameUUID):                                 true,
	}
	s.stampMeta(symbol, editor, patch)
	if err := s.docs.Update(ctx, patch); err != nil {
		return fmt.Errorf("demote mutation %s on %s: %w", nameUUID, symbol, err)
	}
	return nil
}
