// Package career owns the resume-builder slice of the data model.
package career

import (
	"context"

	"github.com/openlearn/edusync/internal/model"
	"github.com/openlearn/edusync/internal/service"
	"github.com/openlearn/edusync/internal/util"
)

type Service struct {
	w *service.Writer
}

func New(w *service.Writer) *Service { return &Service{w: w} }

func (s *Service) CreateResume(ctx context.Context, title string, sections []byte) (model.Resume, error) {
	now := model.NowISO()
	r := model.Resume{
		ID:        util.NewULID(),
		Title:     title,
		Sections:  sections,
		CreatedAt: now,
		UpdatedAt: now,
	}

	rec, err := model.ToRecord(r)
	if err != nil {
		return model.Resume{}, err
	}
	if err := s.w.Create(ctx, model.EntityResume, rec); err != nil {
		return model.Resume{}, err
	}
	return r, nil
}

// SaveSections replaces the resume document body.
func (s *Service) SaveSections(ctx context.Context, id string, sections []byte) error {
	return s.w.Update(ctx, model.EntityResume, id, map[string]any{"sections": sections})
}

func (s *Service) Rename(ctx context.Context, id, title string) error {
	return s.w.Update(ctx, model.EntityResume, id, map[string]any{"title": title})
}

func (s *Service) DeleteResume(ctx context.Context, id string) error {
	return s.w.Delete(ctx, model.EntityResume, id)
}

func (s *Service) ListResumes(ctx context.Context) ([]model.Resume, error) {
	recs, err := s.w.Store().FindMany(ctx, nil, model.EntityResume.Collection(), nil, nil)
	if err != nil {
		return nil, err
	}

	out := make([]model.Resume, 0, len(recs))
	for _, rec := range recs {
		var r model.Resume
		if err := rec.Decode(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
