// Package timetable owns the weekly schedule slice of the data model.
package timetable

import (
	"context"

	"github.com/openlearn/edusync/internal/model"
	"github.com/openlearn/edusync/internal/service"
	"github.com/openlearn/edusync/internal/store"
	"github.com/openlearn/edusync/internal/util"
)

type Service struct {
	w *service.Writer
}

func New(w *service.Writer) *Service { return &Service{w: w} }

func (s *Service) AddEntry(ctx context.Context, title string, dayOfWeek int, startsAt, endsAt, courseID string) (model.TimetableEntry, error) {
	now := model.NowISO()
	e := model.TimetableEntry{
		ID:        util.NewULID(),
		Title:     title,
		DayOfWeek: dayOfWeek,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		CourseID:  courseID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	rec, err := model.ToRecord(e)
	if err != nil {
		return model.TimetableEntry{}, err
	}
	if err := s.w.Create(ctx, model.EntityTimetableEntry, rec); err != nil {
		return model.TimetableEntry{}, err
	}
	return e, nil
}

func (s *Service) UpdateEntry(ctx context.Context, id string, fields map[string]any) error {
	return s.w.Update(ctx, model.EntityTimetableEntry, id, fields)
}

func (s *Service) RemoveEntry(ctx context.Context, id string) error {
	return s.w.Delete(ctx, model.EntityTimetableEntry, id)
}

// ListDay returns entries for one weekday ordered by start time.
func (s *Service) ListDay(ctx context.Context, dayOfWeek int) ([]model.TimetableEntry, error) {
	order := &store.Order{Field: "startsAt"}
	recs, err := s.w.Store().FindMany(ctx, nil, model.EntityTimetableEntry.Collection(),
		store.Eq("dayOfWeek", float64(dayOfWeek)), order)
	if err != nil {
		return nil, err
	}

	out := make([]model.TimetableEntry, 0, len(recs))
	for _, rec := range recs {
		var e model.TimetableEntry
		if err := rec.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
