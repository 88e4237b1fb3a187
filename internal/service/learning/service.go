// Package learning owns the courses/lessons/quizzes slice of the data model.
// All writes go through the shared writer so local state and the outbox stay
// consistent; reads hit the local store directly and work fully offline.
package learning

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

func (s *Service) CreateCourse(ctx context.Context, title, description, category string) (model.Course, error) {
	now := model.NowISO()
	c := model.Course{
		ID:          util.NewULID(),
		Title:       title,
		Description: description,
		Category:    category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	rec, err := model.ToRecord(c)
	if err != nil {
		return model.Course{}, err
	}
	if err := s.w.Create(ctx, model.EntityCourse, rec); err != nil {
		return model.Course{}, err
	}
	return c, nil
}

func (s *Service) UpdateCourse(ctx context.Context, id string, fields map[string]any) error {
	return s.w.Update(ctx, model.EntityCourse, id, fields)
}

func (s *Service) DeleteCourse(ctx context.Context, id string) error {
	return s.w.Delete(ctx, model.EntityCourse, id)
}

func (s *Service) ListCourses(ctx context.Context) ([]model.Course, error) {
	recs, err := s.w.Store().FindMany(ctx, nil, model.EntityCourse.Collection(), nil, nil)
	if err != nil {
		return nil, err
	}

	out := make([]model.Course, 0, len(recs))
	for _, rec := range recs {
		var c model.Course
		if err := rec.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Service) CreateLesson(ctx context.Context, courseID, title, body string, position int) (model.Lesson, error) {
	now := model.NowISO()
	l := model.Lesson{
		ID:        util.NewULID(),
		CourseID:  courseID,
		Title:     title,
		Body:      body,
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	}

	rec, err := model.ToRecord(l)
	if err != nil {
		return model.Lesson{}, err
	}
	if err := s.w.Create(ctx, model.EntityLesson, rec); err != nil {
		return model.Lesson{}, err
	}
	return l, nil
}

func (s *Service) UpdateLesson(ctx context.Context, id string, fields map[string]any) error {
	return s.w.Update(ctx, model.EntityLesson, id, fields)
}

func (s *Service) DeleteLesson(ctx context.Context, id string) error {
	return s.w.Delete(ctx, model.EntityLesson, id)
}

func (s *Service) ListLessons(ctx context.Context, courseID string) ([]model.Lesson, error) {
	order := &store.Order{Field: "position"}
	recs, err := s.w.Store().FindMany(ctx, nil, model.EntityLesson.Collection(),
		store.Eq("courseId", courseID), order)
	if err != nil {
		return nil, err
	}

	out := make([]model.Lesson, 0, len(recs))
	for _, rec := range recs {
		var l model.Lesson
		if err := rec.Decode(&l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// RecordProgress upserts the single progress row per lesson: first call
// creates it, later calls merge the new completion state into it.
func (s *Service) RecordProgress(ctx context.Context, lessonID string, progress float64, completed bool) error {
	existing, err := s.w.Store().FindOne(ctx, nil, model.EntityLessonProgress.Collection(),
		store.Eq("lessonId", lessonID))
	if err != nil {
		return err
	}

	if existing != nil {
		return s.w.Update(ctx, model.EntityLessonProgress, existing.ID(), map[string]any{
			"progress":  progress,
			"completed": completed,
		})
	}

	now := model.NowISO()
	p := model.LessonProgress{
		ID:        util.NewULID(),
		LessonID:  lessonID,
		Progress:  progress,
		Completed: completed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec, err := model.ToRecord(p)
	if err != nil {
		return err
	}
	return s.w.Create(ctx, model.EntityLessonProgress, rec)
}

func (s *Service) CreateQuiz(ctx context.Context, courseID, title string, questions []byte) (model.Quiz, error) {
	now := model.NowISO()
	q := model.Quiz{
		ID:        util.NewULID(),
		CourseID:  courseID,
		Title:     title,
		Questions: questions,
		CreatedAt: now,
		UpdatedAt: now,
	}

	rec, err := model.ToRecord(q)
	if err != nil {
		return model.Quiz{}, err
	}
	if err := s.w.Create(ctx, model.EntityQuiz, rec); err != nil {
		return model.Quiz{}, err
	}
	return q, nil
}

func (s *Service) RecordQuizAttempt(ctx context.Context, quizID string, score, maxScore float64) (model.QuizAttempt, error) {
	now := model.NowISO()
	a := model.QuizAttempt{
		ID:        util.NewULID(),
		QuizID:    quizID,
		Score:     score,
		MaxScore:  maxScore,
		CreatedAt: now,
		UpdatedAt: now,
	}

	rec, err := model.ToRecord(a)
	if err != nil {
		return model.QuizAttempt{}, err
	}
	if err := s.w.Create(ctx, model.EntityQuizAttempt, rec); err != nil {
		return model.QuizAttempt{}, err
	}
	return a, nil
}
