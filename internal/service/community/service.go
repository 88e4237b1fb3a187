// Package community owns the forum slice of the data model.
package community

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

func (s *Service) CreatePost(ctx context.Context, author, topic, body string) (model.ForumPost, error) {
	return s.create(ctx, author, topic, body, "")
}

// Reply creates a post threaded under parentID.
func (s *Service) Reply(ctx context.Context, author, body, parentID string) (model.ForumPost, error) {
	parent, err := s.w.Store().FindOne(ctx, nil, model.EntityForumPost.Collection(), store.ByID(parentID))
	if err != nil {
		return model.ForumPost{}, err
	}
	if parent == nil {
		return model.ForumPost{}, service.ErrNotFound
	}
	topic, _ := parent["topic"].(string)
	return s.create(ctx, author, topic, body, parentID)
}

func (s *Service) create(ctx context.Context, author, topic, body, parentID string) (model.ForumPost, error) {
	now := model.NowISO()
	p := model.ForumPost{
		ID:        util.NewULID(),
		Author:    author,
		Topic:     topic,
		Body:      body,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	rec, err := model.ToRecord(p)
	if err != nil {
		return model.ForumPost{}, err
	}
	if err := s.w.Create(ctx, model.EntityForumPost, rec); err != nil {
		return model.ForumPost{}, err
	}
	return p, nil
}

func (s *Service) EditPost(ctx context.Context, id, body string) error {
	return s.w.Update(ctx, model.EntityForumPost, id, map[string]any{"body": body})
}

func (s *Service) DeletePost(ctx context.Context, id string) error {
	return s.w.Delete(ctx, model.EntityForumPost, id)
}

func (s *Service) ListTopic(ctx context.Context, topic string) ([]model.ForumPost, error) {
	recs, err := s.w.Store().FindMany(ctx, nil, model.EntityForumPost.Collection(),
		store.Eq("topic", topic), nil)
	if err != nil {
		return nil, err
	}

	out := make([]model.ForumPost, 0, len(recs))
	for _, rec := range recs {
		var p model.ForumPost
		if err := rec.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
