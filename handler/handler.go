package handler

import (
	"time"

	"blogpost/domain"
	"blogpost/guard"

	"go.uber.org/zap"
)

// PostStore is the post collection the handlers dispatch to.
type PostStore interface {
	List() []domain.Post
	Get(id int64) (domain.Post, bool)
	Add(p domain.Post) int64
	Update(id int64, p domain.Post) error
	Delete(id int64)
}

type Handler struct {
	Posts     PostStore
	Users     guard.Authenticator
	JWTSecret string
	Log       *zap.Logger
	Now       func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}
