// Package store holds the in-memory post collection.
//
// Every exported method takes the store lock for the duration of the
// in-memory operation only. Ids start at 1, grow by one per Add and are
// never handed out twice, even after the post holding one is deleted.
package store

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"blogpost/domain"
)

var ErrNotFound = errors.New("post not found")

// NotFoundError carries the id that was looked up.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("post %d not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

type Store struct {
	mu sync.RWMutex

	posts  map[int64]domain.Post
	order  []int64
	lastID int64
	now    func() time.Time
}

func New() *Store {
	return &Store{
		posts: map[int64]domain.Post{},
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// List returns a copy of all posts in insertion order.
func (s *Store) List() []domain.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Post, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.posts[id])
	}
	return out
}

func (s *Store) Get(id int64) (domain.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	return p, ok
}

// Add stores p under a fresh id and returns it. Any id set on p is ignored.
func (s *Store) Add(p domain.Post) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	now := s.now()
	p.ID = s.lastID
	p.CreatedAt = now
	p.UpdatedAt = now
	s.posts[p.ID] = p
	s.order = append(s.order, p.ID)
	return p.ID
}

// Update replaces the title and content of post id. It does not create
// missing posts.
func (s *Store) Update(id int64, p domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.posts[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	old.Title = p.Title
	old.Content = p.Content
	old.UpdatedAt = s.now()
	s.posts[id] = old
	return nil
}

// Delete removes post id. Deleting a missing post is a no-op.
func (s *Store) Delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return
	}
	delete(s.posts, id)
	s.order = slices.DeleteFunc(s.order, func(v int64) bool { return v == id })
}

// Len returns the number of stored posts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
