package handler

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"blogpost/domain"
	"blogpost/guard"
	"blogpost/store"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PostInput is the request body of create and update. Any id in the body
// is ignored.
type PostInput struct {
	Title   string `json:"title" form:"title"`
	Content string `json:"content" form:"content"`
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid post id").SetInternal(err)
	}
	return id, nil
}

func (h *Handler) ListPosts(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Posts.List())
}

func (h *Handler) GetPost(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, ok := h.Posts.Get(id)
	if !ok {
		return h.notFound(&store.NotFoundError{ID: id})
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CreatePost(c echo.Context) error {
	var in PostInput
	if err := c.Bind(&in); err != nil {
		return err
	}
	id := h.Posts.Add(domain.Post{Title: in.Title, Content: in.Content})

	req := c.Request()
	location := fmt.Sprintf("%s://%s%s/%d", c.Scheme(), req.Host, strings.TrimSuffix(req.URL.Path, "/"), id)
	c.Response().Header().Set(echo.HeaderLocation, location)
	return c.NoContent(http.StatusCreated)
}

func (h *Handler) UpdatePost(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in PostInput
	if err := c.Bind(&in); err != nil {
		return err
	}
	if err := h.Posts.Update(id, domain.Post{Title: in.Title, Content: in.Content}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return h.notFound(err)
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeletePost(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	h.Posts.Delete(id)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) notFound(err error) error {
	h.Log.Warn("post lookup failed", zap.Error(err))
	return echo.NewHTTPError(http.StatusNotFound).SetInternal(err)
}

type PostDTO struct {
	ID        int64
	Title     string
	Content   template.HTML
	CreatedAt string
}

func newPostDTO(p domain.Post) PostDTO {
	return PostDTO{
		ID:        p.ID,
		Title:     sanitizerStrict.Sanitize(p.Title),
		Content:   safeMd(p.Content),
		CreatedAt: p.CreatedAt.Format(time.DateOnly),
	}
}

func (h *Handler) postDTOs() []PostDTO {
	all := h.Posts.List()
	posts := make([]PostDTO, 0, len(all))
	for _, p := range all {
		posts = append(posts, newPostDTO(p))
	}
	return posts
}

func (h *Handler) Index(c echo.Context) error {
	return c.Render(http.StatusOK, "index.html", struct {
		Posts    []PostDTO
		LoggedIn bool
	}{
		Posts:    h.postDTOs(),
		LoggedIn: guard.PrincipalFrom(c).Authenticated(),
	})
}

func (h *Handler) ViewPost(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, ok := h.Posts.Get(id)
	if !ok {
		return h.notFound(&store.NotFoundError{ID: id})
	}
	return c.Render(http.StatusOK, "post-view.html", struct {
		PostDTO
		LoggedIn bool
	}{
		newPostDTO(p),
		guard.PrincipalFrom(c).Authenticated(),
	})
}

// Admin renders the administrator overview. The guard only lets ADMIN
// principals get here.
func (h *Handler) Admin(c echo.Context) error {
	return c.Render(http.StatusOK, "admin.html", struct {
		Username string
		Posts    []PostDTO
		LoggedIn bool
	}{
		Username: guard.PrincipalFrom(c).Username,
		Posts:    h.postDTOs(),
		LoggedIn: true,
	})
}
