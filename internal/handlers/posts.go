package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tmusaev/feedline/internal/models"
	"github.com/tmusaev/feedline/internal/services"
	apperrors "github.com/tmusaev/feedline/pkg/errors"
	"github.com/tmusaev/feedline/pkg/response"
)

// PostHandler serves the public feed and staff post management.
type PostHandler struct {
	svc *services.PostService
}

func NewPostHandler(svc *services.PostService) *PostHandler {
	return &PostHandler{svc: svc}
}

type postDTO struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Photo       string       `json:"photo,omitempty"`
	Author      string       `json:"author"`
	LikeCount   int          `json:"like_count"`
	LikedBy     []string     `json:"liked_by,omitempty"`
	Comments    []commentDTO `json:"comments,omitempty"`
	CreatedAt   string       `json:"created_at"`
}

type commentDTO struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

func mapPost(post *models.Post, includeComments bool) postDTO {
	dto := postDTO{
		ID:          post.ID,
		Title:       post.Title,
		Description: post.Description,
		Photo:       post.Photo,
		LikeCount:   len(post.Likes),
		CreatedAt:   post.CreatedAt.Format(time.RFC3339),
	}
	if post.Author != nil {
		dto.Author = post.Author.Username
	}
	for _, like := range post.Likes {
		dto.LikedBy = append(dto.LikedBy, like.UserID)
	}
	if includeComments {
		for i := range post.Comments {
			comment := &post.Comments[i]
			cdto := commentDTO{
				ID:        comment.ID,
				Text:      comment.Text,
				CreatedAt: comment.CreatedAt.Format(time.RFC3339),
			}
			if comment.Author != nil {
				cdto.Author = comment.Author.Username
			}
			dto.Comments = append(dto.Comments, cdto)
		}
	}
	return dto
}

// GET /api/posts
func (h *PostHandler) List(c *gin.Context) {
	posts, err := h.svc.List(requestContext(c))
	if err != nil {
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}

	dtos := make([]postDTO, 0, len(posts))
	for i := range posts {
		dtos = append(dtos, mapPost(&posts[i], false))
	}
	response.Success(c, http.StatusOK, dtos)
}

// GET /api/posts/:id
func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			response.Error(c, apperrors.ErrNotFound)
			return
		}
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, mapPost(post, true))
}

type createPostRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	Photo       string `json:"photo"`
}

// POST /api/posts
func (h *PostHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var req createPostRequest
	if !bindAndValidate(c, &req) {
		return
	}

	post, err := h.svc.Create(requestContext(c), userID, services.CreatePostInput{
		Title:       req.Title,
		Description: req.Description,
		Photo:       req.Photo,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, mapPost(post, false))
}

type updatePostRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	Photo       *string `json:"photo"`
}

// PATCH /api/posts/:id
func (h *PostHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var req updatePostRequest
	if !bindAndValidate(c, &req) {
		return
	}

	post, err := h.svc.Update(requestContext(c), userID, c.Param("id"), services.UpdatePostInput{
		Title:       req.Title,
		Description: req.Description,
		Photo:       req.Photo,
	})
	if err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			response.Error(c, apperrors.ErrNotFound)
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, mapPost(post, false))
}

// DELETE /api/posts/:id
func (h *PostHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.svc.Delete(requestContext(c), userID, c.Param("id")); err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			response.Error(c, apperrors.ErrNotFound)
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/posts/:id/like
func (h *PostHandler) ToggleLike(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	liked, err := h.svc.ToggleLike(requestContext(c), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			response.Error(c, apperrors.ErrNotFound)
			return
		}
		response.Error(c, apperrors.ErrInternalServer.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"liked": liked})
}

type addCommentRequest struct {
	Text string `json:"text" validate:"required"`
}

// POST /api/posts/:id/comments
func (h *PostHandler) AddComment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var req addCommentRequest
	if !bindAndValidate(c, &req) {
		return
	}

	comment, err := h.svc.AddComment(requestContext(c), userID, c.Param("id"), req.Text)
	if err != nil {
		if errors.Is(err, services.ErrPostNotFound) {
			response.Error(c, apperrors.ErrNotFound)
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, commentDTO{
		ID:        comment.ID,
		Author:    userID,
		Text:      comment.Text,
		CreatedAt: comment.CreatedAt.Format(time.RFC3339),
	})
}
