package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tmusaev/feedline/internal/models"
	apperrors "github.com/tmusaev/feedline/pkg/errors"
)

// ErrPostNotFound indicates the requested post does not exist.
var ErrPostNotFound = errors.New("post service: post not found")

// CreatePostInput captures required fields when creating a post.
type CreatePostInput struct {
	Title       string
	Description string
	Photo       string
}

// UpdatePostInput describes mutable post fields. A nil pointer means no change.
type UpdatePostInput struct {
	Title       *string
	Description *string
	Photo       *string
}

// PostService manages the public feed: posts, comments, and likes.
// Post management is restricted to staff accounts; the check happens here
// rather than in route middleware so every caller goes through it.
type PostService struct {
	db *gorm.DB
}

// NewPostService constructs a post service once a database handle is supplied.
func NewPostService(db *gorm.DB) (*PostService, error) {
	if db == nil {
		return nil, errors.New("post service: db is required")
	}
	return &PostService{db: db}, nil
}

func (s *PostService) requireStaff(ctx context.Context, userID string) (*models.User, error) {
	if uuid.Validate(userID) != nil {
		return nil, apperrors.ErrForbidden
	}

	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrForbidden
		}
		return nil, fmt.Errorf("post service: load actor: %w", err)
	}
	if !user.IsActive || !user.IsStaff {
		return nil, apperrors.ErrForbidden
	}
	return &user, nil
}

// List returns all posts ordered newest first, with authors and engagement preloaded.
func (s *PostService) List(ctx context.Context) ([]models.Post, error) {
	ctx = ensureContext(ctx)

	var posts []models.Post
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Likes").
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("post service: list posts: %w", err)
	}
	return posts, nil
}

// Get fetches a single post with its comments and likes. Non-UUID ids are
// not-found rather than a driver scan error.
func (s *PostService) Get(ctx context.Context, id string) (*models.Post, error) {
	ctx = ensureContext(ctx)

	if uuid.Validate(id) != nil {
		return nil, ErrPostNotFound
	}

	var post models.Post
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Comments.Author").
		Preload("Likes").
		Take(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("post service: get post: %w", err)
	}
	return &post, nil
}

// Create persists a new post authored by the staff actor.
func (s *PostService) Create(ctx context.Context, actorID string, input CreatePostInput) (*models.Post, error) {
	ctx = ensureContext(ctx)

	actor, err := s.requireStaff(ctx, actorID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}

	post := &models.Post{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Photo:       strings.TrimSpace(input.Photo),
		AuthorID:    actor.ID,
	}

	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("post service: create post: %w", err)
	}
	post.Author = actor
	return post, nil
}

// Update applies partial changes to an existing post.
func (s *PostService) Update(ctx context.Context, actorID, postID string, input UpdatePostInput) (*models.Post, error) {
	ctx = ensureContext(ctx)

	if _, err := s.requireStaff(ctx, actorID); err != nil {
		return nil, err
	}

	post, err := s.Get(ctx, postID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewBadRequest("title cannot be empty")
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Photo != nil {
		updates["photo"] = strings.TrimSpace(*input.Photo)
	}

	if len(updates) == 0 {
		return post, nil
	}

	if err := s.db.WithContext(ctx).Model(post).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("post service: update post: %w", err)
	}
	return post, nil
}

// Delete removes a post along with its comments and likes.
func (s *PostService) Delete(ctx context.Context, actorID, postID string) error {
	ctx = ensureContext(ctx)

	if _, err := s.requireStaff(ctx, actorID); err != nil {
		return err
	}

	if uuid.Validate(postID) != nil {
		return ErrPostNotFound
	}

	result := s.db.WithContext(ctx).
		Select("Comments", "Likes").
		Delete(&models.Post{BaseModel: models.BaseModel{ID: postID}})
	if result.Error != nil {
		return fmt.Errorf("post service: delete post: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

// ToggleLike adds a like for (post, user), or removes it when one already
// exists. A unique-violation race from two simultaneous likes collapses to
// "already liked".
func (s *PostService) ToggleLike(ctx context.Context, userID, postID string) (liked bool, err error) {
	ctx = ensureContext(ctx)

	if _, err := s.Get(ctx, postID); err != nil {
		return false, err
	}

	var existing models.Like
	findErr := s.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Take(&existing).Error

	switch {
	case findErr == nil:
		if err := s.db.WithContext(ctx).Delete(&existing).Error; err != nil {
			return false, fmt.Errorf("post service: remove like: %w", err)
		}
		return false, nil
	case errors.Is(findErr, gorm.ErrRecordNotFound):
		like := &models.Like{PostID: postID, UserID: userID}
		if err := s.db.WithContext(ctx).Create(like).Error; err != nil {
			if isUniqueConstraintError(err) {
				return true, nil
			}
			return false, fmt.Errorf("post service: create like: %w", err)
		}
		return true, nil
	default:
		return false, fmt.Errorf("post service: find like: %w", findErr)
	}
}

// AddComment attaches a comment by the user to the post.
func (s *PostService) AddComment(ctx context.Context, userID, postID, text string) (*models.Comment, error) {
	ctx = ensureContext(ctx)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewBadRequest("comment text is required")
	}

	if _, err := s.Get(ctx, postID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:   postID,
		AuthorID: userID,
		Text:     text,
	}
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("post service: create comment: %w", err)
	}
	return comment, nil
}
