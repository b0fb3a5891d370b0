package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// DefaultRecipesLimit is how many recipes a subscription preview shows.
const DefaultRecipesLimit = 5

// UserView is a user as seen by a (possibly anonymous) viewer.
type UserView struct {
	User         models.User
	IsSubscribed bool
}

// SubscriptionView is a followed author with a preview of their newest recipes.
type SubscriptionView struct {
	Author       models.User
	Recipes      []models.Recipe
	RecipesCount int64
}

// UserService manages user profiles and the follow graph.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) ListUsers(ctx context.Context, viewer *uuid.UUID, page types.Pagination) ([]UserView, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Order("created_at ASC, username ASC").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	followed, err := s.followedAmong(ctx, viewer, ids)
	if err != nil {
		return nil, 0, err
	}

	views := make([]UserView, len(users))
	for i, u := range users {
		views[i] = UserView{User: u, IsSubscribed: followed[u.ID]}
	}
	return views, total, nil
}

func (s *UserService) GetUser(ctx context.Context, viewer *uuid.UUID, id uuid.UUID) (*UserView, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	followed, err := s.followedAmong(ctx, viewer, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	return &UserView{User: *user, IsSubscribed: followed[id]}, nil
}

// Subscribe makes userID follow authorID and returns the author's subscription view.
func (s *UserService) Subscribe(ctx context.Context, userID, authorID uuid.UUID, recipesLimit int) (*SubscriptionView, error) {
	if userID == authorID {
		return nil, newError(ErrValidation, "You cannot subscribe to yourself")
	}
	author, err := s.getUser(ctx, authorID)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check subscription: %w", err)
	}
	if count > 0 {
		return nil, newError(ErrAlreadyExists, "You are already subscribed")
	}

	follow := models.Follow{UserID: userID, AuthorID: authorID}
	if err := s.db.WithContext(ctx).Omit("User", "Author").Create(&follow).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, newError(ErrAlreadyExists, "You are already subscribed")
		}
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	metrics.MembershipChanges.WithLabelValues("subscription", "add").Inc()
	logging.Ctx(ctx).Debug().Str("user_id", userID.String()).Str("author_id", authorID.String()).Msg("subscribed")

	return s.subscriptionView(ctx, *author, recipesLimit)
}

func (s *UserService) Unsubscribe(ctx context.Context, userID, authorID uuid.UUID) error {
	if _, err := s.getUser(ctx, authorID); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return fmt.Errorf("failed to unsubscribe: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return newError(ErrNotMember, "You are not subscribed yet")
	}
	metrics.MembershipChanges.WithLabelValues("subscription", "remove").Inc()
	return nil
}

// Subscriptions lists the authors userID follows, most recent follow first.
func (s *UserService) Subscriptions(ctx context.Context, userID uuid.UUID, page types.Pagination, recipesLimit int) ([]SubscriptionView, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Follow{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var follows []models.Follow
	if err := s.db.WithContext(ctx).
		Preload("Author").
		Where("user_id = ?", userID).
		Order("id DESC").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&follows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	views := make([]SubscriptionView, 0, len(follows))
	for _, f := range follows {
		view, err := s.subscriptionView(ctx, f.Author, recipesLimit)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, *view)
	}
	return views, total, nil
}

func (s *UserService) subscriptionView(ctx context.Context, author models.User, recipesLimit int) (*SubscriptionView, error) {
	if recipesLimit < 0 {
		recipesLimit = DefaultRecipesLimit
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("author_id = ?", author.ID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}

	recipes := []models.Recipe{}
	if recipesLimit == 0 {
		return &SubscriptionView{Author: author, Recipes: recipes, RecipesCount: count}, nil
	}
	if err := s.db.WithContext(ctx).
		Where("author_id = ?", author.ID).
		Order("pub_date DESC").
		Limit(recipesLimit).
		Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("failed to load recipes: %w", err)
	}

	return &SubscriptionView{Author: author, Recipes: recipes, RecipesCount: count}, nil
}

func (s *UserService) getUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "User not found.")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// followedAmong returns which of authorIDs the viewer follows.
func (s *UserService) followedAmong(ctx context.Context, viewer *uuid.UUID, authorIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	followed := make(map[uuid.UUID]bool)
	if viewer == nil || len(authorIDs) == 0 {
		return followed, nil
	}
	var ids []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id IN ?", *viewer, authorIDs).
		Pluck("author_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	for _, id := range ids {
		followed[id] = true
	}
	return followed, nil
}
