package social

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/archivesocial/archive/backend/internal/storage"
	"github.com/archivesocial/archive/backend/internal/util"
	"go.uber.org/zap"
)

// Profile field limits, in characters
const (
	MaxFullNameLength = 80
	MaxBioLength      = 300
)

// ProfileUpdate is a partial profile edit; nil fields are left unchanged
type ProfileUpdate struct {
	Username      *string `json:"username" binding:"omitempty,username"`
	FullName      *string `json:"full_name" binding:"omitempty,max=80"`
	Bio           *string `json:"bio" binding:"omitempty,max=300"`
	Website       *string `json:"website" binding:"omitempty,website"`
	Badge         *string `json:"badge" binding:"omitempty,badge"`
	BorderVariant *string `json:"border_variant" binding:"omitempty,border"`
}

// ProfileService reads and edits public profiles
type ProfileService struct {
	store   storage.ImageStore
	follows *FollowService
	index   Indexer
}

// NewProfileService creates a profile service. index may be nil.
func NewProfileService(store storage.ImageStore, follows *FollowService, index Indexer) *ProfileService {
	if index == nil {
		index = noopIndexer{}
	}
	return &ProfileService{store: store, follows: follows, index: index}
}

// Get returns id's profile with follow counts and whether viewerID follows it
func (s *ProfileService) Get(ctx context.Context, id, viewerID string) (*models.Profile, error) {
	var user models.User
	if err := database.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.decorate(ctx, &user, viewerID)
}

// GetByUsername is Get keyed by username, ignoring case
func (s *ProfileService) GetByUsername(ctx context.Context, username, viewerID string) (*models.Profile, error) {
	var user models.User
	err := database.DB.WithContext(ctx).
		Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).
		First(&user).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.decorate(ctx, &user, viewerID)
}

func (s *ProfileService) decorate(ctx context.Context, user *models.User, viewerID string) (*models.Profile, error) {
	profile := user.ToProfile()
	if s.follows == nil {
		return &profile, nil
	}

	counts, err := s.follows.Counts(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	profile.FollowerCount = &counts.Followers
	profile.FollowingCount = &counts.Following

	if viewerID != "" && viewerID != user.ID {
		following, err := s.follows.IsFollowing(ctx, viewerID, user.ID)
		if err != nil {
			return nil, err
		}
		profile.IsFollowing = &following
	}
	return &profile, nil
}

// Update applies patch to userID's profile
func (s *ProfileService) Update(ctx context.Context, userID string, patch ProfileUpdate) (*models.User, error) {
	var user models.User
	if err := database.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{}

	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		if !util.IsValidUsername(username) {
			return nil, fieldError("username", "must be 3-30 characters of letters, digits, '_' or '.'")
		}
		if !strings.EqualFold(username, user.Username) {
			var count int64
			err := database.DB.WithContext(ctx).Model(&models.User{}).
				Where("LOWER(username) = ? AND id <> ?", strings.ToLower(username), userID).
				Count(&count).Error
			if err != nil {
				return nil, err
			}
			if count > 0 {
				return nil, ErrUsernameTaken
			}
		}
		updates["username"] = username
	}
	if patch.FullName != nil {
		fullName := util.CollapseWhitespace(*patch.FullName)
		if util.RuneLen(fullName) > MaxFullNameLength {
			return nil, fieldError("full_name", fmt.Sprintf("must be at most %d characters", MaxFullNameLength))
		}
		updates["full_name"] = fullName
	}
	if patch.Bio != nil {
		bio := strings.TrimSpace(*patch.Bio)
		if util.RuneLen(bio) > MaxBioLength {
			return nil, fieldError("bio", fmt.Sprintf("must be at most %d characters", MaxBioLength))
		}
		updates["bio"] = bio
	}
	if patch.Website != nil {
		website := strings.TrimSpace(*patch.Website)
		if !util.IsValidWebsite(website) {
			return nil, fieldError("website", "must be an http or https URL")
		}
		updates["website"] = website
	}
	if patch.Badge != nil {
		if !models.UserSelectableBadges[*patch.Badge] {
			return nil, fieldError("badge", "is not a selectable badge")
		}
		updates["badge"] = *patch.Badge
	}
	if patch.BorderVariant != nil {
		if !models.BorderVariants[*patch.BorderVariant] {
			return nil, fieldError("border_variant", "is not a known border")
		}
		updates["border_variant"] = *patch.BorderVariant
	}

	if len(updates) == 0 {
		return &user, nil
	}
	updates["updated_at"] = time.Now().UTC()

	if err := database.DB.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := database.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}

	if err := s.index.IndexProfile(ctx, &user); err != nil {
		logger.Log.Warn("Failed to index profile", logger.WithUserID(userID), zap.Error(err))
	}
	return &user, nil
}

// UploadAvatar stores a new avatar and removes the previous file
func (s *ProfileService) UploadAvatar(ctx context.Context, userID string, img storage.Image) (*models.User, error) {
	if s.store == nil {
		return nil, fmt.Errorf("image storage not configured")
	}

	var user models.User
	if err := database.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	upload, err := s.store.UploadImage(ctx, storage.BucketAvatars, userID, img)
	if err != nil {
		return nil, err
	}

	oldKey := user.AvatarKey
	err = database.DB.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"avatar_url": upload.URL,
		"avatar_key": upload.Key,
		"updated_at": time.Now().UTC(),
	}).Error
	if err != nil {
		if delErr := s.store.DeleteFile(ctx, upload.Key); delErr != nil {
			logger.Log.Warn("Failed to delete orphaned avatar", zap.String("key", upload.Key), zap.Error(delErr))
		}
		return nil, err
	}

	if oldKey != "" && oldKey != upload.Key {
		if err := s.store.DeleteFile(ctx, oldKey); err != nil {
			logger.Log.Warn("Failed to delete old avatar", zap.String("key", oldKey), zap.Error(err))
		}
	}

	user.AvatarURL = upload.URL
	user.AvatarKey = upload.Key
	return &user, nil
}
