package social

import (
	"context"
	"errors"

	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/metrics"
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/archivesocial/archive/backend/internal/telemetry"
	"github.com/archivesocial/archive/backend/internal/util"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowState is the result of a follow toggle
type FollowState struct {
	Following     bool  `json:"following"`
	FollowerCount int64 `json:"follower_count"`
}

// FollowCounts are a user's follower and following totals
type FollowCounts struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

// FollowService manages the follow graph
type FollowService struct {
	notifications *NotificationService
}

// NewFollowService creates a follow service
func NewFollowService(notifications *NotificationService) *FollowService {
	return &FollowService{notifications: notifications}
}

// Follow makes followerID follow followingID. Following twice is a no-op;
// created reports whether a new edge was stored.
func (s *FollowService) Follow(ctx context.Context, followerID, followingID string) (created bool, err error) {
	if followerID == followingID {
		return false, ErrFollowSelf
	}
	if err := userExists(ctx, followingID); err != nil {
		return false, err
	}

	ctx, span := telemetry.GetBusinessEvents().TraceSocialAction(ctx, "follow", followerID, "user", followingID)
	defer span.End()

	res := database.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: followerID, FollowingID: followingID})
	if res.Error != nil {
		telemetry.RecordError(span, res.Error)
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	metrics.RecordSocialAction("follow")
	s.notifications.notify(ctx, followingID, followerID, models.NotificationFollow, nil, nil)
	return true, nil
}

// Unfollow removes the edge; removed reports whether one existed
func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID string) (removed bool, err error) {
	res := database.DB.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		metrics.RecordSocialAction("unfollow")
	}
	return res.RowsAffected > 0, nil
}

// Toggle follows or unfollows and reports the new state with the target's follower count
func (s *FollowService) Toggle(ctx context.Context, followerID, followingID string) (*FollowState, error) {
	following, err := s.IsFollowing(ctx, followerID, followingID)
	if err != nil {
		return nil, err
	}

	if following {
		if _, err := s.Unfollow(ctx, followerID, followingID); err != nil {
			return nil, err
		}
	} else if _, err := s.Follow(ctx, followerID, followingID); err != nil {
		return nil, err
	}

	counts, err := s.Counts(ctx, followingID)
	if err != nil {
		return nil, err
	}
	return &FollowState{Following: !following, FollowerCount: counts.Followers}, nil
}

// IsFollowing reports whether followerID follows followingID
func (s *FollowService) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	if followerID == "" || followingID == "" {
		return false, nil
	}
	var count int64
	err := database.DB.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, err
}

// Counts returns how many users follow userID and how many it follows
func (s *FollowService) Counts(ctx context.Context, userID string) (FollowCounts, error) {
	var counts FollowCounts
	db := database.DB.WithContext(ctx)
	if err := db.Model(&models.Follow{}).Where("following_id = ?", userID).Count(&counts.Followers).Error; err != nil {
		return counts, err
	}
	if err := db.Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&counts.Following).Error; err != nil {
		return counts, err
	}
	return counts, nil
}

// Followers lists the profiles following userID, newest follow first
func (s *FollowService) Followers(ctx context.Context, userID string, page, size int) ([]models.Profile, error) {
	return s.listEdge(ctx, "follows.follower_id", "follows.following_id", userID, page, size)
}

// Following lists the profiles userID follows, newest follow first
func (s *FollowService) Following(ctx context.Context, userID string, page, size int) ([]models.Profile, error) {
	return s.listEdge(ctx, "follows.following_id", "follows.follower_id", userID, page, size)
}

func (s *FollowService) listEdge(ctx context.Context, joinColumn, filterColumn, userID string, page, size int) ([]models.Profile, error) {
	if err := userExists(ctx, userID); err != nil {
		return nil, err
	}
	page, size = util.NormalizePage(page, size)

	var users []models.User
	err := database.DB.WithContext(ctx).
		Model(&models.User{}).
		Select("users.*").
		Joins("JOIN follows ON "+joinColumn+" = users.id").
		Where(filterColumn+" = ?", userID).
		Order("follows.created_at DESC").
		Offset(util.Offset(page, size)).
		Limit(size).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return models.ToProfiles(users), nil
}

type userWithFollowers struct {
	models.User   `gorm:"embedded"`
	FollowerCount int64
}

// Suggestions returns accounts the viewer does not follow yet, most followed
// first then newest. An empty viewerID suggests from everyone.
func (s *FollowService) Suggestions(ctx context.Context, viewerID string, limit int) ([]models.Profile, error) {
	if limit < 1 {
		limit = 5
	}

	q := database.DB.WithContext(ctx).
		Model(&models.User{}).
		Select("users.*, (SELECT COUNT(*) FROM follows f WHERE f.following_id = users.id) AS follower_count")
	if viewerID != "" {
		q = q.Where("users.id <> ?", viewerID).
			Where("users.id NOT IN (?)",
				database.DB.Model(&models.Follow{}).Select("following_id").Where("follower_id = ?", viewerID))
	}

	var rows []userWithFollowers
	err := q.Order("follower_count DESC").
		Order("users.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	profiles := make([]models.Profile, 0, len(rows))
	for i := range rows {
		p := rows[i].User.ToProfile()
		count := rows[i].FollowerCount
		p.FollowerCount = &count
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func userExists(ctx context.Context, userID string) error {
	var count int64
	if err := database.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
