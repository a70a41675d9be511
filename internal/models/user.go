package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Badge values rendered next to a username
const (
	BadgeNone     = ""
	BadgeVerified = "verified"
	BadgeAdmin    = "admin"
	BadgeBot      = "bot"
	BadgeCreator  = "creator"
)

// Avatar border cosmetics
const (
	BorderNone    = ""
	BorderDefault = "default"
	BorderFire    = "fire"
	BorderGhost   = "ghost"
	BorderGold    = "gold"
	BorderNeon    = "neon"
)

// UserSelectableBadges are the badges a user may set on their own profile.
// admin and bot are reserved for system accounts.
var UserSelectableBadges = map[string]bool{
	BadgeNone:     true,
	BadgeVerified: true,
	BadgeCreator:  true,
}

// BorderVariants lists every accepted border_variant
var BorderVariants = map[string]bool{
	BorderNone:    true,
	BorderDefault: true,
	BorderFire:    true,
	BorderGhost:   true,
	BorderGold:    true,
	BorderNeon:    true,
}

// User is an account plus its public profile fields
type User struct {
	ID    string `gorm:"primaryKey;type:uuid" json:"id"`
	Email string `gorm:"uniqueIndex;not null" json:"-"`

	// Native auth fields
	PasswordHash      string     `gorm:"type:text;not null" json:"-"`
	EmailConfirmedAt  *time.Time `json:"-"`
	ConfirmationToken *string    `gorm:"uniqueIndex" json:"-"`

	// Profile data
	Username      string `gorm:"uniqueIndex;not null" json:"username"`
	FullName      string `json:"full_name"`
	Bio           string `gorm:"type:text" json:"bio"`
	AvatarURL     string `json:"avatar_url"`
	AvatarKey     string `json:"-"`
	Website       string `json:"website"`
	Badge         string `gorm:"size:20" json:"badge"`
	BorderVariant string `gorm:"size:20" json:"border_variant"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsEmailConfirmed reports whether the account finished email confirmation
func (u *User) IsEmailConfirmed() bool {
	return u.EmailConfirmedAt != nil
}

// Profile is the public projection of a User
type Profile struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	FullName      string    `json:"full_name"`
	Bio           string    `json:"bio"`
	AvatarURL     string    `json:"avatar_url"`
	Website       string    `json:"website"`
	Badge         string    `json:"badge"`
	BorderVariant string    `json:"border_variant"`
	CreatedAt     time.Time `json:"created_at"`

	FollowerCount  *int64 `json:"follower_count,omitempty"`
	FollowingCount *int64 `json:"following_count,omitempty"`
	IsFollowing    *bool  `json:"is_following,omitempty"`
}

// ToProfile projects the user's public fields
func (u *User) ToProfile() Profile {
	return Profile{
		ID:            u.ID,
		Username:      u.Username,
		FullName:      u.FullName,
		Bio:           u.Bio,
		AvatarURL:     u.AvatarURL,
		Website:       u.Website,
		Badge:         u.Badge,
		BorderVariant: u.BorderVariant,
		CreatedAt:     u.CreatedAt,
	}
}

// ToProfiles projects a slice of users
func ToProfiles(users []User) []Profile {
	out := make([]Profile, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToProfile())
	}
	return out
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	return nil
}

func generateUUID() string {
	return uuid.New().String()
}
