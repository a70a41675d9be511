package social

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/archivesocial/archive/backend/internal/storage"
)

func strPtr(s string) *string { return &s }

func (s *SocialTestSuite) TestGetProfile() {
	_, err := s.follows.Follow(s.ctx, s.bob.ID, s.alice.ID)
	s.Require().NoError(err)

	p, err := s.profiles.Get(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.Equal("alice", p.Username)
	s.Require().NotNil(p.FollowerCount)
	s.Equal(int64(1), *p.FollowerCount)
	s.Equal(int64(0), *p.FollowingCount)
	s.Require().NotNil(p.IsFollowing)
	s.True(*p.IsFollowing)

	// No is_following on your own profile or anonymously
	p, err = s.profiles.Get(s.ctx, s.alice.ID, s.alice.ID)
	s.Require().NoError(err)
	s.Nil(p.IsFollowing)

	p, err = s.profiles.GetByUsername(s.ctx, "ALICE", "")
	s.Require().NoError(err)
	s.Equal(s.alice.ID, p.ID)
	s.Nil(p.IsFollowing)

	_, err = s.profiles.GetByUsername(s.ctx, "nobody", "")
	s.ErrorIs(err, ErrUserNotFound)
	_, err = s.profiles.Get(s.ctx, "00000000-0000-0000-0000-000000000000", "")
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *SocialTestSuite) TestUpdateProfile() {
	user, err := s.profiles.Update(s.ctx, s.alice.ID, ProfileUpdate{
		Username:      strPtr("alice.w"),
		FullName:      strPtr("  Alice   Wonder "),
		Bio:           strPtr(" hi "),
		Website:       strPtr("https://alice.example"),
		Badge:         strPtr(models.BadgeCreator),
		BorderVariant: strPtr(models.BorderNeon),
	})
	s.Require().NoError(err)
	s.Equal("alice.w", user.Username)
	s.Equal("Alice Wonder", user.FullName)
	s.Equal("hi", user.Bio)
	s.Equal(models.BadgeCreator, user.Badge)
	s.Equal(models.BorderNeon, user.BorderVariant)
	s.Equal("alice.w", s.indexer.profiles[s.alice.ID])

	// Nil fields are untouched
	user, err = s.profiles.Update(s.ctx, s.alice.ID, ProfileUpdate{Bio: strPtr("")})
	s.Require().NoError(err)
	s.Equal("alice.w", user.Username)
	s.Equal("", user.Bio)

	// Changing only the case of your own username is allowed
	user, err = s.profiles.Update(s.ctx, s.alice.ID, ProfileUpdate{Username: strPtr("Alice.W")})
	s.Require().NoError(err)
	s.Equal("Alice.W", user.Username)
}

func (s *SocialTestSuite) TestUpdateProfileValidation() {
	tests := []struct {
		name  string
		patch ProfileUpdate
		field string
	}{
		{"short username", ProfileUpdate{Username: strPtr("ab")}, "username"},
		{"bad username", ProfileUpdate{Username: strPtr("has space")}, "username"},
		{"long name", ProfileUpdate{FullName: strPtr(strings.Repeat("n", MaxFullNameLength+1))}, "full_name"},
		{"long bio", ProfileUpdate{Bio: strPtr(strings.Repeat("b", MaxBioLength+1))}, "bio"},
		{"bad website", ProfileUpdate{Website: strPtr("ftp://x.example")}, "website"},
		{"admin badge", ProfileUpdate{Badge: strPtr(models.BadgeAdmin)}, "badge"},
		{"unknown border", ProfileUpdate{BorderVariant: strPtr("rainbow")}, "border_variant"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.profiles.Update(s.ctx, s.alice.ID, tt.patch)
			var fe *FieldError
			s.Require().ErrorAs(err, &fe)
			s.Equal(tt.field, fe.Field)
		})
	}

	_, err := s.profiles.Update(s.ctx, s.alice.ID, ProfileUpdate{Username: strPtr("BOB")})
	s.ErrorIs(err, ErrUsernameTaken)
}

func (s *SocialTestSuite) TestUploadAvatar() {
	// An earlier avatar on disk
	oldKey := "avatars/old-avatar.png"
	oldPath := filepath.Join(s.store.BasePath(), oldKey)
	s.Require().NoError(os.MkdirAll(filepath.Dir(oldPath), 0o755))
	s.Require().NoError(os.WriteFile(oldPath, pngHeader, 0o644))
	s.Require().NoError(database.DB.Model(&models.User{}).Where("id = ?", s.alice.ID).
		Update("avatar_key", oldKey).Error)

	user, err := s.profiles.UploadAvatar(s.ctx, s.alice.ID, *s.pngImage())
	s.Require().NoError(err)
	s.Contains(user.AvatarURL, "/uploads/avatars/")
	s.FileExists(filepath.Join(s.store.BasePath(), user.AvatarKey))
	s.NoFileExists(oldPath)

	var stored models.User
	s.Require().NoError(database.DB.First(&stored, "id = ?", s.alice.ID).Error)
	s.Equal(user.AvatarURL, stored.AvatarURL)

	_, err = s.profiles.UploadAvatar(s.ctx, s.alice.ID, storage.Image{ContentType: "text/plain", Body: strings.NewReader("x")})
	s.ErrorIs(err, storage.ErrUnsupportedImage)
}
