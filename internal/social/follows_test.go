package social

import (
	"time"

	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/models"
)

func (s *SocialTestSuite) TestFollow() {
	created, err := s.follows.Follow(s.ctx, s.bob.ID, s.alice.ID)
	s.Require().NoError(err)
	s.True(created)

	// Following twice keeps one edge and one notification
	created, err = s.follows.Follow(s.ctx, s.bob.ID, s.alice.ID)
	s.Require().NoError(err)
	s.False(created)
	s.Equal(int64(1), s.countRows(&models.Follow{}, "follower_id = ?", s.bob.ID))
	s.Equal(int64(1), s.countRows(&models.Notification{}, "recipient_id = ? AND type = ?", s.alice.ID, models.NotificationFollow))

	_, err = s.follows.Follow(s.ctx, s.bob.ID, s.bob.ID)
	s.ErrorIs(err, ErrFollowSelf)
	_, err = s.follows.Follow(s.ctx, s.bob.ID, "00000000-0000-0000-0000-000000000000")
	s.ErrorIs(err, ErrUserNotFound)

	following, err := s.follows.IsFollowing(s.ctx, s.bob.ID, s.alice.ID)
	s.Require().NoError(err)
	s.True(following)
	following, err = s.follows.IsFollowing(s.ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.False(following)
}

func (s *SocialTestSuite) TestToggleFollow() {
	state, err := s.follows.Toggle(s.ctx, s.bob.ID, s.alice.ID)
	s.Require().NoError(err)
	s.True(state.Following)
	s.Equal(int64(1), state.FollowerCount)

	state, err = s.follows.Toggle(s.ctx, s.carol.ID, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), state.FollowerCount)

	state, err = s.follows.Toggle(s.ctx, s.bob.ID, s.alice.ID)
	s.Require().NoError(err)
	s.False(state.Following)
	s.Equal(int64(1), state.FollowerCount)

	removed, err := s.follows.Unfollow(s.ctx, s.bob.ID, s.alice.ID)
	s.Require().NoError(err)
	s.False(removed)
}

func (s *SocialTestSuite) TestFollowCountsAndLists() {
	base := time.Now().UTC().Add(-time.Hour)
	edges := []struct{ from, to *models.User }{
		{s.bob, s.alice},
		{s.carol, s.alice},
		{s.alice, s.bob},
	}
	for i, e := range edges {
		s.Require().NoError(database.DB.Create(&models.Follow{
			FollowerID:  e.from.ID,
			FollowingID: e.to.ID,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	counts, err := s.follows.Counts(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(FollowCounts{Followers: 2, Following: 1}, counts)

	followers, err := s.follows.Followers(s.ctx, s.alice.ID, 1, 20)
	s.Require().NoError(err)
	s.Require().Len(followers, 2)
	s.Equal("carol", followers[0].Username)
	s.Equal("bob", followers[1].Username)

	followers, err = s.follows.Followers(s.ctx, s.alice.ID, 2, 1)
	s.Require().NoError(err)
	s.Require().Len(followers, 1)
	s.Equal("bob", followers[0].Username)

	following, err := s.follows.Following(s.ctx, s.alice.ID, 0, 0)
	s.Require().NoError(err)
	s.Require().Len(following, 1)
	s.Equal("bob", following[0].Username)

	_, err = s.follows.Followers(s.ctx, "00000000-0000-0000-0000-000000000000", 1, 20)
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *SocialTestSuite) TestSuggestions() {
	dave := s.createUser("dave")
	// carol is the most followed, then bob
	for _, e := range []struct{ from, to *models.User }{
		{s.alice, s.carol},
		{s.bob, s.carol},
		{dave, s.bob},
	} {
		_, err := s.follows.Follow(s.ctx, e.from.ID, e.to.ID)
		s.Require().NoError(err)
	}

	suggestions, err := s.follows.Suggestions(s.ctx, s.alice.ID, 5)
	s.Require().NoError(err)

	usernames := make([]string, 0, len(suggestions))
	for _, p := range suggestions {
		usernames = append(usernames, p.Username)
	}
	// alice herself and carol (already followed) are excluded
	s.Equal([]string{"bob", "dave"}, usernames)
	s.Require().NotNil(suggestions[0].FollowerCount)
	s.Equal(int64(1), *suggestions[0].FollowerCount)

	anonymous, err := s.follows.Suggestions(s.ctx, "", 2)
	s.Require().NoError(err)
	s.Require().Len(anonymous, 2)
	s.Equal("carol", anonymous[0].Username)
}
