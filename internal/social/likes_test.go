package social

import "github.com/archivesocial/archive/backend/internal/models"

func (s *SocialTestSuite) TestToggleLike() {
	post := s.createPost(s.alice, "like me")

	state, err := s.likes.Toggle(s.ctx, post.ID, s.bob.ID)
	s.Require().NoError(err)
	s.True(state.Liked)
	s.Equal(int64(1), state.LikeCount)

	state, err = s.likes.Toggle(s.ctx, post.ID, s.carol.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), state.LikeCount)

	state, err = s.likes.Toggle(s.ctx, post.ID, s.bob.ID)
	s.Require().NoError(err)
	s.False(state.Liked)
	s.Equal(int64(1), state.LikeCount)

	count, err := s.likes.Count(s.ctx, post.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
	s.Equal(int64(1), s.reloadPost(post.ID).LikeCount)

	liked, err := s.likes.HasLiked(s.ctx, post.ID, s.carol.ID)
	s.Require().NoError(err)
	s.True(liked)
	liked, err = s.likes.HasLiked(s.ctx, post.ID, s.bob.ID)
	s.Require().NoError(err)
	s.False(liked)
}

func (s *SocialTestSuite) TestToggleLikeErrors() {
	_, err := s.likes.Toggle(s.ctx, "gnews-2-2026-10-18T10:00:00Z", s.bob.ID)
	s.ErrorIs(err, ErrNewsImmutable)

	_, err = s.likes.Toggle(s.ctx, "00000000-0000-0000-0000-000000000000", s.bob.ID)
	s.ErrorIs(err, ErrPostNotFound)
}

func (s *SocialTestSuite) TestLikeNotifications() {
	post := s.createPost(s.alice, "notify")

	_, err := s.likes.Toggle(s.ctx, post.ID, s.bob.ID)
	s.Require().NoError(err)

	s.Equal(int64(1), s.countRows(&models.Notification{}, "recipient_id = ? AND type = ?", s.alice.ID, models.NotificationLike))
	last := s.pusher.last()
	s.Equal(s.alice.ID, last.recipientID)
	s.Require().NotNil(last.notification)
	s.Equal(models.NotificationLike, last.notification.Type)
	s.Equal(int64(1), last.unread)
	s.Require().NotNil(last.notification.Actor)
	s.Equal("bob", last.notification.Actor.Username)

	// Unliking retracts the unread notification
	_, err = s.likes.Toggle(s.ctx, post.ID, s.bob.ID)
	s.Require().NoError(err)
	s.Zero(s.countRows(&models.Notification{}, "recipient_id = ?", s.alice.ID))

	// Liking your own post notifies nobody
	pushes := s.pusher.count()
	_, err = s.likes.Toggle(s.ctx, post.ID, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(pushes, s.pusher.count())
	s.Zero(s.countRows(&models.Notification{}, "recipient_id = ?", s.alice.ID))
}

func (s *SocialTestSuite) TestLikedSet() {
	p1 := s.createPost(s.alice, "one")
	p2 := s.createPost(s.alice, "two")
	_, err := s.likes.Toggle(s.ctx, p2.ID, s.bob.ID)
	s.Require().NoError(err)

	set, err := s.likes.LikedSet(s.ctx, []string{p1.ID, p2.ID}, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(map[string]bool{p2.ID: true}, set)

	set, err = s.likes.LikedSet(s.ctx, []string{p1.ID, p2.ID}, "")
	s.Require().NoError(err)
	s.Empty(set)
}
