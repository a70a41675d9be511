package social

import (
	"github.com/archivesocial/archive/backend/internal/models"
)

func (s *SocialTestSuite) TestNotifySkipsSelf() {
	n, err := s.notifications.Notify(s.ctx, s.alice.ID, s.alice.ID, models.NotificationFollow, nil, nil)
	s.Require().NoError(err)
	s.Nil(n)
	s.Zero(s.pusher.count())
}

func (s *SocialTestSuite) TestListNotifications() {
	for i := 0; i < DefaultNotificationLimit+2; i++ {
		_, err := s.notifications.Notify(s.ctx, s.alice.ID, s.bob.ID, models.NotificationFollow, nil, nil)
		s.Require().NoError(err)
	}
	_, err := s.notifications.Notify(s.ctx, s.bob.ID, s.alice.ID, models.NotificationFollow, nil, nil)
	s.Require().NoError(err)

	list, err := s.notifications.List(s.ctx, s.alice.ID, 0)
	s.Require().NoError(err)
	s.Len(list, DefaultNotificationLimit)
	s.Require().NotNil(list[0].Actor)
	s.Equal("bob", list[0].Actor.Username)

	list, err = s.notifications.List(s.ctx, s.alice.ID, 1000)
	s.Require().NoError(err)
	s.Len(list, DefaultNotificationLimit+2)

	unread, err := s.notifications.UnreadCount(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(int64(DefaultNotificationLimit+2), unread)
	s.Equal(int64(DefaultNotificationLimit+2), s.pusher.last().unread)
}

func (s *SocialTestSuite) TestMarkRead() {
	n, err := s.notifications.Notify(s.ctx, s.alice.ID, s.bob.ID, models.NotificationFollow, nil, nil)
	s.Require().NoError(err)
	_, err = s.notifications.Notify(s.ctx, s.alice.ID, s.carol.ID, models.NotificationFollow, nil, nil)
	s.Require().NoError(err)

	// Only the recipient may mark it
	s.ErrorIs(s.notifications.MarkRead(s.ctx, n.ID, s.bob.ID), ErrNotificationNotFound)

	s.Require().NoError(s.notifications.MarkRead(s.ctx, n.ID, s.alice.ID))
	s.Equal(int64(1), s.pusher.last().unread)
	s.Nil(s.pusher.last().notification)

	changed, err := s.notifications.MarkAllRead(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), changed)

	unread, err := s.notifications.UnreadCount(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Zero(unread)
	s.Zero(s.pusher.last().unread)
}
