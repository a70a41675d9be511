package social

import (
	"strings"

	"github.com/archivesocial/archive/backend/internal/models"
)

func (s *SocialTestSuite) TestCreateComment() {
	post := s.createPost(s.alice, "discuss")

	c, err := s.comments.Create(s.ctx, post.ID, s.bob.ID, "  first! ", nil)
	s.Require().NoError(err)
	s.Equal("first!", c.Content)
	s.Nil(c.ParentID)
	s.Require().NotNil(c.Author)
	s.Equal("bob", c.Author.Username)
	s.Equal(int64(1), s.reloadPost(post.ID).CommentCount)

	last := s.pusher.last()
	s.Equal(s.alice.ID, last.recipientID)
	s.Equal(models.NotificationComment, last.notification.Type)
	s.Require().NotNil(last.notification.CommentID)
	s.Equal(c.ID, *last.notification.CommentID)
}

func (s *SocialTestSuite) TestCreateCommentValidation() {
	post := s.createPost(s.alice, "discuss")

	_, err := s.comments.Create(s.ctx, post.ID, s.bob.ID, "   ", nil)
	s.ErrorIs(err, ErrEmptyComment)

	_, err = s.comments.Create(s.ctx, post.ID, s.bob.ID, strings.Repeat("x", MaxCommentLength+1), nil)
	var fe *FieldError
	s.ErrorAs(err, &fe)

	_, err = s.comments.Create(s.ctx, "00000000-0000-0000-0000-000000000000", s.bob.ID, "hi", nil)
	s.ErrorIs(err, ErrPostNotFound)

	_, err = s.comments.Create(s.ctx, "guardian-0-x", s.bob.ID, "hi", nil)
	s.ErrorIs(err, ErrNewsImmutable)

	missing := "00000000-0000-0000-0000-000000000000"
	_, err = s.comments.Create(s.ctx, post.ID, s.bob.ID, "hi", &missing)
	s.ErrorIs(err, ErrCommentNotFound)

	other := s.createPost(s.bob, "elsewhere")
	foreign, err := s.comments.Create(s.ctx, other.ID, s.bob.ID, "there", nil)
	s.Require().NoError(err)
	_, err = s.comments.Create(s.ctx, post.ID, s.bob.ID, "cross", &foreign.ID)
	s.ErrorAs(err, &fe)
	s.Equal("parent_id", fe.Field)
}

func (s *SocialTestSuite) TestRepliesStayOneLevelDeep() {
	post := s.createPost(s.alice, "thread")

	root, err := s.comments.Create(s.ctx, post.ID, s.bob.ID, "root", nil)
	s.Require().NoError(err)
	reply, err := s.comments.Create(s.ctx, post.ID, s.carol.ID, "reply", &root.ID)
	s.Require().NoError(err)
	nested, err := s.comments.Create(s.ctx, post.ID, s.alice.ID, "reply to reply", &reply.ID)
	s.Require().NoError(err)

	s.Require().NotNil(nested.ParentID)
	s.Equal(root.ID, *nested.ParentID)

	roots, total, err := s.comments.List(s.ctx, post.ID)
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Require().Len(roots, 1)
	s.Len(roots[0].Replies, 2)
	s.Equal(int64(3), s.reloadPost(post.ID).CommentCount)
}

func (s *SocialTestSuite) TestDeleteComment() {
	post := s.createPost(s.alice, "thread")
	root, err := s.comments.Create(s.ctx, post.ID, s.bob.ID, "root", nil)
	s.Require().NoError(err)
	_, err = s.comments.Create(s.ctx, post.ID, s.carol.ID, "reply", &root.ID)
	s.Require().NoError(err)
	reply2, err := s.comments.Create(s.ctx, post.ID, s.carol.ID, "reply 2", &root.ID)
	s.Require().NoError(err)
	other, err := s.comments.Create(s.ctx, post.ID, s.carol.ID, "other", nil)
	s.Require().NoError(err)

	_, err = s.comments.Delete(s.ctx, root.ID, s.carol.ID)
	s.ErrorIs(err, ErrNotOwner)
	_, err = s.comments.Delete(s.ctx, "00000000-0000-0000-0000-000000000000", s.carol.ID)
	s.ErrorIs(err, ErrCommentNotFound)

	// A reply goes alone
	removed, err := s.comments.Delete(s.ctx, reply2.ID, s.carol.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), removed)

	// A root takes its replies with it
	removed, err = s.comments.Delete(s.ctx, root.ID, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), removed)

	roots, total, err := s.comments.List(s.ctx, post.ID)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(roots, 1)
	s.Equal(other.ID, roots[0].ID)
	s.Equal(int64(1), s.reloadPost(post.ID).CommentCount)
}

func (s *SocialTestSuite) TestListCommentsForNews() {
	roots, total, err := s.comments.List(s.ctx, "mock-news-1")
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(roots)
}
