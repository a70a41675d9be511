package social

import (
	"strings"
	"time"

	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/archivesocial/archive/backend/internal/storage"
)

func (s *SocialTestSuite) TestCreatePostValidation() {
	tests := []struct {
		name  string
		in    CreatePostInput
		err   error
		field string
	}{
		{name: "empty", in: CreatePostInput{Title: "  ", Content: "\n"}, err: ErrEmptyPost},
		{name: "long title", in: CreatePostInput{Title: strings.Repeat("t", MaxTitleLength+1)}, field: "title"},
		{name: "long content", in: CreatePostInput{Content: strings.Repeat("é", MaxContentLength+1)}, field: "content"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.posts.Create(s.ctx, s.alice.ID, tt.in)
			s.Require().Error(err)
			if tt.err != nil {
				s.ErrorIs(err, tt.err)
			}
			if tt.field != "" {
				var fe *FieldError
				s.Require().ErrorAs(err, &fe)
				s.Equal(tt.field, fe.Field)
			}
		})
	}

	// Exactly at the limit is fine
	_, err := s.posts.Create(s.ctx, s.alice.ID, CreatePostInput{Content: strings.Repeat("é", MaxContentLength)})
	s.NoError(err)
}

func (s *SocialTestSuite) TestCreatePostTrimsAndIndexes() {
	post, err := s.posts.Create(s.ctx, s.alice.ID, CreatePostInput{Title: "  Hello ", Content: " world\n"})
	s.Require().NoError(err)

	s.Equal("Hello", post.Title)
	s.Equal("world", post.Content)
	s.Require().NotNil(post.Author)
	s.Equal("alice", post.Author.Username)
	s.Equal("Hello", s.indexer.posts[post.ID])
}

func (s *SocialTestSuite) TestCreatePostWithImage() {
	post, err := s.posts.Create(s.ctx, s.alice.ID, CreatePostInput{Image: s.pngImage()})
	s.Require().NoError(err)

	s.Contains(post.ImageURL, "http://localhost:8787/uploads/post_images/")
	s.True(strings.HasSuffix(post.ImageKey, ".png"))

	bad := s.pngImage()
	bad.ContentType = "application/pdf"
	_, err = s.posts.Create(s.ctx, s.alice.ID, CreatePostInput{Image: bad})
	s.ErrorIs(err, storage.ErrUnsupportedImage)
}

func (s *SocialTestSuite) TestGetPost() {
	post := s.createPost(s.alice, "hello")
	_, err := s.likes.Toggle(s.ctx, post.ID, s.bob.ID)
	s.Require().NoError(err)

	got, err := s.posts.Get(s.ctx, post.ID, s.bob.ID)
	s.Require().NoError(err)
	s.True(got.LikedByMe)
	s.Equal(int64(1), got.LikeCount)
	s.Equal("alice", got.Author.Username)

	got, err = s.posts.Get(s.ctx, post.ID, "")
	s.Require().NoError(err)
	s.False(got.LikedByMe)

	_, err = s.posts.Get(s.ctx, "00000000-0000-0000-0000-000000000000", "")
	s.ErrorIs(err, ErrPostNotFound)
	_, err = s.posts.Get(s.ctx, "gnews-0-2026", "")
	s.ErrorIs(err, ErrPostNotFound)
}

func (s *SocialTestSuite) TestListByAuthor() {
	base := time.Now().UTC().Add(-time.Hour)
	for i, c := range []string{"one", "two", "three"} {
		p := s.createPost(s.alice, c)
		// Distinct timestamps keep the order deterministic
		s.Require().NoError(database.DB.Model(&models.Post{}).Where("id = ?", p.ID).
			UpdateColumn("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}
	s.createPost(s.bob, "not alice")

	page1, err := s.posts.ListByAuthor(s.ctx, s.alice.ID, "", 1, 2)
	s.Require().NoError(err)
	s.Require().Len(page1, 2)
	s.Equal("three", page1[0].Content)
	s.Equal("two", page1[1].Content)

	page2, err := s.posts.ListByAuthor(s.ctx, s.alice.ID, "", 2, 2)
	s.Require().NoError(err)
	s.Require().Len(page2, 1)
	s.Equal("one", page2[0].Content)

	_, err = s.posts.ListByAuthor(s.ctx, "00000000-0000-0000-0000-000000000000", "", 1, 2)
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *SocialTestSuite) TestDeletePost() {
	post, err := s.posts.Create(s.ctx, s.alice.ID, CreatePostInput{Content: "bye", Image: s.pngImage()})
	s.Require().NoError(err)
	_, err = s.likes.Toggle(s.ctx, post.ID, s.bob.ID)
	s.Require().NoError(err)
	_, err = s.comments.Create(s.ctx, post.ID, s.bob.ID, "nice", nil)
	s.Require().NoError(err)

	s.ErrorIs(s.posts.Delete(s.ctx, post.ID, s.bob.ID), ErrNotOwner)
	s.ErrorIs(s.posts.Delete(s.ctx, "guardian-1-x", s.alice.ID), ErrNewsImmutable)
	s.ErrorIs(s.posts.Delete(s.ctx, "00000000-0000-0000-0000-000000000000", s.alice.ID), ErrPostNotFound)

	s.Require().NoError(s.posts.Delete(s.ctx, post.ID, s.alice.ID))

	s.Zero(s.countRows(&models.Post{}, "id = ?", post.ID))
	s.Zero(s.countRows(&models.PostLike{}, "post_id = ?", post.ID))
	s.Zero(s.countRows(&models.Comment{}, "post_id = ?", post.ID))
	s.Zero(s.countRows(&models.Notification{}, "post_id = ?", post.ID))
	s.NotContains(s.indexer.posts, post.ID)

	_, ok := s.store.KeyFromURL(post.ImageURL)
	s.True(ok)
	s.NoFileExists(s.store.BasePath() + "/" + post.ImageKey)
}
