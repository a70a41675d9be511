package social

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/archivesocial/archive/backend/internal/storage"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// pngHeader is enough for the content type check
var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

type pushed struct {
	recipientID  string
	notification *models.Notification
	unread       int64
}

type recordingPusher struct {
	mu     sync.Mutex
	pushes []pushed
}

func (p *recordingPusher) PushNotification(recipientID string, n *models.Notification, unread int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, pushed{recipientID: recipientID, notification: n, unread: unread})
}

func (p *recordingPusher) PushUnreadCount(recipientID string, unread int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, pushed{recipientID: recipientID, unread: unread})
}

func (p *recordingPusher) last() pushed {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pushes[len(p.pushes)-1]
}

func (p *recordingPusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pushes)
}

type recordingIndexer struct {
	posts    map[string]string
	profiles map[string]string
}

func newRecordingIndexer() *recordingIndexer {
	return &recordingIndexer{posts: map[string]string{}, profiles: map[string]string{}}
}

func (r *recordingIndexer) IndexPost(_ context.Context, p *models.Post) error {
	r.posts[p.ID] = p.Title
	return nil
}

func (r *recordingIndexer) DeletePost(_ context.Context, id string) error {
	delete(r.posts, id)
	return nil
}

func (r *recordingIndexer) IndexProfile(_ context.Context, u *models.User) error {
	r.profiles[u.ID] = u.Username
	return nil
}

// SocialTestSuite wires every service over one sqlite database
type SocialTestSuite struct {
	suite.Suite
	ctx context.Context

	pusher  *recordingPusher
	indexer *recordingIndexer
	store   *storage.LocalStore

	notifications *NotificationService
	follows       *FollowService
	likes         *LikeService
	posts         *PostService
	comments      *CommentService
	profiles      *ProfileService

	alice *models.User
	bob   *models.User
	carol *models.User
}

func (s *SocialTestSuite) SetupSuite() {
	_, err := database.InitializeForTest()
	s.Require().NoError(err)
	s.ctx = context.Background()
}

func (s *SocialTestSuite) TearDownSuite() {
	_ = database.Close()
}

func (s *SocialTestSuite) SetupTest() {
	s.Require().NoError(database.TruncateAll())

	store, err := storage.NewLocalStore(s.T().TempDir(), "http://localhost:8787")
	s.Require().NoError(err)
	s.store = store
	s.pusher = &recordingPusher{}
	s.indexer = newRecordingIndexer()

	s.notifications = NewNotificationService(s.pusher)
	s.follows = NewFollowService(s.notifications)
	s.likes = NewLikeService(s.notifications)
	s.posts = NewPostService(s.store, s.indexer, s.likes)
	s.comments = NewCommentService(s.notifications)
	s.profiles = NewProfileService(s.store, s.follows, s.indexer)

	s.alice = s.createUser("alice")
	s.bob = s.createUser("bob")
	s.carol = s.createUser("carol")
}

func (s *SocialTestSuite) createUser(username string) *models.User {
	u := &models.User{Email: username + "@example.com", Username: username, FullName: username, PasswordHash: "x"}
	s.Require().NoError(database.DB.Create(u).Error)
	return u
}

func (s *SocialTestSuite) createPost(author *models.User, content string) *models.Post {
	p, err := s.posts.Create(s.ctx, author.ID, CreatePostInput{Content: content})
	s.Require().NoError(err)
	return p
}

func (s *SocialTestSuite) pngImage() *storage.Image {
	return &storage.Image{
		Filename:    "pic.png",
		ContentType: "image/png",
		Size:        int64(len(pngHeader)),
		Body:        bytes.NewReader(pngHeader),
	}
}

func (s *SocialTestSuite) reloadPost(id string) models.Post {
	var p models.Post
	s.Require().NoError(database.DB.First(&p, "id = ?", id).Error)
	return p
}

func (s *SocialTestSuite) countRows(model interface{}, query string, args ...interface{}) int64 {
	var n int64
	s.Require().NoError(database.DB.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func TestSocialSuite(t *testing.T) {
	suite.Run(t, new(SocialTestSuite))
}

func TestBuildTree(t *testing.T) {
	str := func(s string) *string { return &s }
	flat := []*models.Comment{
		{ID: "a"},
		{ID: "b", ParentID: str("a")},
		{ID: "c"},
		{ID: "d", ParentID: str("a")},
		{ID: "e", ParentID: str("missing")},
	}

	roots, total := BuildTree(flat)
	require.Equal(t, 5, total)
	require.Len(t, roots, 3)
	require.Equal(t, "a", roots[0].ID)
	require.Equal(t, "c", roots[1].ID)
	require.Equal(t, "e", roots[2].ID)
	require.Len(t, roots[0].Replies, 2)
	require.Equal(t, "b", roots[0].Replies[0].ID)
	require.Equal(t, "d", roots[0].Replies[1].ID)

	roots, total = BuildTree(nil)
	require.Zero(t, total)
	require.Empty(t, roots)
}

func TestFieldError(t *testing.T) {
	err := fieldError("title", "too long")
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "title", fe.Field)
	require.Equal(t, "title: too long", err.Error())
}
