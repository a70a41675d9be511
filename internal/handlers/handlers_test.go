package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/archivesocial/archive/backend/internal/auth"
	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/feed"
	"github.com/archivesocial/archive/backend/internal/search"
	"github.com/archivesocial/archive/backend/internal/social"
	"github.com/archivesocial/archive/backend/internal/storage"
	"github.com/archivesocial/archive/backend/internal/stories"
	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/archivesocial/archive/backend/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n0000")

type account struct {
	id    string
	token string
}

// HandlersTestSuite drives the full router over sqlite
type HandlersTestSuite struct {
	suite.Suite
	router   *gin.Engine
	handlers *Handlers
	authSvc  *auth.Service

	alice account
	bob   account
}

func (s *HandlersTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	util.RegisterValidators()
	_, err := database.InitializeForTest()
	s.Require().NoError(err)
}

func (s *HandlersTestSuite) TearDownSuite() {
	_ = database.Close()
}

func (s *HandlersTestSuite) SetupTest() {
	s.Require().NoError(database.TruncateAll())

	store, err := storage.NewLocalStore(s.T().TempDir(), "http://localhost:8787")
	s.Require().NoError(err)

	s.authSvc = auth.NewService(auth.Options{
		JWTSecret: []byte("handlers-test-secret"),
		TokenTTL:  time.Hour,
	})
	notifications := social.NewNotificationService(nil)
	follows := social.NewFollowService(notifications)
	likes := social.NewLikeService(notifications)

	s.handlers = NewHandlers(Services{
		Auth:          s.authSvc,
		Feed:          feed.NewService(nil, follows, likes, rand.New(rand.NewSource(1))),
		Posts:         social.NewPostService(store, nil, likes),
		Likes:         likes,
		Comments:      social.NewCommentService(notifications),
		Follows:       follows,
		Notifications: notifications,
		Profiles:      social.NewProfileService(store, follows, nil),
		Stories:       stories.NewService(store, time.Hour),
		Search:        search.NewService(nil, likes),
	})
	validator := validation.NewServiceValidator([]string{validation.ServiceDatabase})
	validator.Register(validation.ServiceDatabase, validation.DatabaseCheck())
	s.handlers.SetServiceValidator(validator)

	s.router = gin.New()
	s.handlers.RegisterRoutes(s.router, RouteMiddleware{
		RequireAuth:  s.authSvc.RequireAuth(),
		OptionalAuth: s.authSvc.OptionalAuth(),
	})

	s.alice = s.register("alice@example.com", "alice")
	s.bob = s.register("bob@example.com", "bob")
}

func (s *HandlersTestSuite) register(email, username string) account {
	w := s.doJSON(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": email, "password": "password123", "username": username,
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	s.decode(w, &resp)
	return account{id: resp.User.ID, token: resp.Token}
}

func (s *HandlersTestSuite) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlersTestSuite) doJSON(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.Require().NoError(err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, token)
}

func (s *HandlersTestSuite) doMultipart(path, token string, fields map[string]string, image []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		s.Require().NoError(mw.WriteField(k, v))
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "pic.png")
		s.Require().NoError(err)
		_, err = part.Write(image)
		s.Require().NoError(err)
	}
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req, token)
}

func (s *HandlersTestSuite) decode(w *httptest.ResponseRecorder, v interface{}) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *HandlersTestSuite) errorBody(w *httptest.ResponseRecorder) util.ErrorResponse {
	var resp util.ErrorResponse
	s.decode(w, &resp)
	return resp
}

func (s *HandlersTestSuite) createPost(token, content string) string {
	w := s.doMultipart("/api/v1/posts", token, map[string]string{"title": "t", "content": content}, nil)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var post struct {
		ID string `json:"id"`
	}
	s.decode(w, &post)
	return post.ID
}

func (s *HandlersTestSuite) TestRegisterConflictAndValidation() {
	w := s.doJSON(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "ALICE@example.com", "password": "password123",
	})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("email", s.errorBody(w).Field)

	w = s.doJSON(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "long@example.com", "password": strings.Repeat("p", 73),
	})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("password", s.errorBody(w).Field)

	w = s.doJSON(http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "nope"})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("VALIDATION_ERROR", s.errorBody(w).Code)

	w = s.doJSON(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "new@example.com", "password": "password123", "username": "ALICE",
	})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("username", s.errorBody(w).Field)
}

func (s *HandlersTestSuite) TestLoginAndMe() {
	w := s.doJSON(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@example.com", "password": "wrong-pass"})
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.doJSON(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@example.com", "password": "password123"})
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.doJSON(http.MethodGet, "/api/v1/auth/me", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.doJSON(http.MethodGet, "/api/v1/auth/me", s.alice.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var me map[string]interface{}
	s.decode(w, &me)
	s.Equal("alice@example.com", me["email"])
	s.Equal("alice", me["username"])
	s.Equal(float64(0), me["follower_count"])
}

func (s *HandlersTestSuite) TestChangePassword() {
	w := s.doJSON(http.MethodPut, "/api/v1/auth/password", s.alice.token, gin.H{
		"current_password": "wrong", "new_password": "newpass1",
	})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("current_password", s.errorBody(w).Field)

	w = s.doJSON(http.MethodPut, "/api/v1/auth/password", s.alice.token, gin.H{
		"current_password": "password123", "new_password": strings.Repeat("p", 73),
	})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("new_password", s.errorBody(w).Field)

	w = s.doJSON(http.MethodPut, "/api/v1/auth/password", s.alice.token, gin.H{
		"current_password": "password123", "new_password": "newpass1",
	})
	s.Equal(http.StatusNoContent, w.Code)

	w = s.doJSON(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@example.com", "password": "newpass1"})
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlersTestSuite) TestPostLifecycle() {
	w := s.doMultipart("/api/v1/posts", s.alice.token, map[string]string{"title": "Hello", "content": "first post"}, pngBytes)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var post struct {
		ID       string `json:"id"`
		ImageURL string `json:"image_url"`
	}
	s.decode(w, &post)
	s.Contains(post.ImageURL, "/post_images/")

	w = s.doJSON(http.MethodGet, "/api/v1/posts/"+post.ID, "", nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.doJSON(http.MethodDelete, "/api/v1/posts/"+post.ID, s.bob.token, nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.doJSON(http.MethodDelete, "/api/v1/posts/"+post.ID, s.alice.token, nil)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.doJSON(http.MethodGet, "/api/v1/posts/"+post.ID, "", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("NOT_FOUND", s.errorBody(w).Code)
}

func (s *HandlersTestSuite) TestCreatePostValidation() {
	w := s.doMultipart("/api/v1/posts", s.alice.token, map[string]string{"content": "   "}, nil)
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.doMultipart("/api/v1/posts", s.alice.token, map[string]string{"content": "x"}, []byte("plain text"))
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("image", s.errorBody(w).Field)

	w = s.doMultipart("/api/v1/posts", "", map[string]string{"content": "x"}, nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlersTestSuite) TestLikesAndNotifications() {
	postID := s.createPost(s.alice.token, "like me")

	w := s.doJSON(http.MethodPost, "/api/v1/posts/"+postID+"/like", s.bob.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var state social.LikeState
	s.decode(w, &state)
	s.True(state.Liked)
	s.Equal(int64(1), state.LikeCount)

	w = s.doJSON(http.MethodGet, "/api/v1/notifications", s.alice.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var list struct {
		Notifications []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"notifications"`
		UnreadCount int64 `json:"unread_count"`
	}
	s.decode(w, &list)
	s.Require().Len(list.Notifications, 1)
	s.Equal(int64(1), list.UnreadCount)

	// Someone else's notification is not found
	w = s.doJSON(http.MethodPost, "/api/v1/notifications/"+list.Notifications[0].ID+"/read", s.bob.token, nil)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.doJSON(http.MethodPost, "/api/v1/notifications/"+list.Notifications[0].ID+"/read", s.alice.token, nil)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.doJSON(http.MethodPost, "/api/v1/notifications/read-all", s.alice.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"updated":0}`, w.Body.String())
}

func (s *HandlersTestSuite) TestComments() {
	postID := s.createPost(s.alice.token, "discuss")

	w := s.doJSON(http.MethodPost, "/api/v1/posts/"+postID+"/comments", s.bob.token, gin.H{"content": "nice"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var root struct {
		ID string `json:"id"`
	}
	s.decode(w, &root)

	w = s.doJSON(http.MethodPost, "/api/v1/posts/"+postID+"/comments", s.alice.token, gin.H{"content": "thanks", "parent_id": root.ID})
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.doJSON(http.MethodPost, "/api/v1/posts/"+postID+"/comments", s.alice.token, gin.H{"content": ""})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.doJSON(http.MethodGet, "/api/v1/posts/"+postID+"/comments", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var list struct {
		Comments []struct {
			Replies []json.RawMessage `json:"replies"`
		} `json:"comments"`
		Total int `json:"total"`
	}
	s.decode(w, &list)
	s.Equal(2, list.Total)
	s.Require().Len(list.Comments, 1)
	s.Len(list.Comments[0].Replies, 1)

	w = s.doJSON(http.MethodDelete, "/api/v1/comments/"+root.ID, s.alice.token, nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.doJSON(http.MethodDelete, "/api/v1/comments/"+root.ID, s.bob.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"removed":2}`, w.Body.String())
}

func (s *HandlersTestSuite) TestNewsItemsAreImmutable() {
	w := s.doJSON(http.MethodPost, "/api/v1/posts/gnews-123/comments", s.bob.token, gin.H{"content": "hi"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestStories() {
	w := s.doMultipart("/api/v1/stories", s.alice.token, nil, nil)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("image", s.errorBody(w).Field)

	w = s.doMultipart("/api/v1/stories", s.alice.token, nil, pngBytes)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var story struct {
		ID string `json:"id"`
	}
	s.decode(w, &story)

	w = s.doJSON(http.MethodPost, "/api/v1/stories/"+story.ID+"/view", s.bob.token, nil)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.doJSON(http.MethodGet, "/api/v1/stories", s.bob.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var resp struct {
		Groups []struct {
			HasUnviewed bool `json:"has_unviewed"`
		} `json:"groups"`
		StoryDurationMS int `json:"story_duration_ms"`
	}
	s.decode(w, &resp)
	s.Equal(stories.StoryDurationMS, resp.StoryDurationMS)
	s.Require().Len(resp.Groups, 1)
	s.False(resp.Groups[0].HasUnviewed)

	w = s.doJSON(http.MethodDelete, "/api/v1/stories/"+story.ID, s.bob.token, nil)
	s.Equal(http.StatusForbidden, w.Code)
	w = s.doJSON(http.MethodDelete, "/api/v1/stories/"+story.ID, s.alice.token, nil)
	s.Equal(http.StatusNoContent, w.Code)
}

func (s *HandlersTestSuite) TestFollowFlow() {
	w := s.doJSON(http.MethodPost, "/api/v1/users/"+s.bob.id+"/follow", s.bob.token, nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.doJSON(http.MethodPost, "/api/v1/users/"+s.alice.id+"/follow", s.bob.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var state social.FollowState
	s.decode(w, &state)
	s.True(state.Following)
	s.Equal(int64(1), state.FollowerCount)

	w = s.doJSON(http.MethodGet, "/api/v1/users/"+s.alice.id+"/followers", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"username":"bob"`)

	w = s.doJSON(http.MethodGet, "/api/v1/users/by-username/alice", s.bob.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"is_following":true`)

	w = s.doJSON(http.MethodGet, "/api/v1/users/suggestions", s.bob.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"users":[]}`, w.Body.String())

	w = s.doJSON(http.MethodGet, "/api/v1/users/missing-id", "", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestUpdateProfile() {
	w := s.doJSON(http.MethodPut, "/api/v1/users/me", s.alice.token, gin.H{"badge": "royalty"})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.doJSON(http.MethodPut, "/api/v1/users/me", s.alice.token, gin.H{"username": "bob"})
	s.Equal(http.StatusConflict, w.Code)
	s.Contains(w.Body.String(), `"code":"CONFLICT"`)

	w = s.doJSON(http.MethodPut, "/api/v1/users/me", s.alice.token, gin.H{"full_name": "Alice Liddell", "bio": "down the hole"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Contains(w.Body.String(), `"full_name":"Alice Liddell"`)

	w = s.doMultipart("/api/v1/users/me/avatar", s.alice.token, nil, nil)
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.doMultipart("/api/v1/users/me/avatar", s.alice.token, nil, pngBytes)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Contains(w.Body.String(), "/avatars/")
}

func (s *HandlersTestSuite) TestUserPostsAndFeed() {
	s.createPost(s.alice.token, "one")
	s.createPost(s.alice.token, "two")

	w := s.doJSON(http.MethodGet, "/api/v1/users/"+s.alice.id+"/posts?page_size=1", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var page struct {
		Posts    []json.RawMessage `json:"posts"`
		PageSize int               `json:"page_size"`
	}
	s.decode(w, &page)
	s.Len(page.Posts, 1)
	s.Equal(1, page.PageSize)

	w = s.doJSON(http.MethodGet, "/api/v1/feed", s.bob.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var resp feed.Response
	s.decode(w, &resp)
	s.Len(resp.Items, 2)
}

func (s *HandlersTestSuite) TestSearch() {
	s.createPost(s.alice.token, "gardening tips")

	w := s.doJSON(http.MethodGet, "/api/v1/search?q=GARDEN", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var results search.Results
	s.decode(w, &results)
	s.Len(results.Posts, 1)

	w = s.doJSON(http.MethodGet, "/api/v1/search?q=ali", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &results)
	s.Require().Len(results.Profiles, 1)
	s.Equal("alice", results.Profiles[0].Username)
}

func (s *HandlersTestSuite) TestSearchMarksLikedByViewer() {
	postID := s.createPost(s.alice.token, "sourdough starter")
	w := s.doJSON(http.MethodPost, "/api/v1/posts/"+postID+"/like", s.bob.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var results search.Results
	w = s.doJSON(http.MethodGet, "/api/v1/search?q=sourdough", s.bob.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &results)
	s.Require().Len(results.Posts, 1)
	s.True(results.Posts[0].LikedByMe)

	for _, token := range []string{s.alice.token, ""} {
		results = search.Results{}
		w = s.doJSON(http.MethodGet, "/api/v1/search?q=sourdough", token, nil)
		s.Require().Equal(http.StatusOK, w.Code)
		s.decode(w, &results)
		s.Require().Len(results.Posts, 1)
		s.False(results.Posts[0].LikedByMe)
	}
}

func (s *HandlersTestSuite) TestHealth() {
	w := s.doJSON(http.MethodGet, "/health", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.True(strings.Contains(w.Body.String(), `"database":"ok"`))
}

func (s *HandlersTestSuite) TestLogoutRevokesWithoutRedisIsNoop() {
	w := s.doJSON(http.MethodPost, "/api/v1/auth/logout", s.alice.token, nil)
	s.Equal(http.StatusNoContent, w.Code)
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
