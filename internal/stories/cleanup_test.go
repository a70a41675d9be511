package stories

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// MockFileDeleter implements FileDeleter for testing
type MockFileDeleter struct {
	mu          sync.Mutex
	DeletedKeys []string
	ShouldFail  bool
}

func (m *MockFileDeleter) DeleteFile(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return fmt.Errorf("mock delete failure")
	}
	m.DeletedKeys = append(m.DeletedKeys, key)
	return nil
}

// CleanupTestSuite contains cleanup service tests
type CleanupTestSuite struct {
	suite.Suite
	fileDeleter *MockFileDeleter
	testUser    *models.User
}

func (suite *CleanupTestSuite) SetupSuite() {
	_, err := database.InitializeForTest()
	require.NoError(suite.T(), err)
}

func (suite *CleanupTestSuite) TearDownSuite() {
	_ = database.Close()
}

// SetupTest creates fresh test data before each test
func (suite *CleanupTestSuite) SetupTest() {
	require.NoError(suite.T(), database.TruncateAll())

	suite.fileDeleter = &MockFileDeleter{}
	suite.testUser = &models.User{Email: "teller@test.com", Username: "teller", PasswordHash: "x"}
	require.NoError(suite.T(), database.DB.Create(suite.testUser).Error)
}

func (suite *CleanupTestSuite) createTestStory(expiresAt time.Time, imageKey string) *models.Story {
	story := &models.Story{
		AuthorID:  suite.testUser.ID,
		ImageURL:  "https://cdn.example.com/" + imageKey,
		ImageKey:  imageKey,
		CreatedAt: expiresAt.Add(-24 * time.Hour),
		ExpiresAt: expiresAt,
	}
	require.NoError(suite.T(), database.DB.Create(story).Error)
	return story
}

func (suite *CleanupTestSuite) storyExists(id string) bool {
	var count int64
	database.DB.Model(&models.Story{}).Where("id = ?", id).Count(&count)
	return count > 0
}

func (suite *CleanupTestSuite) TestCleanupExpiredStoriesDeletesFromDatabase() {
	t := suite.T()
	now := time.Now().UTC()

	expired1 := suite.createTestStory(now.Add(-2*time.Hour), "stories/2026/10/a.jpg")
	expired2 := suite.createTestStory(now.Add(-1*time.Hour), "stories/2026/10/b.jpg")
	active := suite.createTestStory(now.Add(23*time.Hour), "stories/2026/10/c.jpg")

	result := NewCleanupService(suite.fileDeleter, time.Hour).CleanupExpired(context.Background())

	assert.Equal(t, 2, result.StoriesDeleted)
	assert.False(t, suite.storyExists(expired1.ID), "expired story 1 should be deleted")
	assert.False(t, suite.storyExists(expired2.ID), "expired story 2 should be deleted")
	assert.True(t, suite.storyExists(active.ID), "active story should NOT be deleted")
}

func (suite *CleanupTestSuite) TestCleanupDeletesAssociatedViews() {
	t := suite.T()
	expired := suite.createTestStory(time.Now().UTC().Add(-time.Hour), "stories/2026/10/v.jpg")

	for i := 0; i < 3; i++ {
		viewer := &models.User{
			Email:        fmt.Sprintf("viewer%d@test.com", i),
			Username:     fmt.Sprintf("viewer%d", i),
			PasswordHash: "x",
		}
		require.NoError(t, database.DB.Create(viewer).Error)
		require.NoError(t, database.DB.Create(&models.StoryView{StoryID: expired.ID, ViewerID: viewer.ID}).Error)
	}

	result := NewCleanupService(suite.fileDeleter, time.Hour).CleanupExpired(context.Background())
	assert.Equal(t, int64(3), result.ViewsDeleted)

	var viewCount int64
	database.DB.Model(&models.StoryView{}).Where("story_id = ?", expired.ID).Count(&viewCount)
	assert.Equal(t, int64(0), viewCount, "views should be deleted with story")
}

func (suite *CleanupTestSuite) TestCleanupDeletesImages() {
	t := suite.T()
	suite.createTestStory(time.Now().UTC().Add(-time.Hour), "stories/2026/10/img.jpg")
	suite.createTestStory(time.Now().UTC().Add(-time.Hour), "")

	result := NewCleanupService(suite.fileDeleter, time.Hour).CleanupExpired(context.Background())

	assert.Equal(t, 2, result.StoriesDeleted)
	assert.Equal(t, 1, result.ImagesDeleted)
	assert.Equal(t, []string{"stories/2026/10/img.jpg"}, suite.fileDeleter.DeletedKeys)
}

func (suite *CleanupTestSuite) TestCleanupContinuesWhenImageDeleteFails() {
	t := suite.T()
	story := suite.createTestStory(time.Now().UTC().Add(-time.Hour), "stories/2026/10/fail.jpg")
	suite.fileDeleter.ShouldFail = true

	result := NewCleanupService(suite.fileDeleter, time.Hour).CleanupExpired(context.Background())

	assert.Equal(t, 1, result.StoriesDeleted)
	assert.Zero(t, result.ImagesDeleted)
	assert.False(t, suite.storyExists(story.ID), "row is removed even when the file is not")
}

func (suite *CleanupTestSuite) TestCleanupWithoutFileDeleter() {
	suite.createTestStory(time.Now().UTC().Add(-time.Hour), "stories/2026/10/x.jpg")

	result := NewCleanupService(nil, time.Hour).CleanupExpired(context.Background())
	assert.Equal(suite.T(), 1, result.StoriesDeleted)
	assert.Zero(suite.T(), result.ImagesDeleted)
}

func (suite *CleanupTestSuite) TestStartAndStop() {
	story := suite.createTestStory(time.Now().UTC().Add(-time.Hour), "stories/2026/10/loop.jpg")

	service := NewCleanupService(suite.fileDeleter, time.Hour)
	service.Start()

	// The first pass runs immediately
	require.Eventually(suite.T(), func() bool {
		return !suite.storyExists(story.ID)
	}, 2*time.Second, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		service.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		suite.T().Fatal("Stop did not return")
	}
}

func TestCleanupTestSuite(t *testing.T) {
	suite.Run(t, new(CleanupTestSuite))
}
