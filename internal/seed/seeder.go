// Package seed fills a database with fake aRchive users and activity for
// local development and demos.
package seed

import (
	"fmt"
	"strconv"
	"time"

	"github.com/archivesocial/archive/backend/internal/auth"
	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every seeded account
const DefaultPassword = "password123"

// seedEmailDomain marks seeded accounts so Clean can find them
const seedEmailDomain = "@seed.archive.local"

// Options sizes a dev seed
type Options struct {
	Users int
	Posts int
	// Seed makes runs reproducible; 0 seeds from the clock
	Seed uint64
}

// Counts reports what a seed run created
type Counts struct {
	Users         int
	Posts         int
	Comments      int
	Likes         int
	Follows       int
	Stories       int
	Notifications int
}

// Seeder handles database seeding operations
type Seeder struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, seed uint64) *Seeder {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Seeder{
		db:    db,
		faker: gofakeit.New(seed),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev(opts Options) (*Counts, error) {
	if opts.Users < 2 {
		opts.Users = 2
	}
	counts := &Counts{}

	logger.Log.Info("Creating users...", zap.Int("count", opts.Users))
	users, err := s.seedUsers(opts.Users)
	if err != nil {
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}
	counts.Users = len(users)

	logger.Log.Info("Creating posts...", zap.Int("count", opts.Posts))
	posts, err := s.seedPosts(users, opts.Posts)
	if err != nil {
		return nil, fmt.Errorf("failed to seed posts: %w", err)
	}
	counts.Posts = len(posts)

	logger.Log.Info("Creating follows...")
	if counts.Follows, err = s.seedFollows(users); err != nil {
		return nil, fmt.Errorf("failed to seed follows: %w", err)
	}

	logger.Log.Info("Creating likes...")
	if counts.Likes, err = s.seedLikes(users, posts); err != nil {
		return nil, fmt.Errorf("failed to seed likes: %w", err)
	}

	logger.Log.Info("Creating comments...")
	if counts.Comments, err = s.seedComments(users, posts, opts.Posts*2); err != nil {
		return nil, fmt.Errorf("failed to seed comments: %w", err)
	}

	logger.Log.Info("Creating stories...")
	if counts.Stories, err = s.seedStories(users); err != nil {
		return nil, fmt.Errorf("failed to seed stories: %w", err)
	}

	var notifications int64
	if err := s.db.Model(&models.Notification{}).
		Where("recipient_id IN (?)", s.seededUserIDs(s.db)).
		Count(&notifications).Error; err != nil {
		return nil, err
	}
	counts.Notifications = int(notifications)

	logger.Log.Info("Seed complete",
		zap.Int("users", counts.Users),
		zap.Int("posts", counts.Posts),
		zap.Int("comments", counts.Comments),
		zap.Int("likes", counts.Likes),
		zap.Int("follows", counts.Follows),
		zap.Int("stories", counts.Stories),
	)
	return counts, nil
}

// SeedTest creates the fixed accounts alice, bob and carol, with bob following alice
func (s *Seeder) SeedTest() ([]models.User, error) {
	hash, err := s.passwordHash()
	if err != nil {
		return nil, err
	}
	confirmed := s.now()

	users := make([]models.User, 0, 3)
	for _, name := range []string{"alice", "bob", "carol"} {
		user := models.User{
			Email:            name + seedEmailDomain,
			Username:         name,
			FullName:         name,
			PasswordHash:     hash,
			EmailConfirmedAt: &confirmed,
		}
		err := s.db.Where(models.User{Username: name}).FirstOrCreate(&user).Error
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", name, err)
		}
		users = append(users, user)
	}

	follow := models.Follow{FollowerID: users[1].ID, FollowingID: users[0].ID}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&follow).Error; err != nil {
		return nil, fmt.Errorf("failed to create follow: %w", err)
	}
	return users, nil
}

// Clean removes seeded accounts and everything they touched
func (s *Seeder) Clean() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		users := s.seededUserIDs(tx)
		posts := tx.Model(&models.Post{}).Select("id").Where("author_id IN (?)", users)
		stories := tx.Model(&models.Story{}).Select("id").Where("author_id IN (?)", users)

		// Children first
		steps := []struct {
			name  string
			model interface{}
			query string
			args  []interface{}
		}{
			{"notifications", &models.Notification{}, "recipient_id IN (?) OR actor_id IN (?)", []interface{}{users, users}},
			{"story views", &models.StoryView{}, "story_id IN (?) OR viewer_id IN (?)", []interface{}{stories, users}},
			{"stories", &models.Story{}, "author_id IN (?)", []interface{}{users}},
			{"likes", &models.PostLike{}, "post_id IN (?) OR user_id IN (?)", []interface{}{posts, users}},
			{"comments", &models.Comment{}, "post_id IN (?) OR author_id IN (?)", []interface{}{posts, users}},
			{"follows", &models.Follow{}, "follower_id IN (?) OR following_id IN (?)", []interface{}{users, users}},
			{"posts", &models.Post{}, "author_id IN (?)", []interface{}{users}},
		}
		for _, step := range steps {
			if err := tx.Where(step.query, step.args...).Delete(step.model).Error; err != nil {
				return fmt.Errorf("failed to clean %s: %w", step.name, err)
			}
		}

		if err := tx.Where("email LIKE ?", "%"+seedEmailDomain).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("failed to clean users: %w", err)
		}
		return nil
	})
}

func (s *Seeder) seededUserIDs(db *gorm.DB) *gorm.DB {
	return db.Model(&models.User{}).Select("id").Where("email LIKE ?", "%"+seedEmailDomain)
}

func (s *Seeder) passwordHash() (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	// One hash shared by every account keeps large seeds fast
	hash, err := s.passwordHash()
	if err != nil {
		return nil, err
	}
	badges := []string{models.BadgeNone, models.BadgeNone, models.BadgeVerified, models.BadgeCreator}
	borders := []string{models.BorderNone, models.BorderDefault, models.BorderFire, models.BorderGhost, models.BorderGold, models.BorderNeon}

	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		username, err := s.uniqueUsername(auth.SanitizeUsername(s.faker.Username()))
		if err != nil {
			return nil, err
		}
		createdAt := s.faker.DateRange(s.now().AddDate(0, -6, 0), s.now())
		confirmed := createdAt

		user := models.User{
			Email:            username + seedEmailDomain,
			Username:         username,
			FullName:         s.faker.Name(),
			Bio:              s.faker.HipsterSentence(),
			AvatarURL:        fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", username),
			Badge:            badges[s.faker.IntRange(0, len(badges)-1)],
			BorderVariant:    borders[s.faker.IntRange(0, len(borders)-1)],
			PasswordHash:     hash,
			EmailConfirmedAt: &confirmed,
			CreatedAt:        createdAt,
		}
		if s.faker.IntRange(0, 2) == 0 {
			user.Website = "https://" + username + ".example.com"
		}

		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, user)
	}

	logger.Log.Info("Created seed users", zap.Int("new_users", len(users)))
	return users, nil
}

func (s *Seeder) uniqueUsername(base string) (string, error) {
	candidate := base
	for i := 1; ; i++ {
		var n int64
		if err := s.db.Model(&models.User{}).Where("username = ?", candidate).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(i)
	}
}

func (s *Seeder) seedPosts(users []models.User, count int) ([]models.Post, error) {
	posts := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[s.faker.IntRange(0, len(users)-1)]
		createdAt := s.faker.DateRange(author.CreatedAt, s.now())

		post := models.Post{
			AuthorID:  author.ID,
			Title:     util.Truncate(s.faker.HipsterSentence(), 80),
			Content:   s.faker.HipsterSentence() + " " + s.faker.HipsterSentence(),
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		}
		// About a third of posts carry an image
		if s.faker.IntRange(0, 2) == 0 {
			post.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/1080/1080", s.faker.UUID())
		}

		if err := s.db.Create(&post).Error; err != nil {
			return nil, fmt.Errorf("failed to create post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *Seeder) seedFollows(users []models.User) (int, error) {
	created := 0
	for _, follower := range users {
		want := s.faker.IntRange(0, min(len(users)-1, 10))
		for i := 0; i < want; i++ {
			target := users[s.faker.IntRange(0, len(users)-1)]
			if target.ID == follower.ID {
				continue
			}
			res := s.db.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.Follow{FollowerID: follower.ID, FollowingID: target.ID})
			if res.Error != nil {
				return created, res.Error
			}
			if res.RowsAffected > 0 {
				created++
				if err := s.notify(target.ID, follower.ID, models.NotificationFollow, nil, nil); err != nil {
					return created, err
				}
			}
		}
	}
	return created, nil
}

func (s *Seeder) seedLikes(users []models.User, posts []models.Post) (int, error) {
	created := 0
	for i := range posts {
		post := &posts[i]
		want := s.faker.IntRange(0, min(len(users), 15))
		for j := 0; j < want; j++ {
			liker := users[s.faker.IntRange(0, len(users)-1)]
			res := s.db.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.PostLike{PostID: post.ID, UserID: liker.ID})
			if res.Error != nil {
				return created, res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			created++
			post.LikeCount++
			if err := s.notify(post.AuthorID, liker.ID, models.NotificationLike, &post.ID, nil); err != nil {
				return created, err
			}
		}
		if err := s.db.Model(post).UpdateColumn("like_count", post.LikeCount).Error; err != nil {
			return created, err
		}
	}
	return created, nil
}

var commentTemplates = []string{
	"This is great",
	"Love this",
	"Saving this one",
	"Couldn't agree more",
	"Where was this taken?",
	"Underrated post",
}

func (s *Seeder) seedComments(users []models.User, posts []models.Post, count int) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	roots := map[string][]string{}
	for i := 0; i < count; i++ {
		post := &posts[s.faker.IntRange(0, len(posts)-1)]
		author := users[s.faker.IntRange(0, len(users)-1)]

		content := s.faker.HipsterSentence()
		if s.faker.IntRange(0, 1) == 0 {
			content = commentTemplates[s.faker.IntRange(0, len(commentTemplates)-1)]
		}

		comment := models.Comment{PostID: post.ID, AuthorID: author.ID, Content: content}
		// Replies stay one level deep
		if existing := roots[post.ID]; len(existing) > 0 && s.faker.IntRange(0, 3) == 0 {
			parent := existing[s.faker.IntRange(0, len(existing)-1)]
			comment.ParentID = &parent
		}
		createdAt := s.faker.DateRange(post.CreatedAt, s.now())
		comment.CreatedAt = createdAt
		comment.UpdatedAt = createdAt

		if err := s.db.Create(&comment).Error; err != nil {
			return i, fmt.Errorf("failed to create comment: %w", err)
		}
		if comment.ParentID == nil {
			roots[post.ID] = append(roots[post.ID], comment.ID)
		}
		if err := s.db.Model(post).UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error; err != nil {
			return i, err
		}
		if err := s.notify(post.AuthorID, author.ID, models.NotificationComment, &post.ID, &comment.ID); err != nil {
			return i, err
		}
	}

	logger.Log.Info("Created comments", zap.Int("count", count))
	return count, nil
}

func (s *Seeder) seedStories(users []models.User) (int, error) {
	created := 0
	for _, user := range users {
		// Roughly one user in three has active stories
		if s.faker.IntRange(0, 2) != 0 {
			continue
		}
		n := s.faker.IntRange(1, 3)
		for i := 0; i < n; i++ {
			createdAt := s.now().Add(-time.Duration(s.faker.IntRange(1, 20*60)) * time.Minute)
			story := models.Story{
				AuthorID:  user.ID,
				ImageURL:  fmt.Sprintf("https://picsum.photos/seed/%s/1080/1920", s.faker.UUID()),
				CreatedAt: createdAt,
				ExpiresAt: createdAt.Add(models.DefaultStoryTTL),
			}
			if err := s.db.Create(&story).Error; err != nil {
				return created, fmt.Errorf("failed to create story: %w", err)
			}
			created++
		}
	}
	return created, nil
}

func (s *Seeder) notify(recipientID, actorID, typ string, postID, commentID *string) error {
	if recipientID == actorID {
		return nil
	}
	return s.db.Create(&models.Notification{
		RecipientID: recipientID,
		ActorID:     actorID,
		Type:        typ,
		PostID:      postID,
		CommentID:   commentID,
		Read:        s.faker.IntRange(0, 1) == 0,
	}).Error
}
