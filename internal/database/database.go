package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/archivesocial/archive/backend/internal/config"
	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// AllModels lists every migrated table in dependency order
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.PostLike{},
		&models.Comment{},
		&models.Follow{},
		&models.Story{},
		&models.StoryView{},
		&models.Notification{},
	}
}

// Initialize creates and configures the database connection
func Initialize(cfg config.DatabaseConfig, environment string) error {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	logLevel := gormlogger.Warn
	if environment == "development" {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLogger(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	DB = db
	logger.Log.Info("Database connected", zap.String("driver", cfg.Driver))

	return nil
}

// InitializeForTest opens a private in-memory sqlite database and migrates it
func InitializeForTest() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", generateName())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	DB = db
	if err := Migrate(); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs auto-migration for all models
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := DB.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.Log.Info("Database migrations completed")
	return nil
}

// createIndexes creates performance indexes gorm tags cannot express
func createIndexes() error {
	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))",
		"CREATE INDEX IF NOT EXISTS idx_posts_author_created ON posts (author_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_comments_post_created ON comments (post_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_recipient_created ON notifications (recipient_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_stories_author_expires ON stories (author_id, expires_at DESC)",
	}

	if DB.Dialector.Name() == "postgres" {
		statements = append(statements,
			"CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications (recipient_id) WHERE read = false",
			"CREATE INDEX IF NOT EXISTS idx_posts_search ON posts USING gin(to_tsvector('english', coalesce(title, '') || ' ' || coalesce(content, '')))",
		)
	}

	for _, stmt := range statements {
		if err := DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// TruncateAll deletes every row from every table; used between tests
func TruncateAll() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	// Reverse dependency order
	all := AllModels()
	for i := len(all) - 1; i >= 0; i-- {
		if err := DB.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(all[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func generateName() string {
	return "archive_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
