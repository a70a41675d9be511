package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/archivesocial/archive/backend/internal/auth"
	"github.com/archivesocial/archive/backend/internal/cache"
	"github.com/archivesocial/archive/backend/internal/config"
	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/middleware"
	"github.com/archivesocial/archive/backend/internal/seed"
	"github.com/spf13/cobra"
)

var (
	opts seed.Options
	cfg  *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate or clean the aRchive database with generated data",
	}

	devCmd := &cobra.Command{
		Use:   "dev",
		Short: "Seed the development database with realistic data",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := connect()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			log.Println("🌱 Seeding development database...")
			counts, err := s.SeedDev(opts)
			if err != nil {
				return fmt.Errorf("seeding failed: %w", err)
			}
			purgeCaches()
			log.Println("✅ Development database seeded")
			fmt.Printf("  users:         %d\n", counts.Users)
			fmt.Printf("  posts:         %d\n", counts.Posts)
			fmt.Printf("  comments:      %d\n", counts.Comments)
			fmt.Printf("  likes:         %d\n", counts.Likes)
			fmt.Printf("  follows:       %d\n", counts.Follows)
			fmt.Printf("  stories:       %d\n", counts.Stories)
			fmt.Printf("  notifications: %d\n", counts.Notifications)
			fmt.Printf("\nEvery seeded account uses the password %q\n", seed.DefaultPassword)
			return nil
		},
	}
	devCmd.Flags().IntVar(&opts.Users, "users", 20, "number of users to create")
	devCmd.Flags().IntVar(&opts.Posts, "posts", 60, "number of posts to create")
	devCmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed for reproducible data (0 uses the clock)")

	testCmd := &cobra.Command{
		Use:   "test",
		Short: "Seed the fixed alice, bob and carol accounts and print a token for each",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := connect()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			users, err := s.SeedTest()
			if err != nil {
				return fmt.Errorf("seeding failed: %w", err)
			}
			tokens := auth.NewService(auth.Options{
				JWTSecret: []byte(cfg.Auth.JWTSecret),
				TokenTTL:  cfg.Auth.TokenTTL,
			})
			for i := range users {
				resp, err := tokens.IssueToken(&users[i])
				if err != nil {
					return fmt.Errorf("issue token for %s: %w", users[i].Username, err)
				}
				fmt.Printf("  @%-8s %s\n    %s\n", users[i].Username, users[i].Email, resp.Token)
			}
			log.Println("✅ Test accounts ready")
			return nil
		},
	}

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove all seeded data (use with caution)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := connect()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			log.Println("🧹 Cleaning seed data...")
			if err := s.Clean(); err != nil {
				return fmt.Errorf("clean failed: %w", err)
			}
			purgeCaches()
			log.Println("✅ Seed data removed")
			return nil
		},
	}

	rootCmd.AddCommand(devCmd, testCmd, cleanCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Printf("❌ %v", err)
		os.Exit(1)
	}
}

func connect() (*seed.Seeder, error) {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return nil, err
	}
	if err := database.Initialize(cfg.Database, cfg.Environment); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return seed.NewSeeder(database.DB, opts.Seed), nil
}

// purgeCaches drops cached API responses so seeded or removed rows show up
// immediately. Redis being down is not an error here.
func purgeCaches() {
	if !cfg.Redis.Enabled() {
		return
	}
	rc, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("⚠️  Skipping cache purge: %v", err)
		return
	}
	defer func() { _ = rc.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := middleware.PurgeResponseCache(ctx, rc); err != nil {
		log.Printf("⚠️  Cache purge failed: %v", err)
	}
}
