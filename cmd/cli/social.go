package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/archivesocial/archive/backend/internal/search"
	"github.com/archivesocial/archive/backend/internal/social"
	"github.com/spf13/cobra"
)

var (
	notificationsReadAll bool
	notificationsLimit   int
)

var followCmd = &cobra.Command{
	Use:   "follow <username>",
	Short: "Follow or unfollow a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := authed()
		if err != nil {
			return err
		}

		username := strings.TrimPrefix(args[0], "@")
		var profile models.Profile
		resp, err := client.R().SetPathParam("username", username).SetResult(&profile).Get("/users/by-username/{username}")
		if err := checkResponse(resp, err); err != nil {
			return err
		}

		var state social.FollowState
		resp, err = req.SetPathParam("id", profile.ID).SetResult(&state).Post("/users/{id}/follow")
		if err := checkResponse(resp, err); err != nil {
			return err
		}
		verb := "Unfollowed"
		if state.Following {
			verb = "Following"
		}
		printSuccess("%s @%s (%s)", verb, profile.Username, plural(state.FollowerCount, "follower"))
		return nil
	},
}

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notifs"},
	Short:   "List notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := authed()
		if err != nil {
			return err
		}

		if notificationsReadAll {
			var result struct {
				Updated int64 `json:"updated"`
			}
			resp, err := req.SetResult(&result).Post("/notifications/read-all")
			if err := checkResponse(resp, err); err != nil {
				return err
			}
			printSuccess("Marked %s as read", plural(result.Updated, "notification"))
			return nil
		}

		var result struct {
			Notifications []models.Notification `json:"notifications"`
			UnreadCount   int64                 `json:"unread_count"`
		}
		resp, err := req.SetQueryParam("limit", fmt.Sprint(notificationsLimit)).SetResult(&result).Get("/notifications")
		if err := checkResponse(resp, err); err != nil {
			return err
		}

		bold.Printf("%d unread\n", result.UnreadCount)
		for _, n := range result.Notifications {
			marker := " "
			if !n.Read {
				marker = "•"
			}
			info.Print(marker + " ")
			fmt.Printf("%s ", describeNotification(n))
			faint.Println(ago(n.CreatedAt))
		}
		return nil
	},
}

func describeNotification(n models.Notification) string {
	actor := "someone"
	if n.Actor != nil {
		actor = "@" + n.Actor.Username
	}
	switch n.Type {
	case models.NotificationLike:
		return actor + " liked your post"
	case models.NotificationComment:
		return actor + " commented on your post"
	case models.NotificationFollow:
		return actor + " followed you"
	}
	return actor + " " + n.Type
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search posts and people",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var result search.Results
		resp, err := client.R().SetQueryParam("q", strings.Join(args, " ")).SetResult(&result).Get("/search")
		if err := checkResponse(resp, err); err != nil {
			return err
		}

		bold.Printf("People (%d)\n", len(result.Profiles))
		for _, p := range result.Profiles {
			fmt.Printf("  @%-20s %s\n", p.Username, p.FullName)
		}
		bold.Printf("\nPosts (%d)\n", len(result.Posts))
		for _, p := range result.Posts {
			text := p.Title
			if text == "" {
				text = p.Content
			}
			author := ""
			if p.Author != nil {
				author = "@" + p.Author.Username
			}
			fmt.Printf("  %-12s %s ", author, snippet(text, 60))
			faint.Printf("%s %s\n", p.CreatedAt.Format(time.DateOnly), p.ID)
		}
		return nil
	},
}

func init() {
	notificationsCmd.Flags().BoolVar(&notificationsReadAll, "read-all", false, "mark every notification as read")
	notificationsCmd.Flags().IntVarP(&notificationsLimit, "limit", "n", social.DefaultNotificationLimit, "number of notifications to show")
}
