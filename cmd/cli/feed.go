package main

import (
	"fmt"

	"github.com/archivesocial/archive/backend/internal/feed"
	"github.com/spf13/cobra"
)

var feedLimit int

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show the home feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		var result feed.Response
		resp, err := client.R().SetResult(&result).Get("/feed")
		if err := checkResponse(resp, err); err != nil {
			return err
		}

		for i, item := range result.Items {
			if feedLimit > 0 && i >= feedLimit {
				break
			}
			if i == result.FollowStripIndex && len(result.Suggestions) > 0 {
				printSuggestions(result)
			}
			printItem(item)
		}
		return nil
	},
}

func printItem(item feed.Item) {
	header := "@" + item.Author.Username
	if item.IsNews {
		header = item.Source
	}
	bold.Print(header)
	faint.Printf("  %s  %s\n", ago(item.CreatedAt), item.ID)
	if item.Title != "" {
		fmt.Println(item.Title)
	}
	if item.Content != "" {
		fmt.Println(snippet(item.Content, 280))
	}
	if item.ImageURL != "" {
		faint.Println(item.ImageURL)
	}
	if item.IsNews {
		faint.Println(item.URL)
	} else {
		heart := "♡"
		if item.LikedByMe {
			heart = "♥"
		}
		info.Printf("%s %d  💬 %d\n", heart, item.LikeCount, item.CommentCount)
	}
	fmt.Println()
}

func printSuggestions(result feed.Response) {
	warning.Println("Suggested for you")
	for _, p := range result.Suggestions {
		fmt.Printf("  @%-20s %s\n", p.Username, p.FullName)
	}
	fmt.Println()
}

func init() {
	feedCmd.Flags().IntVarP(&feedLimit, "limit", "n", 0, "show at most n items")
}
