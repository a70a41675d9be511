package main

import (
	"errors"
	"fmt"

	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/archivesocial/archive/backend/internal/social"
	"github.com/spf13/cobra"
)

var (
	postTitle   string
	postContent string
	postImage   string
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Create or delete posts",
}

var postCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Publish a post with a title, text and/or an image",
	RunE: func(cmd *cobra.Command, args []string) error {
		if postTitle == "" && postContent == "" && postImage == "" {
			return errors.New("a post needs --title, --content or --image")
		}
		req, err := authed()
		if err != nil {
			return err
		}

		var post models.Post
		req.SetFormData(map[string]string{"title": postTitle, "content": postContent}).SetResult(&post)
		if postImage != "" {
			req.SetFile("image", postImage)
		}
		resp, err := req.Post("/posts")
		if err := checkResponse(resp, err); err != nil {
			return err
		}
		printSuccess("Posted %s", post.ID)
		return nil
	},
}

var postDeleteCmd = &cobra.Command{
	Use:   "delete <post-id>",
	Short: "Delete one of your posts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := authed()
		if err != nil {
			return err
		}
		resp, err := req.SetPathParam("id", args[0]).Delete("/posts/{id}")
		if err := checkResponse(resp, err); err != nil {
			return err
		}
		printSuccess("Deleted %s", args[0])
		return nil
	},
}

var likeCmd = &cobra.Command{
	Use:   "like <post-id>",
	Short: "Like or unlike a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := authed()
		if err != nil {
			return err
		}
		var state social.LikeState
		resp, err := req.SetPathParam("id", args[0]).SetResult(&state).Post("/posts/{id}/like")
		if err := checkResponse(resp, err); err != nil {
			return err
		}
		verb := "Unliked"
		if state.Liked {
			verb = "Liked"
		}
		printSuccess("%s %s (%s)", verb, args[0], plural(state.LikeCount, "like"))
		return nil
	},
}

func plural(n int64, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func init() {
	postCreateCmd.Flags().StringVarP(&postTitle, "title", "t", "", "post title")
	postCreateCmd.Flags().StringVarP(&postContent, "content", "c", "", "post text")
	postCreateCmd.Flags().StringVarP(&postImage, "image", "i", "", "path to a JPEG, PNG, GIF or WebP image")

	postCmd.AddCommand(postCreateCmd)
	postCmd.AddCommand(postDeleteCmd)
}
