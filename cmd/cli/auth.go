package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginEmail string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		email := loginEmail
		if email == "" {
			fmt.Print("Email: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return err
			}
			email = strings.TrimSpace(line)
		}

		fmt.Print("Password: ")
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return err
		}

		var result struct {
			Token string       `json:"token"`
			User  *models.User `json:"user"`
		}
		resp, err := client.R().
			SetBody(map[string]string{"email": email, "password": string(pw)}).
			SetResult(&result).
			Post("/auth/login")
		if err := checkResponse(resp, err); err != nil {
			return err
		}

		if err := saveToken(result.Token); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		printSuccess("Logged in as @%s", result.User.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the stored session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := authed()
		if err != nil {
			return err
		}
		// The local token is dropped even when the server call fails
		resp, err := req.Post("/auth/logout")
		callErr := checkResponse(resp, err)
		if err := saveToken(""); err != nil {
			return err
		}
		if callErr != nil {
			warning.Printf("server logout failed: %v\n", callErr)
		}
		printSuccess("Logged out")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email")
}
