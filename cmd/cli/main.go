package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configPath string
	apiURL     string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "archive",
	Short: "aRchive command-line client",
	Long: `archive talks to an aRchive backend from the terminal.
Log in once and the token is stored in ~/.archive/config.toml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(configPath); err != nil {
			return err
		}
		if apiURL != "" {
			setAPIURL(apiURL)
		}
		initClient(debug)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.archive/config.toml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API server URL (overrides api_url)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log every request and response")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(likeCmd)
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(searchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
