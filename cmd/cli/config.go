package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const defaultAPIURL = "http://localhost:8787"

var configFile string

// initConfig loads ~/.archive/config.toml, creating the directory on first use
func initConfig(path string) error {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(home, ".archive", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	configFile = path

	viper.SetConfigFile(path)
	viper.SetConfigType("toml")
	viper.SetDefault("api_url", defaultAPIURL)
	viper.SetEnvPrefix("ARCHIVE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}

func setAPIURL(u string) {
	viper.Set("api_url", u)
}

func savedToken() string {
	return viper.GetString("token")
}

// saveToken persists the session token with owner-only permissions
func saveToken(token string) error {
	viper.Set("token", token)
	if err := viper.WriteConfigAs(configFile); err != nil {
		return err
	}
	return os.Chmod(configFile, 0o600)
}
