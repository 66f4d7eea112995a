package util

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ReadConfig loads ./data/config.{yaml,json,toml,env} into viper. A missing file is not an error,
// environment variables still override every key.
func ReadConfig() error {
	viper.SetConfigName("config")
	viper.AddConfigPath("./data/")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("fatal error config file: %w", err)
	}
	return nil
}
