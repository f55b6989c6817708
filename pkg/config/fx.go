package config

import (
	"os"

	"github.com/sqlport/sqlport/pkg/consts"
	"go.uber.org/fx"
)

var Module = fx.Module("config", fx.Provide(
	// Function attempts to load the configuration from sqlport.yaml if it
	// exists. Returns nil if the file doesn't exist, allowing commands
	// that don't require config (like help, version) to function properly.
	func() (*Config, error) {
		if _, err := os.Stat(consts.DefaultConfigFile); os.IsNotExist(err) {
			return nil, nil
		}

		return LoadConfigFile(consts.DefaultConfigFile)
	},
))
