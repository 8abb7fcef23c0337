package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/google/wire"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/plexgrid/plexgrid/logger"
)

// ConfigProviderSet
var ConfigProviderSet = wire.NewSet(NewViper)

// NewViper loads the yaml config file, layers environment variables on top
// and keeps watching the file so token or server edits take effect without
// a restart.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	if path == "" {
		path = "./config/config.yaml"
	}
	v.SetConfigFile(path)
	v.SetEnvPrefix("PLEXGRID")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read config file %s", path)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Default().Info("config file changed", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return v, nil
}
