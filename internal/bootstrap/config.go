package bootstrap

import (
	"os"
	"path/filepath"

	"github.com/OpenListTeam/tgdrive/cmd/flags"
	"github.com/OpenListTeam/tgdrive/internal/conf"
	"github.com/OpenListTeam/tgdrive/pkg/utils"
	"github.com/caarlos0/env/v9"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func InitConfig() {
	dataDir, err := filepath.Abs(flags.DataDir)
	if err != nil {
		log.Fatalf("failed to get abs path of data dir: %+v", err)
	}
	flags.DataDir = dataDir
	configPath := filepath.Join(dataDir, "config.json")
	log.Infof("reading config file: %s", configPath)
	prefix := conf.EnvPrefix
	if flags.NoPrefix {
		prefix = ""
	}
	c, err := LoadConfig(configPath, dataDir, prefix)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	conf.Conf = c
	if flags.Debug {
		conf.Conf.Debug = true
	}
}

// LoadConfig reads configPath over the defaults for dataDir, writing the
// merged result back so new keys show up in the file, then applies
// environment overrides carrying envPrefix.
func LoadConfig(configPath, dataDir, envPrefix string) (*conf.Config, error) {
	c := conf.DefaultConfig(dataDir)
	if !utils.Exists(configPath) {
		log.Infof("config file not exists, creating default config file")
		f, err := utils.CreateNestedFile(configPath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create config file")
		}
		_ = f.Close()
	} else {
		configBytes, err := os.ReadFile(configPath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err = utils.Json.Unmarshal(configBytes, c); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	}
	confBody, err := utils.Json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal config")
	}
	if err = os.WriteFile(configPath, confBody, 0o600); err != nil {
		return nil, errors.Wrap(err, "failed to update config file")
	}
	log.Infof("load config from env with prefix: %s", envPrefix)
	if err = env.ParseWithOptions(c, env.Options{Prefix: envPrefix}); err != nil {
		return nil, errors.Wrap(err, "load config from env error")
	}
	for _, p := range []*string{&c.Database.DBFile, &c.Log.Name, &c.Server.CertFile, &c.Server.KeyFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dataDir, *p)
		}
	}
	return c, nil
}
