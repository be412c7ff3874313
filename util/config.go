package util

import (
	_ "embed"
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
	"strconv"
)

const Name = "stegogram"
const ConfigFileName = "config.yaml"

//go:embed config_default.yaml
var embeddedConfig []byte

type AppConfig struct {
	Conf struct {
		Host          string
		SshPort       int    `yaml:"sshPort"`
		HttpPort      int    `yaml:"httpPort"`
		DbPath        string `yaml:"dbPath"`
		RedisAddr     string `yaml:"redisAddr"`
		RedisPassword string `yaml:"redisPassword"`
		RedisDb       int    `yaml:"redisDb"`
		WithWeb       bool   `yaml:"withWeb"`
		Debug         bool   `yaml:"debug"`
		LogFile       string `yaml:"logFile"`
	}
}

// ReadConf loads config.yaml (local directory first, then the user config
// directory), falling back to the embedded defaults, and applies STEGOGRAM_*
// environment overrides. Problems are reported as warnings so a broken
// override never prevents startup.
func ReadConf() (*AppConfig, []string, error) {

	c := &AppConfig{}
	var warnings []string

	configPath := ResolveFilePath(ConfigFileName)

	buf, err := os.ReadFile(configPath)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("config file not found at %s, using embedded defaults", configPath))
		buf = embeddedConfig

		configDir, dirErr := GetConfigDir()
		if dirErr == nil {
			userConfigPath := configDir + "/" + ConfigFileName
			if writeErr := os.WriteFile(userConfigPath, embeddedConfig, 0644); writeErr != nil {
				warnings = append(warnings, fmt.Sprintf("could not write default config to %s: %v", userConfigPath, writeErr))
			}
		}
	}

	err = yaml.Unmarshal(buf, c)
	if err != nil {
		return nil, warnings, fmt.Errorf("in config file: %w", err)
	}

	warnings = append(warnings, applyEnv(c)...)
	return c, warnings, nil
}

func applyEnv(c *AppConfig) []string {
	var warnings []string

	envInt := func(key string, dst *int) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("ignoring %s: %v", key, err))
			return
		}
		*dst = n
	}
	envString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envString("STEGOGRAM_HOST", &c.Conf.Host)
	envInt("STEGOGRAM_SSHPORT", &c.Conf.SshPort)
	envInt("STEGOGRAM_HTTPPORT", &c.Conf.HttpPort)
	envString("STEGOGRAM_DBPATH", &c.Conf.DbPath)
	envString("STEGOGRAM_REDIS_ADDR", &c.Conf.RedisAddr)
	envString("STEGOGRAM_REDIS_PASSWORD", &c.Conf.RedisPassword)
	envInt("STEGOGRAM_REDIS_DB", &c.Conf.RedisDb)
	envString("STEGOGRAM_LOGFILE", &c.Conf.LogFile)

	if os.Getenv("STEGOGRAM_WITH_WEB") == "true" {
		c.Conf.WithWeb = true
	}

	if os.Getenv("STEGOGRAM_DEBUG") == "true" {
		c.Conf.Debug = true
	}

	return warnings
}
