// Package config resolves settings shared by the lambda, the CLI and the
// local server. Sources, lowest priority first: defaults, YAML file, .env,
// process environment.
package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	DefaultTable  = "greenhouse"
	DefaultRegion = "eu-west-2"
	DefaultAddr   = ":8080"
)

type Config struct {
	TableName      string   `yaml:"table" validate:"required"`
	Region         string   `yaml:"region" validate:"required"`
	Endpoint       string   `yaml:"endpoint" validate:"omitempty,url"`
	Addr           string   `yaml:"addr" validate:"required"`
	AllowedOrigins []string `yaml:"allowedOrigins" validate:"min=1,dive,required"`
}

func Default() *Config {
	return &Config{
		TableName:      DefaultTable,
		Region:         DefaultRegion,
		Addr:           DefaultAddr,
		AllowedOrigins: []string{"*"},
	}
}

// Load reads YAML file at path when it is not empty, then .env in the working
// directory if there is one, then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readYaml(path); err != nil {
			return nil, err
		}
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}
	cfg.readEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func FromEnv() (*Config, error) {
	return Load("")
}

func (c *Config) readYaml(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open config")
	}
	defer f.Close()
	if err = yaml.NewDecoder(f).Decode(c); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}

func (c *Config) readEnv() {
	if v := os.Getenv("TABLE_NAME"); v != "" {
		c.TableName = v
	}
	if v := os.Getenv("DYNAMO_REGION"); v != "" {
		c.Region = v
	} else if v := os.Getenv("AWS_REGION"); v != "" {
		c.Region = v
	}
	if v := os.Getenv("DYNAMO_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.AllowedOrigins = origins
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}
