// Copyright 2024 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// The conf package manages the server configuration.
package conf

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Dongle Tracker configuration
type Config struct {
	LogLevel      string `yaml:"log_level" envconfig:"log_level"` // "debug", "info", "warn", "error"
	PublicBaseUrl string `yaml:"public_base_url" envconfig:"public_base_url"`
	Port          int    `yaml:"port" envconfig:"port"`
	Dsn           string `yaml:"dsn" envconfig:"dsn"`
	Access        `yaml:"access"`
	JWT           `yaml:"jwt"`
}

// Access credentials, protecting the private API
type Access struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// JWT configuration, protecting the dashboard API
type JWT struct {
	SecretKey string            `yaml:"secret_key"`
	Admin     map[string]string `yaml:"admin"` // username -> password
}

// ReadConfig reads the configuration file and applies environment overrides.
// Environment variables are prefixed with DONGLETRACKER_ (e.g. DONGLETRACKER_DSN).
func ReadConfig(configFile string) (*Config, error) {

	var c Config

	if configFile != "" {
		f, _ := filepath.Abs(configFile)
		yamlData, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		err = yaml.Unmarshal(yamlData, &c)
		if err != nil {
			return nil, err
		}

	} else {
		return nil, errors.New("failed to find the configuration file")
	}

	// the dsn and port can be overridden via the environment,
	// useful in containerized deployments
	err := envconfig.Process("dongletracker", &c)
	if err != nil {
		return nil, err
	}

	if c.Port == 0 {
		c.Port = 8081
	}

	return &c, nil
}
