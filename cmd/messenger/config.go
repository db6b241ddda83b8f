package main

import "github.com/kelseyhightower/envconfig"

// DisplayConfig only drives how the CLI renders, never what it stores.
type DisplayConfig struct {
	// MESSENGER_COLOURS highlights unread conversations and messages
	Colours    bool   `envconfig:"MESSENGER_COLOURS" default:"true"`
	TimeFormat string `envconfig:"MESSENGER_TIME_FORMAT" default:"2006-01-02 15:04"`
}

func LoadDisplayConfig() (DisplayConfig, error) {
	var cfg DisplayConfig
	err := envconfig.Process("", &cfg)
	return cfg, err
}
