// Package config loads typed configuration structs from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg from environment variables according to its `env` struct
// tags. Defaults come from `envDefault`; slice fields split on
// `envSeparator`.
//
//	type Config struct {
//	    HTTPPort int      `env:"TICKETPAY_HTTP_PORT" envDefault:"8080"`
//	    Brokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
