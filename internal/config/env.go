package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// DefaultPath is used when neither --config nor PROCWATCH_CONFIG is set.
const DefaultPath = "/etc/procwatch.json"

// Env holds the settings taken from the environment. Mail credentials
// override the values in the notify.email section.
type Env struct {
	Config   string   `env:"PROCWATCH_CONFIG"`
	MailAddr string   `env:"MAIL_ADDR"`
	MailPass string   `env:"MAIL_PASS"`
	MailHost string   `env:"MAIL_HOST"`
	MailTo   []string `env:"MAIL_TO" envSeparator:","`
}

// LoadEnv parses the process environment.
func LoadEnv() (Env, error) {
	return parseEnv(nil)
}

func parseEnv(environ map[string]string) (Env, error) {
	e, err := env.ParseAsWithOptions[Env](env.Options{Environment: environ})
	if err != nil {
		return Env{}, fmt.Errorf("environment: %w", err)
	}
	return e, nil
}
