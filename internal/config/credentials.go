package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Env variable names recognized by LoadCredentials.
const (
	EnvToken    = "CARMON_PORTAL_TOKEN"
	EnvLogin    = "CARMON_PORTAL_LOGIN"
	EnvPassword = "CARMON_PORTAL_PASSWORD"
)

// Credentials carries the portal secrets for one run. They are never stored
// in the settings file or mutated into shared state; every portal call takes
// them explicitly.
type Credentials struct {
	// Token is the bearer token for read/status endpoints.
	Token string

	// Login and Password form the basic-auth pair for sequence upload.
	Login    string
	Password string
}

// HasToken reports whether bearer-token endpoints can be called.
func (c Credentials) HasToken() bool { return c.Token != "" }

// HasBasic reports whether the upload endpoint can be called.
func (c Credentials) HasBasic() bool { return c.Login != "" && c.Password != "" }

// LoadCredentials reads credentials from the environment, optionally merging
// a dotenv file first. A missing dotenv file is not an error; real env
// variables always win over file values.
func LoadCredentials(envFile string) (Credentials, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Credentials{}, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}
	return Credentials{
		Token:    os.Getenv(EnvToken),
		Login:    os.Getenv(EnvLogin),
		Password: os.Getenv(EnvPassword),
	}, nil
}
