// config.go loads the client settings stamped onto every Entry.

package squash

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables read by LoadConfig.
const (
	EnvClient      = "SQUASH_CLIENT"
	EnvAPIKey      = "SQUASH_API_KEY"
	EnvEndpoint    = "SQUASH_ENDPOINT"
	EnvAppVersion  = "SQUASH_APP_VERSION"
	EnvBuild       = "SQUASH_BUILD"
	EnvRevision    = "SQUASH_REVISION"
	EnvDeviceID    = "SQUASH_DEVICE_ID"
	EnvUserID      = "SQUASH_USER_ID"
	EnvEnvironment = "SQUASH_ENVIRONMENT"
)

// Config files read by LoadConfig, lowest precedence first.
var configFiles = []string{".env", ".local.env"}

// ClientConfig identifies the reporting application to Squash.
type ClientConfig struct {
	// Client names the reporting library or platform (default: "go").
	Client string

	// APIKey is the Squash project API key.
	APIKey string

	// Endpoint is the Squash notify URL.
	Endpoint string

	// AppVersion is the human-readable application version.
	AppVersion string

	// Build is the numeric build or version code.
	Build int

	// Revision is the build SHA of the running code.
	Revision string

	DeviceID string
	UserID   string

	// Environment is the deployment environment (default: "development").
	Environment string
}

// DefaultClientConfig returns the settings used when nothing is configured.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Client:      "go",
		Environment: "development",
	}
}

// LoadConfig reads SQUASH_* settings from dir/.env and dir/.local.env, with
// .local.env overriding .env and process environment variables overriding
// both. Missing files are ignored; unset keys keep DefaultClientConfig values.
func LoadConfig(dir string) (ClientConfig, error) {
	values := make(map[string]string)
	for _, name := range configFiles {
		path := filepath.Join(dir, name)
		content, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return ClientConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
		maps.Copy(values, content)
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}

	cfg := DefaultClientConfig()
	for key, dst := range map[string]*string{
		EnvClient:      &cfg.Client,
		EnvAPIKey:      &cfg.APIKey,
		EnvEndpoint:    &cfg.Endpoint,
		EnvAppVersion:  &cfg.AppVersion,
		EnvRevision:    &cfg.Revision,
		EnvDeviceID:    &cfg.DeviceID,
		EnvUserID:      &cfg.UserID,
		EnvEnvironment: &cfg.Environment,
	} {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup(EnvBuild); ok && v != "" {
		build, err := strconv.Atoi(v)
		if err != nil {
			return ClientConfig{}, fmt.Errorf("parse %s: %w", EnvBuild, err)
		}
		cfg.Build = build
	}

	return cfg, nil
}
