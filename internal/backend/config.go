package backend

import (
	"fmt"

	"golang.org/x/oauth2"

	"ganhos/internal/config"
	"ganhos/internal/remote/httpapi"
)

// FromAppConfig converts the application config to backend config. A
// configured API_TOKEN takes precedence over tokens.
func FromAppConfig(appConfig *config.Config, tokens oauth2.TokenSource) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	if appConfig.APIToken != "" {
		tokens = httpapi.StaticToken(appConfig.APIToken)
	}

	dataDir := appConfig.MemorySeedDir
	if dataDir == "" {
		dataDir = "data"
	}

	return Config{
		Type:          backendType,
		APIURL:        appConfig.APIURL,
		APITimeout:    appConfig.APITimeout,
		Tokens:        tokens,
		DataDirectory: dataDir,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == HTTPBackend && c.APIURL == "" {
		return fmt.Errorf("API URL is required for http backend")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{HTTPBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
