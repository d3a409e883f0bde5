package backend

import (
	"context"
	"fmt"
	"log/slog"

	applog "ganhos/internal/log"
	"ganhos/internal/remote/httpapi"
	"ganhos/internal/remote/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With(applog.FieldComponent, applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case HTTPBackend:
		return f.createHTTPBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createHTTPBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client, err := httpapi.New(httpapi.Config{
		BaseURL: config.APIURL,
		Timeout: config.APITimeout,
		Tokens:  config.Tokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize API client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized HTTP backend",
		"base_url", config.APIURL,
		"timeout", config.APITimeout,
		"authenticated", config.Tokens != nil)

	return &BackendResult{Backend: client}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := memory.NewFromFiles(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", config.DataDirectory)

	return &BackendResult{Backend: store}, nil
}
