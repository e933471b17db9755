package weather

import (
	"context"
	"log/slog"
	"strings"

	apperrors "github.com/olgasafonova/toolcall-mcp-server/internal/errors"
)

// Service backs the getWeather tool.
type Service struct {
	provider Provider
	logger   *slog.Logger
}

func NewService(provider Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{provider: provider, logger: logger}
}

// GetWeather returns current conditions for args.Location.
func (s *Service) GetWeather(ctx context.Context, args GetWeatherArgs) (Data, error) {
	location := strings.TrimSpace(args.Location)
	if location == "" {
		return Data{}, apperrors.NewValidationError("location", args.Location, "is required")
	}

	data, err := s.provider.Current(ctx, location)
	if err != nil {
		s.logger.Debug("Weather lookup failed",
			"provider", s.provider.Name(),
			"location", location,
			"error", err)
		return Data{}, err
	}
	return *data, nil
}

// ProviderName reports which backend serves lookups.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}
