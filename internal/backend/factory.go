// Package backend selects and constructs the analysis backend provider.
package backend

import (
	"fmt"

	"github.com/meghanaraju/insightq/internal/backend/anthropic"
	"github.com/meghanaraju/insightq/internal/backend/mock"
	"github.com/meghanaraju/insightq/internal/backend/openai"
	"github.com/meghanaraju/insightq/internal/config"
	"github.com/meghanaraju/insightq/pkg/models"
)

// NewProvider constructs the appropriate analysis provider based on config.
// Called once at worker startup.
func NewProvider(cfg config.BackendConfig) (models.AnalysisProvider, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewProvider(cfg.OpenAI, cfg.InferenceTimeout), nil
	case "anthropic":
		return anthropic.NewProvider(cfg.Anthropic, cfg.InferenceTimeout), nil
	case "mock":
		return mock.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown analysis provider %q: must be one of openai, anthropic, mock", cfg.Provider)
	}
}
