package cli

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/toolmesh/config"
	"github.com/hupe1980/toolmesh/model"
	anthropicmodel "github.com/hupe1980/toolmesh/model/anthropic"
	geminimodel "github.com/hupe1980/toolmesh/model/gemini"
	openaimodel "github.com/hupe1980/toolmesh/model/openai"
)

// newModel builds the model adapter selected by cfg.Provider. Zero values
// keep the adapter defaults.
func newModel(ctx context.Context, cfg config.ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			if cfg.Temperature > 0 {
				o.Temperature = cfg.Temperature
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case config.ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if cfg.Name != "" {
				o.Model = anthropic.Model(cfg.Name)
			}
			if cfg.Temperature > 0 {
				o.Temperature = cfg.Temperature
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case config.ProviderGemini:
		return geminimodel.NewModel(ctx, func(o *geminimodel.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			if cfg.Temperature > 0 {
				o.Temperature = float32(cfg.Temperature)
			}
			if cfg.APIKey != "" {
				o.APIKey = cfg.APIKey
			}
		})
	case config.ProviderMock, "":
		name := cfg.Name
		if name == "" {
			name = "mock"
		}
		return model.NewMockModel(name), nil
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
}
