// internal/completion/factory.go
package completion

import (
	"context"
	"fmt"

	"github.com/kathir-ks/a2a-ledger/internal/config"
)

// New builds the completer selected by cfg.CompletionProvider.
func New(ctx context.Context, cfg *config.Config) (Completer, error) {
	switch cfg.CompletionProvider {
	case config.ProviderProcess:
		p, err := NewProcessCompleter(cfg.CompletionCommand, cfg.CompletionArgs,
			WithTimeout(cfg.CompletionTimeout),
			WithEnv(cfg.CompletionEnv...))
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.ProviderGemini:
		g, err := NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, fmt.Errorf("unknown completion provider %q", cfg.CompletionProvider)
}
