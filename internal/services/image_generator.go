package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/cozi7266/aieng/internal/clients/comfyui"
	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/pkg/imagex"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

// ImageRenderer is the workflow render backend.
type ImageRenderer interface {
	Render(ctx context.Context, prompt string) ([]byte, error)
}

type ImageGenerator interface {
	// Generate always renders; nothing is cached. The result is PNG.
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

type imageGenerator struct {
	log      *logger.Logger
	renderer ImageRenderer
}

func NewImageGenerator(log *logger.Logger, renderer ImageRenderer) ImageGenerator {
	return &imageGenerator{log: log.With("service", "ImageGenerator"), renderer: renderer}
}

func (g *imageGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	raw, err := g.renderer.Render(ctx, prompt)
	if err != nil {
		if errors.Is(err, comfyui.ErrNoOutput) {
			return nil, fmt.Errorf("%w: %v", domain.ErrRenderTimeout, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: image render: %v", domain.ErrProviderFailure, err)
	}
	png, err := imagex.NormalizePNG(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: rendered image: %v", domain.ErrProviderFailure, err)
	}
	return png, nil
}
