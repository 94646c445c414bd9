// Package render provides the scene rasterization command.
package render

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/danmuck/bridgectl/internal/commands"
	"github.com/danmuck/bridgectl/internal/scene"
)

const (
	defaultResolutionX = 1920
	defaultResolutionY = 1080
	maxResolution      = 16384
)

// Provider renders the scene engine's strokes to image files.
type Provider struct {
	engine *scene.Engine
}

func NewProvider(engine *scene.Engine) *Provider {
	return &Provider{engine: engine}
}

func (p *Provider) Metadata() commands.ProviderMetadata {
	return commands.ProviderMetadata{
		ID:          "render",
		Name:        "rendering",
		Description: "orthographic scene rasterization to image files",
	}
}

func (p *Provider) Bindings() []commands.Binding {
	return []commands.Binding{
		{
			Name:        "render_image",
			Description: "rasterize the scene to a PNG file",
			Handler:     p.renderImage,
		},
	}
}

func (p *Provider) renderImage(payload map[string]any) (map[string]any, error) {
	const command = "render_image"

	width, err := commands.IntField(command, payload, "resolution_x", defaultResolutionX)
	if err != nil {
		return nil, err
	}
	height, err := commands.IntField(command, payload, "resolution_y", defaultResolutionY)
	if err != nil {
		return nil, err
	}
	if width < 1 || height < 1 || width > maxResolution || height > maxResolution {
		return nil, fmt.Errorf("%w: %s resolution %dx%d is out of range",
			commands.ErrInvalidPayload, command, width, height)
	}

	// The scene model is static, so the frame selector only needs to be
	// well-formed.
	if _, err := commands.IntField(command, payload, "frame", 1); err != nil {
		return nil, err
	}

	format := "PNG"
	if _, ok := payload["file_format"]; ok {
		format, err = commands.StringField(command, payload, "file_format")
		if err != nil {
			return nil, err
		}
	}
	if !strings.EqualFold(format, "PNG") {
		return nil, fmt.Errorf("%w: %s file format %q is not supported",
			commands.ErrInvalidPayload, command, format)
	}

	outputPath := filepath.Join(os.TempDir(), fmt.Sprintf("bridgectl_render_%s.png", uuid.NewString()))
	if _, ok := payload["output_path"]; ok {
		outputPath, err = commands.StringField(command, payload, "output_path")
		if err != nil {
			return nil, err
		}
	}

	img := rasterize(p.engine.Strokes(), width, height)

	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create render output: %w", err)
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		os.Remove(outputPath)
		return nil, fmt.Errorf("encode render output: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("close render output: %w", err)
	}

	return map[string]any{"image_path": outputPath}, nil
}
