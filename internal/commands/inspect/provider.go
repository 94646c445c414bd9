// Package inspect provides the read-only host and scene inspection
// commands.
package inspect

import (
	"github.com/danmuck/bridgectl/internal/commands"
	"github.com/danmuck/bridgectl/internal/scene"
)

// Provider answers inspection commands from a shared scene engine.
type Provider struct {
	engine *scene.Engine
}

func NewProvider(engine *scene.Engine) *Provider {
	return &Provider{engine: engine}
}

func (p *Provider) Metadata() commands.ProviderMetadata {
	return commands.ProviderMetadata{
		ID:          "inspect",
		Name:        "inspection",
		Description: "read-only scene and host state queries",
	}
}

func (p *Provider) Bindings() []commands.Binding {
	return []commands.Binding{
		{
			Name:        "get_scene_info",
			Description: "summarize the active scene",
			Handler:     p.sceneInfo,
		},
		{
			Name:        "get_blender_info",
			Description: "report the host application version",
			Handler:     p.hostInfo,
		},
		{
			Name:        "get_blender_context",
			Description: "report the active window and screen context",
			Handler:     p.hostContext,
		},
	}
}

func (p *Provider) sceneInfo(payload map[string]any) (map[string]any, error) {
	info := p.engine.Info()
	selected := make([]any, len(info.SelectedObjects))
	for i, name := range info.SelectedObjects {
		selected[i] = name
	}
	return map[string]any{
		"scene_name":       info.Name,
		"object_count":     info.ObjectCount,
		"active_object":    info.ActiveObject,
		"selected_objects": selected,
		"mode":             info.Mode,
	}, nil
}

func (p *Provider) hostInfo(payload map[string]any) (map[string]any, error) {
	return map[string]any{"blender_version": p.engine.HostVersion()}, nil
}

func (p *Provider) hostContext(payload map[string]any) (map[string]any, error) {
	ctx := p.engine.Context()
	return map[string]any{
		"active_window_type": ctx.WindowType,
		"active_screen_name": ctx.ScreenName,
		"mode":               ctx.Mode,
	}, nil
}
