// Package draw provides the stroke and circle drawing commands.
package draw

import (
	"fmt"
	"math"

	"github.com/danmuck/bridgectl/internal/commands"
	"github.com/danmuck/bridgectl/internal/scene"
)

const defaultSegments = 64

// Provider draws into a shared scene engine.
type Provider struct {
	engine *scene.Engine
}

func NewProvider(engine *scene.Engine) *Provider {
	return &Provider{engine: engine}
}

func (p *Provider) Metadata() commands.ProviderMetadata {
	return commands.ProviderMetadata{
		ID:          "draw",
		Name:        "drawing",
		Description: "stroke and primitive drawing on scene layers",
	}
}

func (p *Provider) Bindings() []commands.Binding {
	return []commands.Binding{
		{
			Name:        "draw_stroke",
			Description: "draw a colored stroke through explicit points",
			Handler:     p.drawStroke,
		},
		{
			Name:        "draw_circle",
			Description: "draw a closed circle in the X-Z plane",
			Handler:     p.drawCircle,
		},
	}
}

func (p *Provider) drawStroke(payload map[string]any) (map[string]any, error) {
	const command = "draw_stroke"
	if err := commands.RequireKeys(command, payload, "layer_name", "color", "points"); err != nil {
		return nil, err
	}
	layerName, err := commands.StringField(command, payload, "layer_name")
	if err != nil {
		return nil, err
	}
	color, err := colorField(command, payload, "color")
	if err != nil {
		return nil, err
	}
	points, err := pointsField(command, payload, "points")
	if err != nil {
		return nil, err
	}
	clearLayer, err := commands.BoolField(command, payload, "clear_layer", false)
	if err != nil {
		return nil, err
	}
	return p.draw(layerName, color, points, clearLayer)
}

func (p *Provider) drawCircle(payload map[string]any) (map[string]any, error) {
	const command = "draw_circle"
	if err := commands.RequireKeys(command, payload, "layer_name", "color", "radius"); err != nil {
		return nil, err
	}
	layerName, err := commands.StringField(command, payload, "layer_name")
	if err != nil {
		return nil, err
	}
	color, err := colorField(command, payload, "color")
	if err != nil {
		return nil, err
	}
	radius, err := commands.NumberField(command, payload, "radius")
	if err != nil {
		return nil, err
	}
	if radius <= 0 {
		return nil, faultf(command, "key %q must be a positive number", "radius")
	}
	center, err := commands.FloatListField(command, payload, "center", 3, []float64{0, 0, 0})
	if err != nil {
		return nil, err
	}
	segments, err := commands.IntField(command, payload, "segments", defaultSegments)
	if err != nil {
		return nil, err
	}
	if segments < 3 {
		return nil, faultf(command, "key %q must be at least 3", "segments")
	}
	clearLayer, err := commands.BoolField(command, payload, "clear_layer", false)
	if err != nil {
		return nil, err
	}

	// segments+1 points so the stroke closes on its starting point.
	points := make([]scene.Point, segments+1)
	for i := 0; i <= segments; i++ {
		angle := 2 * math.Pi * float64(i) / float64(segments)
		points[i] = scene.Point{
			X: center[0] + radius*math.Cos(angle),
			Y: center[1],
			Z: center[2] + radius*math.Sin(angle),
		}
	}
	return p.draw(layerName, color, points, clearLayer)
}

func (p *Provider) draw(layerName string, color scene.Color, points []scene.Point, clearLayer bool) (map[string]any, error) {
	n, err := p.engine.DrawStroke(layerName, color, points, clearLayer)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"message": fmt.Sprintf("Stroke with %d points drawn on layer '%s'", n, layerName),
	}, nil
}

// colorField accepts 3 (RGB, alpha defaults to 1) or 4 components, each
// in [0, 1].
func colorField(command string, payload map[string]any, key string) (scene.Color, error) {
	raw, ok := payload[key]
	if !ok {
		return scene.Color{}, commands.RequireKeys(command, payload, key)
	}
	list, ok := raw.([]any)
	if !ok || (len(list) != 3 && len(list) != 4) {
		return scene.Color{}, faultf(command, "key %q must be a list of 3 or 4 numbers", key)
	}
	color := scene.Color{0, 0, 0, 1}
	for i, item := range list {
		v, ok := item.(float64)
		if !ok {
			if n, isInt := item.(int); isInt {
				v, ok = float64(n), true
			}
		}
		if !ok || v < 0 || v > 1 {
			return scene.Color{}, faultf(command, "key %q components must be numbers in [0, 1]", key)
		}
		color[i] = v
	}
	return color, nil
}

// pointsField decodes a non-empty list of {x, y, z} objects.
func pointsField(command string, payload map[string]any, key string) ([]scene.Point, error) {
	raw, ok := payload[key]
	if !ok {
		return nil, commands.RequireKeys(command, payload, key)
	}
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return nil, faultf(command, "key %q must be a non-empty list of point objects", key)
	}
	points := make([]scene.Point, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, faultf(command, "key %q entry %d is not a point object", key, i)
		}
		point := scene.Point{}
		for axis, dst := range map[string]*float64{"x": &point.X, "y": &point.Y, "z": &point.Z} {
			v, ok := numeric(obj[axis])
			if !ok {
				return nil, faultf(command, "key %q entry %d is missing numeric %q", key, i, axis)
			}
			*dst = v
		}
		points[i] = point
	}
	return points, nil
}

func numeric(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func faultf(command, format string, args ...any) error {
	return fmt.Errorf("%w: %s payload %s", commands.ErrInvalidPayload, command, fmt.Sprintf(format, args...))
}
