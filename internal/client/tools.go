package client

import (
	"errors"
	"fmt"
)

// ErrCommandFailed marks error envelopes surfaced through the facade.
var ErrCommandFailed = errors.New("command failed")

// Tools is the typed facade over the raw command channel. Each method
// maps to one named operation and converts error envelopes into Go
// errors.
type Tools struct {
	client *Client
}

func NewTools(client *Client) *Tools {
	return &Tools{client: client}
}

func (t *Tools) call(command string, payload map[string]any) (map[string]any, error) {
	resp := t.client.SendCommand(command, payload)
	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s: %s", ErrCommandFailed, command, resp.ErrorMessage)
	}
	return resp.Data, nil
}

// Send passes a raw named command through without payload shaping.
func (t *Tools) Send(command string, payload map[string]any) (map[string]any, error) {
	return t.call(command, payload)
}

func (t *Tools) ExecuteCode(code string) (map[string]any, error) {
	return t.call("execute_code", map[string]any{"code": code})
}

func (t *Tools) GetSceneInfo() (map[string]any, error) {
	return t.call("get_scene_info", nil)
}

func (t *Tools) GetHostInfo() (map[string]any, error) {
	return t.call("get_blender_info", nil)
}

func (t *Tools) GetHostContext() (map[string]any, error) {
	return t.call("get_blender_context", nil)
}

func (t *Tools) DrawStroke(layerName string, color []float64, points [][3]float64, clearLayer bool) (map[string]any, error) {
	wirePoints := make([]any, len(points))
	for i, p := range points {
		wirePoints[i] = map[string]any{"x": p[0], "y": p[1], "z": p[2]}
	}
	return t.call("draw_stroke", map[string]any{
		"layer_name":  layerName,
		"color":       floatsToAny(color),
		"points":      wirePoints,
		"clear_layer": clearLayer,
	})
}

func (t *Tools) DrawCircle(layerName string, color []float64, radius float64, center [3]float64, segments int, clearLayer bool) (map[string]any, error) {
	payload := map[string]any{
		"layer_name":  layerName,
		"color":       floatsToAny(color),
		"radius":      radius,
		"center":      []any{center[0], center[1], center[2]},
		"clear_layer": clearLayer,
	}
	if segments > 0 {
		payload["segments"] = segments
	}
	return t.call("draw_circle", payload)
}

// RenderImage renders the scene. Zero values fall back to the host's
// defaults: empty outputPath picks a unique temp file, zero resolutions
// keep the host resolution.
func (t *Tools) RenderImage(outputPath string, resolutionX, resolutionY int) (map[string]any, error) {
	payload := map[string]any{}
	if outputPath != "" {
		payload["output_path"] = outputPath
	}
	if resolutionX > 0 {
		payload["resolution_x"] = resolutionX
	}
	if resolutionY > 0 {
		payload["resolution_y"] = resolutionY
	}
	return t.call("render_image", payload)
}

func floatsToAny(values []float64) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
