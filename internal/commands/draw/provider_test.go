package draw

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/danmuck/bridgectl/internal/commands"
	"github.com/danmuck/bridgectl/internal/scene"
)

func newProvider(t *testing.T) (*Provider, *scene.Engine) {
	t.Helper()
	engine := scene.NewEngine("TestScene", "4.1.0")
	return NewProvider(engine), engine
}

func handlerFor(t *testing.T, p *Provider, name string) commands.Handler {
	t.Helper()
	for _, binding := range p.Bindings() {
		if binding.Name == name {
			return binding.Handler
		}
	}
	t.Fatalf("no binding named %s", name)
	return nil
}

func TestDrawStroke(t *testing.T) {
	provider, engine := newProvider(t)
	handler := handlerFor(t, provider, "draw_stroke")

	data, err := handler(map[string]any{
		"layer_name": "TestStrokeLayer",
		"color":      []any{1.0, 0.0, 0.0, 1.0},
		"points": []any{
			map[string]any{"x": 0.0, "y": 0.0, "z": 0.0},
			map[string]any{"x": 1.0, "y": 0.0, "z": 1.0},
			map[string]any{"x": 2.0, "y": 0.0, "z": 0.0},
		},
		"clear_layer": true,
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	message, _ := data["message"].(string)
	if !strings.Contains(message, "Stroke with 3 points drawn") {
		t.Fatalf("unexpected message %q", message)
	}
	if got := len(engine.Strokes()); got != 1 {
		t.Fatalf("expected 1 stroke, got %d", got)
	}
}

func TestDrawStrokeMissingKeys(t *testing.T) {
	provider, _ := newProvider(t)
	handler := handlerFor(t, provider, "draw_stroke")

	_, err := handler(map[string]any{"layer_name": "bad_layer"})
	if !errors.Is(err, commands.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	want := "draw_stroke payload must contain keys: color, points"
	if !strings.Contains(err.Error(), want) {
		t.Fatalf("error %q does not contain %q", err.Error(), want)
	}
}

func TestDrawStrokeRGBColorGetsOpaqueAlpha(t *testing.T) {
	provider, engine := newProvider(t)
	handler := handlerFor(t, provider, "draw_stroke")

	_, err := handler(map[string]any{
		"layer_name": "Sketch",
		"color":      []any{0.2, 0.4, 0.6},
		"points": []any{
			map[string]any{"x": 0.0, "y": 0.0, "z": 0.0},
			map[string]any{"x": 1.0, "y": 1.0, "z": 1.0},
		},
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	strokes := engine.Strokes()
	if strokes[0].Color[3] != 1.0 {
		t.Fatalf("expected opaque alpha, got %v", strokes[0].Color)
	}
}

func TestDrawStrokeRejectsBadColor(t *testing.T) {
	provider, _ := newProvider(t)
	handler := handlerFor(t, provider, "draw_stroke")

	points := []any{map[string]any{"x": 0.0, "y": 0.0, "z": 0.0}}
	for _, color := range []any{
		[]any{1.0, 0.0},
		[]any{1.0, 0.0, 2.0},
		[]any{"r", "g", "b"},
		"red",
	} {
		_, err := handler(map[string]any{"layer_name": "Sketch", "color": color, "points": points})
		if err == nil {
			t.Errorf("color %v should fault", color)
		}
	}
}

func TestDrawStrokeRejectsBadPoints(t *testing.T) {
	provider, _ := newProvider(t)
	handler := handlerFor(t, provider, "draw_stroke")

	color := []any{1.0, 1.0, 1.0, 1.0}
	for _, points := range []any{
		[]any{},
		[]any{"not a point"},
		[]any{map[string]any{"x": 0.0, "y": 0.0}},
		[]any{map[string]any{"x": "zero", "y": 0.0, "z": 0.0}},
	} {
		_, err := handler(map[string]any{"layer_name": "Sketch", "color": color, "points": points})
		if err == nil {
			t.Errorf("points %v should fault", points)
		}
	}
}

func TestDrawCircleDefaultSegments(t *testing.T) {
	provider, engine := newProvider(t)
	handler := handlerFor(t, provider, "draw_circle")

	data, err := handler(map[string]any{
		"layer_name":  "TestCircleLayer",
		"color":       []any{0.0, 0.0, 1.0, 1.0},
		"radius":      2.5,
		"center":      []any{0.0, 0.0, 0.0},
		"clear_layer": true,
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	message, _ := data["message"].(string)
	if !strings.Contains(message, "Stroke with 65 points drawn") {
		t.Fatalf("unexpected message %q", message)
	}

	strokes := engine.Strokes()
	points := strokes[0].Points
	if len(points) != 65 {
		t.Fatalf("expected 65 points, got %d", len(points))
	}
	first, last := points[0], points[len(points)-1]
	if math.Abs(first.X-last.X) > 1e-9 || math.Abs(first.Z-last.Z) > 1e-9 {
		t.Fatalf("circle does not close: first=%v last=%v", first, last)
	}
	for i, p := range points {
		r := math.Hypot(p.X, p.Z)
		if math.Abs(r-2.5) > 1e-9 {
			t.Fatalf("point %d off radius: %v (r=%v)", i, p, r)
		}
		if p.Y != 0 {
			t.Fatalf("point %d left the X-Z plane: %v", i, p)
		}
	}
}

func TestDrawCircleCustomSegmentsAndCenter(t *testing.T) {
	provider, engine := newProvider(t)
	handler := handlerFor(t, provider, "draw_circle")

	_, err := handler(map[string]any{
		"layer_name": "Circles",
		"color":      []any{1.0, 1.0, 1.0},
		"radius":     1.0,
		"center":     []any{10.0, 2.0, -5.0},
		"segments":   8.0,
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	points := engine.Strokes()[0].Points
	if len(points) != 9 {
		t.Fatalf("expected 9 points, got %d", len(points))
	}
	for i, p := range points {
		if p.Y != 2.0 {
			t.Fatalf("point %d not at center Y: %v", i, p)
		}
		r := math.Hypot(p.X-10.0, p.Z+5.0)
		if math.Abs(r-1.0) > 1e-9 {
			t.Fatalf("point %d off radius around center: %v", i, p)
		}
	}
}

func TestDrawCircleRejectsBadGeometry(t *testing.T) {
	provider, _ := newProvider(t)
	handler := handlerFor(t, provider, "draw_circle")

	base := map[string]any{
		"layer_name": "Circles",
		"color":      []any{1.0, 1.0, 1.0},
		"radius":     1.0,
	}
	clone := func(overrides map[string]any) map[string]any {
		payload := make(map[string]any, len(base)+len(overrides))
		for k, v := range base {
			payload[k] = v
		}
		for k, v := range overrides {
			payload[k] = v
		}
		return payload
	}

	if _, err := handler(clone(map[string]any{"radius": -1.0})); err == nil {
		t.Errorf("negative radius should fault")
	}
	if _, err := handler(clone(map[string]any{"segments": 2.0})); err == nil {
		t.Errorf("segments below 3 should fault")
	}
	if _, err := handler(clone(map[string]any{"center": []any{1.0, 2.0}})); err == nil {
		t.Errorf("short center should fault")
	}
	if _, err := handler(map[string]any{"layer_name": "Circles"}); err == nil {
		t.Errorf("missing color and radius should fault")
	}
}
