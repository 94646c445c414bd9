package scene

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrEmptyLayerName = errors.New("layer name is empty")
	ErrEmptyStroke    = errors.New("stroke has no points")
)

// Point is a 3D stroke point.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Color is an RGBA color with components in [0, 1].
type Color [4]float64

// Stroke is an ordered run of points drawn in a single color.
type Stroke struct {
	Color  Color
	Points []Point
}

// Layer groups strokes under a name. Each layer is backed by one scene
// object of the same name.
type Layer struct {
	Name    string
	Strokes []Stroke
}

// Info is the summary returned by the scene inspection command.
type Info struct {
	Name            string
	ObjectCount     int
	ActiveObject    string
	SelectedObjects []string
	Mode            string
}

// Context is the window/screen summary returned by the context command.
type Context struct {
	WindowType string
	ScreenName string
	Mode       string
}

// Engine is the mutable scene model. All methods are safe for concurrent
// use.
type Engine struct {
	mu sync.RWMutex

	name        string
	hostVersion string
	windowType  string
	screenName  string
	mode        string

	layers   map[string]*Layer
	active   string
	selected []string
}

func NewEngine(name, hostVersion string) *Engine {
	if name == "" {
		name = "Scene"
	}
	return &Engine{
		name:        name,
		hostVersion: hostVersion,
		windowType:  "VIEW_3D",
		screenName:  "Layout",
		mode:        "OBJECT",
		layers:      make(map[string]*Layer),
	}
}

// DrawStroke appends a stroke to the named layer, creating the layer and
// its backing object on first use. The new object becomes active and the
// sole selection. Returns the point count of the stroke.
func (e *Engine) DrawStroke(layerName string, color Color, points []Point, clearLayer bool) (int, error) {
	if layerName == "" {
		return 0, ErrEmptyLayerName
	}
	if len(points) == 0 {
		return 0, ErrEmptyStroke
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	layer, ok := e.layers[layerName]
	if !ok {
		layer = &Layer{Name: layerName}
		e.layers[layerName] = layer
	}
	if clearLayer {
		layer.Strokes = layer.Strokes[:0]
	}
	stroke := Stroke{Color: color, Points: make([]Point, len(points))}
	copy(stroke.Points, points)
	layer.Strokes = append(layer.Strokes, stroke)

	e.active = layerName
	e.selected = []string{layerName}
	return len(stroke.Points), nil
}

// ClearLayer drops every stroke from the named layer. Unknown layers are
// a no-op.
func (e *Engine) ClearLayer(layerName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if layer, ok := e.layers[layerName]; ok {
		layer.Strokes = layer.Strokes[:0]
	}
}

func (e *Engine) Info() Info {
	e.mu.RLock()
	defer e.mu.RUnlock()
	selected := make([]string, len(e.selected))
	copy(selected, e.selected)
	return Info{
		Name:            e.name,
		ObjectCount:     len(e.layers),
		ActiveObject:    e.active,
		SelectedObjects: selected,
		Mode:            e.mode,
	}
}

func (e *Engine) HostVersion() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.hostVersion
}

func (e *Engine) Context() Context {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Context{
		WindowType: e.windowType,
		ScreenName: e.screenName,
		Mode:       e.mode,
	}
}

// SetMode switches the interaction mode reported by Info and Context.
func (e *Engine) SetMode(mode string) error {
	if mode == "" {
		return fmt.Errorf("mode is empty")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
	return nil
}

// Strokes returns a deep copy of every stroke across all layers, ordered
// by layer name. Callers may mutate the result freely.
func (e *Engine) Strokes() []Stroke {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.layers))
	for name := range e.layers {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Stroke
	for _, name := range names {
		for _, stroke := range e.layers[name].Strokes {
			cp := Stroke{Color: stroke.Color, Points: make([]Point, len(stroke.Points))}
			copy(cp.Points, stroke.Points)
			out = append(out, cp)
		}
	}
	return out
}

// LayerSummary is the per-layer view exposed by Snapshot.
type LayerSummary struct {
	Name        string `json:"name"`
	StrokeCount int    `json:"stroke_count"`
	PointCount  int    `json:"point_count"`
}

// Snapshot is the read-only scene view served by the status API.
type Snapshot struct {
	Name         string         `json:"name"`
	HostVersion  string         `json:"host_version"`
	Mode         string         `json:"mode"`
	ActiveObject string         `json:"active_object"`
	Layers       []LayerSummary `json:"layers"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	layers := make([]LayerSummary, 0, len(e.layers))
	for name, layer := range e.layers {
		summary := LayerSummary{Name: name, StrokeCount: len(layer.Strokes)}
		for _, stroke := range layer.Strokes {
			summary.PointCount += len(stroke.Points)
		}
		layers = append(layers, summary)
	}
	sort.Slice(layers, func(i, j int) bool { return layers[i].Name < layers[j].Name })

	return Snapshot{
		Name:         e.name,
		HostVersion:  e.hostVersion,
		Mode:         e.mode,
		ActiveObject: e.active,
		Layers:       layers,
	}
}
