package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/bridgectl/internal/client"
	"github.com/danmuck/bridgectl/internal/config"
	"github.com/danmuck/bridgectl/internal/logging"
)

const usageText = `usage: bridgectl [flags] <command> [command flags]

commands:
  exec <code>     execute a script on the host and print its output
  scene           print the scene summary
  info            print the host version
  context         print the active window/screen context
  stroke          draw a stroke (see: bridgectl stroke -h)
  circle          draw a circle (see: bridgectl circle -h)
  render          render the scene to an image (see: bridgectl render -h)
  send            send a raw named command with a JSON payload

flags:
`

func main() {
	logging.ConfigureRuntime()

	configPath := flag.String("config", "", "path to client config TOML")
	addr := flag.String("addr", "", "endpoint address (overrides config)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := resolveConfig(*configPath, *addr)
	if err != nil {
		fatal(err)
	}

	c := client.New(cfg)
	defer c.Disconnect()
	tools := client.NewTools(c)

	data, err := runCommand(tools, args[0], args[1:])
	if err != nil {
		fatal(err)
	}
	printData(data)
}

func resolveConfig(configPath, addr string) (client.Config, error) {
	cfg := client.DefaultConfig()
	if configPath != "" {
		fileCfg, err := config.LoadClientConfig(configPath)
		if err != nil {
			return client.Config{}, err
		}
		cfg.Address = fileCfg.Addr
		if fileCfg.MaxConnectAttempts > 0 {
			cfg.MaxConnectAttempts = fileCfg.MaxConnectAttempts
		}
		if fileCfg.RetryDelaySeconds > 0 {
			cfg.RetryDelay = time.Duration(fileCfg.RetryDelaySeconds * float64(time.Second))
		}
		if fileCfg.TimeoutSeconds > 0 {
			timeout := time.Duration(fileCfg.TimeoutSeconds * float64(time.Second))
			cfg.DialTimeout = timeout
			cfg.ReadTimeout = timeout
			cfg.WriteTimeout = timeout
		}
	}
	if addr != "" {
		cfg.Address = addr
	}
	return cfg, nil
}

func runCommand(tools *client.Tools, command string, args []string) (map[string]any, error) {
	switch command {
	case "exec":
		if len(args) == 0 {
			return nil, fmt.Errorf("exec requires a code argument")
		}
		return tools.ExecuteCode(strings.Join(args, " "))
	case "scene":
		return tools.GetSceneInfo()
	case "info":
		return tools.GetHostInfo()
	case "context":
		return tools.GetHostContext()
	case "stroke":
		return runStroke(tools, args)
	case "circle":
		return runCircle(tools, args)
	case "render":
		return runRender(tools, args)
	case "send":
		return runSend(tools, args)
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

func runStroke(tools *client.Tools, args []string) (map[string]any, error) {
	fs := flag.NewFlagSet("stroke", flag.ContinueOnError)
	layer := fs.String("layer", "", "target layer name")
	colorSpec := fs.String("color", "1,1,1,1", "stroke color r,g,b[,a] in [0,1]")
	pointsSpec := fs.String("points", "", "semicolon-separated x,y,z points")
	clear := fs.Bool("clear", false, "clear the layer before drawing")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	color, err := parseColor(*colorSpec)
	if err != nil {
		return nil, err
	}
	points, err := parsePoints(*pointsSpec)
	if err != nil {
		return nil, err
	}
	return tools.DrawStroke(*layer, color, points, *clear)
}

func runCircle(tools *client.Tools, args []string) (map[string]any, error) {
	fs := flag.NewFlagSet("circle", flag.ContinueOnError)
	layer := fs.String("layer", "", "target layer name")
	colorSpec := fs.String("color", "1,1,1,1", "stroke color r,g,b[,a] in [0,1]")
	radius := fs.Float64("radius", 1.0, "circle radius")
	centerSpec := fs.String("center", "0,0,0", "circle center x,y,z")
	segments := fs.Int("segments", 0, "segment count (0 keeps the host default)")
	clear := fs.Bool("clear", false, "clear the layer before drawing")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	color, err := parseColor(*colorSpec)
	if err != nil {
		return nil, err
	}
	center, err := parseVec3(*centerSpec)
	if err != nil {
		return nil, err
	}
	return tools.DrawCircle(*layer, color, *radius, center, *segments, *clear)
}

func runRender(tools *client.Tools, args []string) (map[string]any, error) {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	out := fs.String("out", "", "output path (empty picks a temp file)")
	x := fs.Int("x", 0, "horizontal resolution (0 keeps the host default)")
	y := fs.Int("y", 0, "vertical resolution (0 keeps the host default)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return tools.RenderImage(*out, *x, *y)
}

func runSend(tools *client.Tools, args []string) (map[string]any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("send requires a command name")
	}
	var payload map[string]any
	if len(args) > 1 {
		if err := json.Unmarshal([]byte(args[1]), &payload); err != nil {
			return nil, fmt.Errorf("parse payload: %w", err)
		}
	}
	return tools.Send(args[0], payload)
}

func parseColor(spec string) ([]float64, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return nil, fmt.Errorf("color %q must have 3 or 4 components", spec)
	}
	out := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("color component %q: %w", part, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseVec3(spec string) ([3]float64, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 3 {
		return [3]float64{}, fmt.Errorf("vector %q must have 3 components", spec)
	}
	var out [3]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return [3]float64{}, fmt.Errorf("vector component %q: %w", part, err)
		}
		out[i] = v
	}
	return out, nil
}

func parsePoints(spec string) ([][3]float64, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, fmt.Errorf("points must not be empty")
	}
	groups := strings.Split(spec, ";")
	out := make([][3]float64, 0, len(groups))
	for _, group := range groups {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		vec, err := parseVec3(group)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", group, err)
		}
		out = append(out, vec)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("points must not be empty")
	}
	return out, nil
}

func printData(data map[string]any) {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(encoded))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "bridgectl: %v\n", err)
	os.Exit(1)
}
