package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/bridgectl/internal/bridge"
	"github.com/danmuck/bridgectl/internal/logging"
	"github.com/danmuck/bridgectl/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "path to bridged config TOML")
	flag.Parse()

	logging.ConfigureRuntime()
	observability.InitLogger("bridged")
	observability.RegisterMetrics()

	cfg := bridge.DefaultServiceConfig()
	if *configPath != "" {
		loaded, err := loadServiceConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bridged: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	svc, err := bridge.NewService(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bridged: %v\n", err)
		os.Exit(1)
	}
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "bridged: %v\n", err)
		os.Exit(1)
	}
}
