package main

import (
	"flag"
	"log"

	"github.com/AnishMulay/memscope/internal/config"
	"github.com/AnishMulay/memscope/servers/viewer"
)

func main() {
	var (
		configPath = flag.String("config", "./data/memscope.yaml", "Path to the YAML config file")
		listen     = flag.String("listen", "", "Websocket/HTTP listen address (overrides config)")
		grpcListen = flag.String("grpc-listen", "", "gRPC listen address (overrides config)")
		stepDelay  = flag.String("step-delay", "", "Delay between streamed steps, e.g. 500ms (overrides config)")
		journal    = flag.Bool("journal", false, "Also log to the systemd journal")
	)
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *grpcListen != "" {
		cfg.GRPCListen = *grpcListen
	}
	if *stepDelay != "" {
		cfg.StepDelay = *stepDelay
	}

	server, err := viewer.Build(viewer.Options{Config: cfg, Journal: *journal})
	if err != nil {
		log.Fatalf("Failed to build server: %v", err)
	}
	if err := server.Run(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
