package viewer

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AnishMulay/memscope/internal/communication"
	grpccomm "github.com/AnishMulay/memscope/internal/communication/grpc"
	httpcomm "github.com/AnishMulay/memscope/internal/communication/http"
	"github.com/AnishMulay/memscope/internal/config"
	"github.com/AnishMulay/memscope/internal/log_service"
	"github.com/AnishMulay/memscope/internal/log_service/localdisc"
	"github.com/AnishMulay/memscope/internal/log_service/slogger"
	"github.com/AnishMulay/memscope/internal/server"
	"github.com/AnishMulay/memscope/internal/simulation_service"
	"github.com/AnishMulay/memscope/internal/viewer_registry"
)

type Options struct {
	Config *config.Config
	// Journal forwards console logs to the systemd journal when available.
	Journal bool
}

type runnable interface {
	Run() error
}

type viewerServer struct {
	server  *server.DefaultServer
	closers []func() error
}

func (s *viewerServer) Run() error {
	if err := s.server.Start(); err != nil {
		s.close()
		return err
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	err := s.server.Stop()
	s.close()
	return err
}

func (s *viewerServer) close() {
	for _, fn := range s.closers {
		_ = fn()
	}
}

func Build(opts Options) (runnable, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stepDelay, _ := cfg.StepDelayDuration()

	ls, closers, err := buildLogService(cfg, opts.Journal)
	if err != nil {
		return nil, err
	}

	comms := []communication.Communicator{
		httpcomm.NewHTTPCommunicator(cfg.Listen, ls),
	}
	if cfg.GRPCListen != "" {
		comms = append(comms, grpccomm.NewGRPCCommunicator(cfg.GRPCListen, ls))
	}

	srv := server.NewDefaultServer(
		comms,
		simulation_service.NewDefaultSimulationService(cfg.FileSize, ls),
		viewer_registry.NewInMemoryViewerRegistry(ls),
		ls,
		stepDelay,
	)
	return &viewerServer{server: srv, closers: closers}, nil
}

func buildLogService(cfg *config.Config, journal bool) (log_service.LogService, []func() error, error) {
	console := slogger.NewSlogLogService(slogger.Options{
		NodeID:  cfg.NodeID,
		Level:   cfg.LogLevel,
		Writer:  os.Stderr,
		Journal: journal,
	})
	if cfg.LogDir == "" {
		return console, nil, nil
	}

	file, err := localdisc.NewLocalDiscLogService(cfg.LogDir, cfg.NodeID, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("build log service: %w", err)
	}
	file.Info(log_service.LogEvent{
		Timestamp: time.Now().UTC(),
		Message:   "Log service ready",
		Metadata:  map[string]any{"listen": cfg.Listen, "grpcListen": cfg.GRPCListen},
	})
	return log_service.NewMultiLogService(console, file), []func() error{file.Close}, nil
}
