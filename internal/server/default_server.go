package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AnishMulay/memscope/internal/communication"
	"github.com/AnishMulay/memscope/internal/log_service"
	"github.com/AnishMulay/memscope/internal/simulation_service"
	"github.com/AnishMulay/memscope/internal/viewer_registry"
)

type actionHandler func(ctx context.Context, sess communication.Session, msg communication.Message) error

// playback is a viewer's most recent trace and how far "step" has walked it.
type playback struct {
	trace  simulation_service.Trace
	cursor int
}

type DefaultServer struct {
	comms     []communication.Communicator
	sim       simulation_service.SimulationService
	registry  viewer_registry.ViewerRegistry
	ls        log_service.LogService
	stepDelay time.Duration

	handlers map[string]actionHandler

	mu        sync.Mutex
	playbacks map[string]*playback
	started   []communication.Communicator
}

func NewDefaultServer(
	comms []communication.Communicator,
	sim simulation_service.SimulationService,
	registry viewer_registry.ViewerRegistry,
	ls log_service.LogService,
	stepDelay time.Duration,
) *DefaultServer {
	s := &DefaultServer{
		comms:     comms,
		sim:       sim,
		registry:  registry,
		ls:        ls,
		stepDelay: stepDelay,
		playbacks: make(map[string]*playback),
	}
	s.handlers = map[string]actionHandler{
		communication.ActionExecute:               s.handleExecute,
		communication.ActionReset:                 s.handleReset,
		communication.ActionStep:                  s.handleStep,
		communication.MessageTypeViewerConnect:    s.handleConnect,
		communication.MessageTypeViewerDisconnect: s.handleDisconnect,
	}
	return s
}

func (s *DefaultServer) Start() error {
	for _, comm := range s.comms {
		if err := comm.Start(s.HandleMessage); err != nil {
			s.ls.Error(log_service.LogEvent{
				Message:  "Failed to start communicator",
				Metadata: map[string]any{"address": comm.Address(), "error": err.Error()},
			})
			_ = s.Stop()
			return fmt.Errorf("%w: %w", ErrServerStartFailed, err)
		}
		s.mu.Lock()
		s.started = append(s.started, comm)
		s.mu.Unlock()
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "Server started",
		Metadata: map[string]any{"communicators": len(s.comms), "stepDelay": s.stepDelay.String()},
	})
	return nil
}

func (s *DefaultServer) Stop() error {
	s.mu.Lock()
	started := s.started
	s.started = nil
	s.mu.Unlock()

	var errs []error
	for _, comm := range started {
		if err := comm.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrServerStopFailed, errors.Join(errs...))
	}

	s.ls.Info(log_service.LogEvent{Message: "Server stopped"})
	return nil
}

// HandleMessage is the MessageHandler every communicator is started with.
// Protocol problems are reported to the viewer as execution:error events; an
// error is only returned when the session itself can no longer be written to.
func (s *DefaultServer) HandleMessage(ctx context.Context, sess communication.Session, msg communication.Message) error {
	s.ls.Debug(log_service.LogEvent{
		Message:  "Received message",
		Metadata: map[string]any{"type": msg.Type, "viewerID": sess.ID(), "transport": sess.Transport()},
	})

	handler, ok := s.handlers[msg.Type]
	if !ok {
		s.ls.Warn(log_service.LogEvent{
			Message:  "Unhandled message type",
			Metadata: map[string]any{"type": msg.Type, "viewerID": sess.ID()},
		})
		return s.sendError(ctx, sess, fmt.Errorf("%w: %q", ErrUnknownAction, msg.Type))
	}
	return handler(ctx, sess, msg)
}

func (s *DefaultServer) handleConnect(_ context.Context, sess communication.Session, _ communication.Message) error {
	err := s.registry.RegisterViewer(viewer_registry.Viewer{
		ID:         sess.ID(),
		RemoteAddr: sess.RemoteAddr(),
		Transport:  sess.Transport(),
	})
	if err != nil && !errors.Is(err, viewer_registry.ErrViewerAlreadyExists) {
		s.ls.Warn(log_service.LogEvent{
			Message:  "Failed to register viewer",
			Metadata: map[string]any{"viewerID": sess.ID(), "error": err.Error()},
		})
	}
	return nil
}

func (s *DefaultServer) handleDisconnect(_ context.Context, sess communication.Session, _ communication.Message) error {
	s.mu.Lock()
	delete(s.playbacks, sess.ID())
	s.mu.Unlock()

	if err := s.registry.DeregisterViewer(sess.ID()); err != nil {
		s.ls.Debug(log_service.LogEvent{
			Message:  "Disconnect for unknown viewer",
			Metadata: map[string]any{"viewerID": sess.ID(), "error": err.Error()},
		})
	}
	return nil
}

func (s *DefaultServer) handleExecute(ctx context.Context, sess communication.Session, msg communication.Message) error {
	req, ok := msg.Payload.(communication.ExecuteRequest)
	if !ok {
		return s.sendError(ctx, sess, ErrInvalidPayloadType)
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "Executing code",
		Metadata: map[string]any{"viewerID": sess.ID(), "chars": len(req.Code)},
	})

	trace := s.sim.Run(req.Code)
	s.mu.Lock()
	s.playbacks[sess.ID()] = &playback{trace: trace}
	s.mu.Unlock()

	if err := sess.Send(ctx, communication.MemoryUpdateEvent(trace.Initial)); err != nil {
		return err
	}
	for _, step := range trace.Steps {
		if sess.Streaming() {
			if err := s.pace(ctx); err != nil {
				s.ls.Info(log_service.LogEvent{
					Message:  "Execution cancelled",
					Metadata: map[string]any{"viewerID": sess.ID(), "runID": trace.RunID, "step": step.Index},
				})
				return err
			}
		}
		if err := sess.Send(ctx, communication.StepEvent(step)); err != nil {
			return err
		}
	}
	return sess.Send(ctx, communication.CompleteEvent(trace.RunID, trace.TotalSteps()))
}

func (s *DefaultServer) handleReset(ctx context.Context, sess communication.Session, _ communication.Message) error {
	s.mu.Lock()
	delete(s.playbacks, sess.ID())
	s.mu.Unlock()

	return sess.Send(ctx, communication.MemoryUpdateEvent(s.sim.Reset()))
}

// handleStep walks the viewer's last trace one operation per call and
// reports completion once every step has been sent.
func (s *DefaultServer) handleStep(ctx context.Context, sess communication.Session, _ communication.Message) error {
	s.mu.Lock()
	pb, ok := s.playbacks[sess.ID()]
	var (
		step     simulation_service.Step
		hasStep  bool
		runID    string
		numSteps int
	)
	if ok {
		runID, numSteps = pb.trace.RunID, pb.trace.TotalSteps()
		if pb.cursor < numSteps {
			step, hasStep = pb.trace.Steps[pb.cursor], true
			pb.cursor++
		}
	}
	s.mu.Unlock()

	switch {
	case !ok:
		return sess.Send(ctx, communication.MemoryUpdateEvent(s.sim.Reset()))
	case hasStep:
		return sess.Send(ctx, communication.StepEvent(step))
	default:
		return sess.Send(ctx, communication.CompleteEvent(runID, numSteps))
	}
}

func (s *DefaultServer) pace(ctx context.Context) error {
	if s.stepDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.stepDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *DefaultServer) sendError(ctx context.Context, sess communication.Session, err error) error {
	s.ls.Warn(log_service.LogEvent{
		Message:  "Rejected viewer message",
		Metadata: map[string]any{"viewerID": sess.ID(), "error": err.Error()},
	})
	return sess.Send(ctx, communication.ErrorEvent(err))
}

var _ Server = (*DefaultServer)(nil)
