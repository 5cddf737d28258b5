package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/AnishMulay/memscope/internal/executor"
	"github.com/AnishMulay/memscope/internal/log_service"
	"github.com/AnishMulay/memscope/internal/log_service/slogger"
	"github.com/AnishMulay/memscope/internal/simulation_service"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	fileSize := flag.Int("file-size", executor.DefaultFileSize, "Simulated file size in bytes")
	flag.Parse()

	// stdout carries the MCP protocol, so logs go to stderr.
	ls := slogger.NewSlogLogService(slogger.Options{NodeID: "memscope-mcp", Level: "WARN", Writer: os.Stderr})
	sim := simulation_service.NewDefaultSimulationService(*fileSize, ls)

	s := server.NewMCPServer(
		"memscope",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	addTools(s, sim, ls)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func addTools(s *server.MCPServer, sim simulation_service.SimulationService, ls log_service.LogService) {
	traceTool := mcp.NewTool("trace_file_ops",
		mcp.WithDescription("Trace the fseek/fread/fwrite operations of a C snippet over a simulated struct file"),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("C source using fseek, fread, fwrite, typedef struct and sizeof"),
		),
	)
	s.AddTool(traceTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleTrace(ctx, request, sim, ls)
	})

	layoutTool := mcp.NewTool("memory_layout",
		mcp.WithDescription("Describe the simulated file layout before any code runs"),
	)
	s.AddTool(layoutTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(describeSnapshot(sim.Reset())), nil
	})
}

func handleTrace(_ context.Context, request mcp.CallToolRequest, sim simulation_service.SimulationService, ls log_service.LogService) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	trace := sim.Run(code)
	ls.Info(log_service.LogEvent{
		Message:  "Traced code for MCP client",
		Metadata: map[string]any{"runID": trace.RunID, "steps": trace.TotalSteps()},
	})
	return mcp.NewToolResultText(formatTrace(trace)), nil
}

func formatTrace(trace simulation_service.Trace) string {
	var b strings.Builder
	if trace.TotalSteps() == 0 {
		b.WriteString("No file operations recognised.\n")
	}
	for _, step := range trace.Steps {
		op := step.Operation
		fmt.Fprintf(&b, "%d. %s [struct %d, byte %d]\n", step.Index+1, op.Description, op.StructIndex, op.ByteOffset)
	}
	final := trace.Initial
	if n := trace.TotalSteps(); n > 0 {
		final = trace.Steps[n-1].Snapshot
	}
	b.WriteString(describeSnapshot(final))
	return b.String()
}

func describeSnapshot(snap executor.MemorySnapshot) string {
	return fmt.Sprintf("File: %d bytes of %s records (%d bytes each, %d rows); file pointer at %d.\n",
		snap.FileSize, snap.StructType, snap.StructSize, len(snap.Data), snap.FilePointer)
}
