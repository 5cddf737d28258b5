package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	memlib "github.com/AnishMulay/memscope/clients/library"
	"github.com/AnishMulay/memscope/internal/communication"
	"github.com/k0kubun/pp/v3"
	"github.com/mattn/go-isatty"
)

func main() {
	var (
		addr    = flag.String("addr", "localhost:8765", "Server address (host:port or ws:// URL)")
		file    = flag.String("file", "-", "C source file to execute, - for stdin")
		pretty  = flag.Bool("pretty", false, "Pretty print every event")
		timeout = flag.Duration("timeout", time.Minute, "Overall timeout")
	)
	flag.Parse()

	code, err := readSource(*file)
	if err != nil {
		log.Fatalf("Failed to read source: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := memlib.Dial(ctx, *addr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	printer := pp.New()
	printer.SetColoringEnabled(isatty.IsTerminal(os.Stdout.Fd()))

	total, err := client.Execute(ctx, code, func(e communication.Event) {
		if *pretty {
			printer.Println(e)
			return
		}
		printEvent(e)
	})
	if err != nil {
		log.Fatalf("Execution failed: %v", err)
	}
	fmt.Printf("%d steps\n", total)
}

func printEvent(e communication.Event) {
	switch e.Type {
	case communication.EventMemoryUpdate:
		fmt.Printf("memory: %s, %d bytes, struct %d bytes, pointer at %d\n",
			e.Data.StructType, e.Data.FileSize, e.Data.StructSize, e.Data.FilePointer)
	case communication.EventExecutionStep:
		fmt.Printf("[%d] %s\n", *e.Step, e.Operation.Description)
	case communication.EventExecutionError:
		fmt.Printf("error: %s\n", e.Error)
	}
}

func readSource(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}
