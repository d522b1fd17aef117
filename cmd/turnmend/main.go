// Command turnmend is the thin CLI entry point: it loads configuration
// from the environment (and flags), decodes an input transcript, runs the
// core labeling pipeline, and writes the machine and human transcripts. It
// carries no pipeline logic of its own.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/turnmend/turnmend/pkg/localedit"
	"github.com/turnmend/turnmend/pkg/naming"
	"github.com/turnmend/turnmend/pkg/pipeline"
	"github.com/turnmend/turnmend/pkg/render"
	"github.com/turnmend/turnmend/pkg/transcript"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: no .env file found, using system environment variables")
	}

	configPath := flag.String("config", envOr("TURNMEND_CONFIG", ""), "optional YAML config file (overlaid onto defaults; see pipeline.LoadYAMLConfig). Batch/offline alternative to flags/env.")
	inputPath := flag.String("input", "", "path to the source transcript document (required)")
	machineOutPath := flag.String("machine-out", "", "path to write the machine transcript JSON (default: stdout)")
	humanOutPath := flag.String("human-out", "", "path to write the human-readable transcript (default: not written)")
	heuristicsOnly := flag.Bool("heuristics-only", false, "skip Stage 1/2 and emit only the deterministic heuristic relabeling")
	editorTransport := flag.String("editor", envOr("TURNMEND_EDITOR", "http"), "external local-edit transport: http, ws, or mock")
	editorURL := flag.String("editor-url", os.Getenv("TURNMEND_EDITOR_URL"), "local-edit endpoint (HTTP URL or WebSocket host)")
	editorModel := flag.String("editor-model", envOr("TURNMEND_EDITOR_MODEL", "turnmend-editor-v1"), "model name sent to the local-edit transport")
	workerConcurrency := flag.Int("workers", 4, "Stage 1 bounded worker pool size")
	speakerNames := flag.String("speaker-names", "", "optional comma-separated S0=Name,S1=Name list for the post-stage naming pass")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("Error: -input must be set")
	}

	cfg := pipeline.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = pipeline.LoadYAMLConfig(*configPath)
		if err != nil {
			log.Fatalf("Error: loading -config: %v", err)
		}
	}

	// Flags only override what the operator actually set on the command
	// line, so a YAML file's values survive when a flag is left at its
	// zero-value default.
	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	if explicit["heuristics-only"] {
		cfg.HeuristicsOnly = *heuristicsOnly
	}
	if explicit["workers"] {
		cfg.Stage1.WorkerConcurrency = *workerConcurrency
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Error: invalid configuration: %v", err)
	}

	in, err := os.Open(*inputPath)
	if err != nil {
		log.Fatalf("Error: opening input: %v", err)
	}
	tokens, err := transcript.Decode(in)
	in.Close()
	if err != nil {
		log.Fatalf("Error: decoding input: %v", err)
	}

	var editor localedit.Editor
	if !cfg.HeuristicsOnly {
		editor, err = buildEditor(*editorTransport, *editorURL, *editorModel)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
	}
	if closer, ok := editor.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nCancelling in-flight local-edit requests...")
		cancel()
	}()

	started := time.Now()
	result, diag, err := pipeline.Run(ctx, tokens, editor, cfg, nil)
	if err != nil {
		log.Fatalf("Error: pipeline run failed: %v", err)
	}
	fmt.Printf("Pipeline completed in %s (%d tokens, %d changes, %d rejected windows)\n",
		time.Since(started).Round(time.Millisecond), len(result.Tokens), len(result.Changes), len(diag.RejectedWindows))

	resultTokens, resultTurns := result.Tokens, result.Turns
	if *speakerNames != "" {
		namer, err := naming.ParseStaticNamer(*speakerNames)
		if err != nil {
			log.Fatalf("Error: parsing -speaker-names: %v", err)
		}
		resultTokens, resultTurns = naming.Rename(resultTokens, resultTurns, namer)
	}

	doc := transcript.Encode(resultTokens, resultTurns, result.Changes)

	if *machineOutPath == "" {
		if err := transcript.Write(os.Stdout, doc); err != nil {
			log.Fatalf("Error: writing machine transcript: %v", err)
		}
	} else {
		out, err := os.Create(*machineOutPath)
		if err != nil {
			log.Fatalf("Error: creating %s: %v", *machineOutPath, err)
		}
		err = transcript.Write(out, doc)
		out.Close()
		if err != nil {
			log.Fatalf("Error: writing machine transcript: %v", err)
		}
	}

	if *humanOutPath != "" {
		out, err := os.Create(*humanOutPath)
		if err != nil {
			log.Fatalf("Error: creating %s: %v", *humanOutPath, err)
		}
		err = render.Write(out, resultTurns, resultTokens)
		out.Close()
		if err != nil {
			log.Fatalf("Error: writing human transcript: %v", err)
		}
	}
}

func buildEditor(transportName, url, model string) (localedit.Editor, error) {
	switch transportName {
	case "mock":
		return localedit.NewMockEditor(), nil
	case "ws":
		if url == "" {
			return nil, fmt.Errorf("-editor-url (or TURNMEND_EDITOR_URL) must be set for the ws transport")
		}
		return localedit.NewWSEditor(os.Getenv("TURNMEND_EDITOR_API_KEY"), url), nil
	case "http":
		fallthrough
	default:
		if url == "" {
			return nil, fmt.Errorf("-editor-url (or TURNMEND_EDITOR_URL) must be set for the http transport")
		}
		return localedit.NewHTTPEditor(os.Getenv("TURNMEND_EDITOR_API_KEY"), url, model), nil
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
