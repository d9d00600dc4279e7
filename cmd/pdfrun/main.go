package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/pdf-runtime/avail"
	"github.com/wippyai/pdf-runtime/document"
	"github.com/wippyai/pdf-runtime/engine"
	"github.com/wippyai/pdf-runtime/render"
	"github.com/wippyai/pdf-runtime/resource"
	"github.com/wippyai/pdf-runtime/source"
)

func main() {
	var (
		configFile  = flag.String("config", "", "YAML config file")
		input       = flag.String("input", "", "Document path or http(s) URL")
		engineName  = flag.String("engine", engineSim, "Engine: \"sim\" or path to an engine wasm module")
		password    = flag.String("password", "", "Document password")
		page        = flag.Int("page", 0, "Page index to inspect and render")
		scale       = flag.Float64("scale", 1, "Render scale (pixels per point)")
		pauseEvery  = flag.Int("pause-every", 1, "Pause progressive rendering every N checks (0 = never)")
		renderFlags = flag.String("flags", "", "Render flags (annot,lcd,no-native,grayscale,rgba,printing)")
		report      = flag.String("report", "-", "JSON report path (- for stdout)")
		thumbnail   = flag.String("thumbnail", "", "Write a PNG thumbnail of the rendered page")
		chunk       = flag.Int64("chunk", source.DefaultChunkSize, "HTTP range request alignment in bytes")
		timeout     = flag.Duration("timeout", 30*time.Second, "Overall timeout")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose logging to stderr")
	)
	flag.Parse()

	cfg := defaultConfig()
	if *configFile != "" {
		loaded, err := loadConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.Input = *input
		case "engine":
			cfg.Engine = *engineName
		case "password":
			cfg.Password = *password
		case "page":
			cfg.Page = *page
		case "scale":
			cfg.Scale = *scale
		case "pause-every":
			cfg.PauseEvery = *pauseEvery
		case "flags":
			cfg.Flags = splitList(*renderFlags)
		case "report":
			cfg.Report = *report
		case "thumbnail":
			cfg.Thumbnail = *thumbnail
		case "chunk":
			cfg.ChunkSize = *chunk
		case "timeout":
			cfg.Timeout = *timeout
		}
	})
	if cfg.Input == "" && flag.NArg() > 0 {
		cfg.Input = flag.Arg(0)
	}

	if cfg.Input == "" {
		fmt.Fprintln(os.Stderr, "Usage: pdfrun [-engine sim|engine.wasm] [-page n] [-thumbnail out.png] <file.pdf|url>")
		fmt.Fprintln(os.Stderr, "       pdfrun -config run.yaml")
		fmt.Fprintln(os.Stderr, "       pdfrun -i <file.pdf|url>  (interactive mode)")
		os.Exit(1)
	}
	if err := cfg.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()
		setLoggers(log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		rep *Report
		err error
	)
	if *interactive && term.IsTerminal(int(os.Stdout.Fd())) {
		rep, err = runInteractive(ctx, cfg)
	} else {
		if *interactive {
			fmt.Fprintln(os.Stderr, "stdout is not a terminal; running without TUI")
		}
		rep, err = run(ctx, cfg, nil)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := writeReport(cfg.Report, rep); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setLoggers(log *zap.Logger) {
	resource.SetLogger(log.Named("resource"))
	document.SetLogger(log.Named("document"))
	avail.SetLogger(log.Named("avail"))
	source.SetLogger(log.Named("source"))
	render.SetLogger(log.Named("render"))
	engine.SetLogger(log.Named("engine"))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
