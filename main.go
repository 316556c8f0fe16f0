// Command kerf turns a job script into a G-code program.
//
// Usage:
//
//	kerf [options] <job.kerf>
//
// The script may be "-" to read standard input. Settings the script does
// not define come from the configuration file given with --config.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/chazu/kerf/pkg/config"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel/sdfx"
	"github.com/chazu/kerf/pkg/logging"
)

type mainOptions struct {
	Output     string
	Config     string
	DXF        string
	Timeout    time.Duration
	Verbose    bool
	DumpConfig bool
}

func main() {
	var options mainOptions

	flag.StringVarP(&options.Output, "output", "o", "-", "G-code output file, - for standard output")
	flag.StringVarP(&options.Config, "config", "c", "", "TOML configuration file")
	flag.StringVar(&options.DXF, "dxf", "", "also write the toolpaths to this DXF file")
	flag.DurationVar(&options.Timeout, "timeout", 0, "give up planning after this long (0 for no limit)")
	flag.BoolVarP(&options.Verbose, "verbose", "v", false, "log progress to standard error")
	flag.BoolVar(&options.DumpConfig, "dump-config", false, "print the effective configuration and exit")
	flag.SetInterspersed(true)
	flag.Parse()

	level := slog.LevelWarn
	if options.Verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := loadConfig(options.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	if options.DumpConfig {
		if err := cfg.Write(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if len(flag.Args()) != 1 {
		fmt.Fprintf(os.Stderr, "Usage:\n    %s [options] <job.kerf>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := execute(&options, cfg, flag.Args()[0]); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func readSource(name string) (string, error) {
	if name == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(name)
	return string(b), err
}

func execute(options *mainOptions, cfg *config.Config, script string) error {
	source, err := readSource(script)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	result := NewApp(cfg).Evaluate(ctx, source)
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "%s: warning: %s\n", script, formatMessage(w))
	}
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "%s: %s\n", script, formatMessage(e))
		}
		return errors.New("no program generated")
	}

	log := logging.Logger()
	for _, op := range result.Operations {
		log.Info("operation", "name", op.Name, "kind", op.Kind, "tool", op.Tool, "toolpaths", op.Toolpaths)
	}

	if err := writeOutput(options.Output, result.GCode); err != nil {
		return err
	}
	if options.DXF != "" {
		var paths []geom.Path
		for _, op := range result.Operations {
			paths = append(paths, op.Paths...)
		}
		if err := sdfx.WriteDXF(options.DXF, paths, result.Settings); err != nil {
			return err
		}
	}
	return nil
}

func formatMessage(m Message) string {
	if m.Line > 0 {
		return fmt.Sprintf("line %d: %s", m.Line, m.Message)
	}
	return m.Message
}

func writeOutput(name, program string) error {
	if name == "-" {
		_, err := io.WriteString(os.Stdout, program)
		return err
	}
	return os.WriteFile(name, []byte(program), 0o644)
}
