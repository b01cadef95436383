// oxy-glb converts glTF assets between the loose multi-file form and single
// self-contained GLB files, and prints the chunk layout of GLB containers.
//
// Usage:
//
//	oxy-glb pack   [flags] <input.gltf> <output.glb>
//	oxy-glb pack   [flags] --out-dir <dir> <input.gltf>...
//	oxy-glb unpack [flags] <input.glb> <output-dir>
//	oxy-glb unpack [flags] --out-dir <dir> <input.glb>...
//	oxy-glb inspect <input.glb>
//
// Configuration comes from the file named by --config or OXYGLB_CONFIG; flags
// override it. With --out-dir every input is processed as its own task on a
// bounded worker pool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/Carmen-Shannon/oxy-glb/engine/config"
	"github.com/Carmen-Shannon/oxy-glb/engine/loader"
	"github.com/Carmen-Shannon/oxy-glb/engine/profiler"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var usage *usageError
		if errors.As(err, &usage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// options holds the parsed command line.
type options struct {
	command string
	args    []string

	configPath string
	outDir     string
	logLevel   string
	workers    int
	compress   bool
	overwrite  bool
	profile    bool
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, flagSet, err := parseArgs(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stderr, flagSet)
			return nil
		}
		return err
	}

	cfg, err := loadConfig(opts, flagSet)
	if err != nil {
		return err
	}
	logger := cfg.Logger(stderr)

	var prof *profiler.Profiler
	if cfg.Output.Profile {
		prof = profiler.NewProfiler(logger)
		defer prof.Report()
	}

	l := loader.NewLoader(
		loader.WithConfig(cfg),
		loader.WithLogger(logger),
		loader.WithProfiler(prof),
	)
	c := &commander{
		loader: l,
		cfg:    cfg,
		logger: logger,
		stdout: stdout,
	}

	switch opts.command {
	case "pack":
		return c.pack(opts)
	case "unpack":
		return c.unpack(opts)
	case "inspect":
		return c.inspect(opts)
	default:
		return usagef("unknown command %q", opts.command)
	}
}

func parseArgs(args []string) (*options, *pflag.FlagSet, error) {
	opts := &options{}

	flagSet := pflag.NewFlagSet("oxy-glb", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&opts.configPath, "config", "", "path to the YAML config file (default: $"+config.EnvVar+")")
	flagSet.StringVarP(&opts.outDir, "out-dir", "o", "", "process every input into this directory on the worker pool")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	flagSet.IntVarP(&opts.workers, "workers", "j", 0, "override the configured number of parallel tasks")
	flagSet.BoolVar(&opts.compress, "compress", false, "zstd-compress packed output")
	flagSet.BoolVar(&opts.overwrite, "overwrite", false, "replace existing output files")
	flagSet.BoolVar(&opts.profile, "profile", false, "log per-stage timing and allocation statistics")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, flagSet, err
		}
		return nil, flagSet, usagef("%v", err)
	}
	if help, _ := flagSet.GetBool("help"); help {
		return nil, flagSet, pflag.ErrHelp
	}

	positional := flagSet.Args()
	if len(positional) == 0 {
		return nil, flagSet, usagef("missing command: expected pack, unpack or inspect")
	}
	opts.command = positional[0]
	opts.args = positional[1:]
	return opts, flagSet, nil
}

// loadConfig loads the config file and applies the flags that were set explicitly.
func loadConfig(opts *options, flagSet *pflag.FlagSet) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if flagSet.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if flagSet.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flagSet.Changed("compress") {
		cfg.Output.Compress = opts.compress
	}
	if flagSet.Changed("overwrite") {
		cfg.Output.Overwrite = opts.overwrite
	}
	if flagSet.Changed("profile") {
		cfg.Output.Profile = opts.profile
	}

	if err := cfg.Validate(); err != nil {
		return nil, usagef("%v", err)
	}
	return cfg, nil
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `oxy-glb converts glTF assets between loose files and self-contained GLB.

Usage:
  oxy-glb pack   [flags] <input.gltf> <output.glb>
  oxy-glb pack   [flags] --out-dir <dir> <input.gltf>...
  oxy-glb unpack [flags] <input.glb> <output-dir>
  oxy-glb unpack [flags] --out-dir <dir> <input.glb>...
  oxy-glb inspect <input.glb>

Flags:
`)
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}
