package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/opencontainers/go-digest"

	"github.com/Carmen-Shannon/oxy-glb/engine/asset"
	"github.com/Carmen-Shannon/oxy-glb/engine/config"
	"github.com/Carmen-Shannon/oxy-glb/engine/container"
	"github.com/Carmen-Shannon/oxy-glb/engine/document"
	"github.com/Carmen-Shannon/oxy-glb/engine/loader"
)

// commander runs the subcommands against one configured Loader.
type commander struct {
	loader loader.Loader
	cfg    *config.Config
	logger *slog.Logger

	mu     sync.Mutex
	stdout io.Writer
}

// job is one asset conversion.
type job struct {
	input  string
	output string
}

func (c *commander) pack(opts *options) error {
	jobs, err := c.jobs(opts, func(input string) string {
		name := asset.BaseName(input) + ".glb"
		if c.cfg.Output.Compress {
			name += asset.CompressedExt
		}
		return filepath.Join(opts.outDir, name)
	})
	if err != nil {
		return err
	}

	return c.runJobs(jobs, func(j job) error {
		if !c.cfg.Output.Overwrite {
			if _, err := os.Stat(j.output); err == nil {
				return fmt.Errorf("%s already exists (use --overwrite)", j.output)
			}
		}

		report, err := c.loader.Pack(j.input, j.output)
		if err != nil {
			return err
		}
		c.printf("packed %s -> %s (%d bytes, %d bufferViews, %d images, bin %s)\n",
			j.input, j.output, report.Written, report.BufferViews, report.Images, digestOrNone(report.Digest))
		return nil
	})
}

func (c *commander) unpack(opts *options) error {
	jobs, err := c.jobs(opts, func(string) string { return opts.outDir })
	if err != nil {
		return err
	}

	return c.runJobs(jobs, func(j job) error {
		report, err := c.loader.Unpack(j.input, j.output)
		if err != nil {
			return err
		}
		c.printf("unpacked %s -> %s (%d files, %d images, bin %s)\n",
			j.input, report.GLTF, len(report.Files), report.Images, digestOrNone(report.Digest))
		return nil
	})
}

func (c *commander) inspect(opts *options) error {
	if len(opts.args) != 1 {
		return usagef("inspect expects exactly one input file")
	}
	path := opts.args[0]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r, err := asset.Uncompressed(f)
	if err != nil {
		return err
	}
	layout, err := container.Inspect(r)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", path, err)
	}

	c.printf("%s: glTF binary v%d, %d bytes, %d chunks\n", path, layout.Header.Version, layout.Header.Length, len(layout.Chunks))
	var jsonChunk []byte
	for i, ch := range layout.Chunks {
		c.printf("  chunk %d: %-10s offset %-8d length %-8d %s\n",
			i, container.ChunkTypeName(ch.Type), ch.Offset, ch.Length, digest.FromBytes(ch.Payload))
		if ch.Type == container.ChunkJSON && jsonChunk == nil {
			jsonChunk = ch.Payload
		}
	}
	if jsonChunk == nil {
		return nil
	}

	doc, err := document.Decode(jsonChunk)
	if err != nil {
		return err
	}
	for i, b := range doc.Buffers {
		c.printf("  buffer %d: %-8s byteLength %d\n", i, b.Mode(), b.ByteLength)
	}
	c.printf("  bufferViews %d, accessors %d, images %d\n", len(doc.BufferViews), len(doc.Accessors), len(doc.Images))
	return nil
}

// jobs builds the job list: two positional arguments without --out-dir, any
// number of inputs with it.
func (c *commander) jobs(opts *options, outputFor func(input string) string) ([]job, error) {
	if opts.outDir == "" {
		if len(opts.args) != 2 {
			return nil, usagef("%s expects <input> <output>, or --out-dir with one or more inputs", opts.command)
		}
		return []job{{input: opts.args[0], output: opts.args[1]}}, nil
	}

	if len(opts.args) == 0 {
		return nil, usagef("%s --out-dir expects at least one input", opts.command)
	}

	// Outputs are named after the input's base name, which must be unique.
	seen := make(map[string]string, len(opts.args))
	jobs := make([]job, 0, len(opts.args))
	for _, input := range opts.args {
		name := asset.BaseName(input)
		if prev, ok := seen[name]; ok {
			return nil, usagef("%s --out-dir: %s and %s both write %q", opts.command, prev, input, name)
		}
		seen[name] = input
		jobs = append(jobs, job{input: input, output: outputFor(input)})
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", opts.outDir, err)
	}
	return jobs, nil
}

// runJobs runs a single job inline and several jobs on a worker pool, one asset per
// task. Every job runs even when another fails; the failures are joined.
func (c *commander) runJobs(jobs []job, do func(job) error) error {
	if len(jobs) == 1 {
		return do(jobs[0])
	}

	pool := worker.NewDynamicWorkerPool(c.cfg.Workers, len(jobs), 1*time.Second)

	// pool.Wait() blocks until workers idle out, so a WaitGroup is the barrier.
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error
	for i, j := range jobs {
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()

				err := do(j)
				if err != nil {
					c.logger.Error("asset failed", "input", j.input, "error", err)
					mu.Lock()
					errs = append(errs, fmt.Errorf("%s: %w", j.input, err))
					mu.Unlock()
				}
				return nil, err
			},
		})
	}
	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d assets failed: %w", len(errs), len(jobs), errors.Join(errs...))
	}
	return nil
}

func (c *commander) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.stdout, format, args...)
}

func digestOrNone(d digest.Digest) string {
	if d == "" {
		return "none"
	}
	return d.String()
}
