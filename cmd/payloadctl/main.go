// Command payloadctl is a thin consumer of the payload package,
// standing in for the external host (Kotlin/JNI, normally) that spec.md
// places out of scope. It demonstrates both operations -- inspect and
// extract -- over a bare payload.bin
// or a zip-wrapped OTA package. Flag-based CLI: -i input payload/OTA
// zip, -o output directory, -X comma-separated partition selection,
// -P inspect-only (no extraction), -T worker pool size for -X, -v
// verbose logging.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/mitchellh/colorstring"
	"github.com/panjf2000/ants/v2"
	"github.com/schollz/progressbar/v3"

	"github.com/Gustyx-Power/PayloadPack/payload"
)

type action int

const (
	actionExtract action = iota
	actionInspect
)

type config struct {
	input      string
	outDir     string
	partitions []string
	workers    int
	act        action
	verbose    bool
}

func main() {
	cfg := config{
		outDir:  "out",
		workers: 4,
		act:     actionExtract,
	}

	flag.StringVar(&cfg.input, "i", "", "input payload.bin or OTA zip package")
	flag.StringVar(&cfg.outDir, "o", "out", "output directory")
	flag.Func("X", "comma-separated partition names to extract (default: all)", func(s string) error {
		cfg.partitions = strings.Split(s, ",")
		return nil
	})
	flag.IntVar(&cfg.workers, "T", 4, "worker pool size for selective extraction")
	flag.BoolFunc("P", "inspect only, do not extract", func(string) error {
		cfg.act = actionInspect
		return nil
	})
	flag.BoolVar(&cfg.verbose, "v", false, "verbose logging")
	flag.Parse()

	if cfg.input == "" {
		fmt.Fprintln(os.Stderr, "must specify -i <payload>")
		os.Exit(1)
	}

	if cfg.verbose {
		payload.SetLogger(log.New(os.Stderr, "payload: ", log.LstdFlags))
	}

	switch cfg.act {
	case actionInspect:
		runInspect(cfg)
	case actionExtract:
		runExtract(cfg)
	}
}

func runInspect(cfg config) {
	inspection, err := payload.Inspect(cfg.input)
	if err != nil {
		fmt.Fprintln(os.Stderr, colorstring.Color("[red]error:[reset] "+err.Error()))
		os.Exit(1)
	}

	out, err := json.MarshalIndent(inspection, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "error encoding inspection:", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func runExtract(cfg config) {
	inspection, err := payload.Inspect(cfg.input)
	if err != nil {
		fmt.Fprintln(os.Stderr, colorstring.Color("[red]error:[reset] "+err.Error()))
		os.Exit(1)
	}

	if len(cfg.partitions) == 0 {
		extractAll(cfg, inspection)
		return
	}
	extractSelected(cfg, inspection)
}

func extractAll(cfg config, inspection *payload.PayloadInspection) {
	bar := progressbar.NewOptions64(int64(inspection.TotalSize),
		progressbar.OptionSetDescription("extracting"),
		progressbar.OptionShowBytes(true),
	)

	lastName := ""
	progressFn := func(name string, percent int, done, total int64) {
		if name != lastName {
			bar.Describe(colorstring.Color("[green]" + name + "[reset]"))
			lastName = name
		}
		bar.Set64(done)
		payload.Logger.Printf("%s: processed %s of %s", name, humanize.Bytes(uint64(done)), humanize.Bytes(uint64(total)))
	}

	result, err := payload.ExtractInspected(cfg.input, inspection, cfg.outDir, progressFn)
	bar.Finish()
	if err != nil {
		fmt.Fprintln(os.Stderr, colorstring.Color("[red]extraction failed:[reset] "+err.Error()))
		os.Exit(1)
	}

	for _, p := range result.Extracted {
		fmt.Println(colorstring.Color(fmt.Sprintf("[green]ok[reset] %s -> %s (%s)", p.Name, p.OutputPath, humanize.Bytes(p.BytesWritten))))
	}
}

// extractSelected fans the chosen partitions out across a bounded
// goroutine pool: each partition is its own independent extraction run
// (spec §5) over its own container handle, writing its own output file.
func extractSelected(cfg config, inspection *payload.PayloadInspection) {
	pool, err := ants.NewPool(cfg.workers)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error creating worker pool:", err)
		os.Exit(1)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	var mu sync.Mutex
	failures := 0

	for _, name := range cfg.partitions {
		name := name
		wg.Add(1)
		task := func() {
			defer wg.Done()
			extracted, err := payload.ExtractPartition(cfg.input, inspection, name, cfg.outDir)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fmt.Fprintln(os.Stderr, colorstring.Color(fmt.Sprintf("[red]%s failed:[reset] %s", name, err.Error())))
				failures++
				return
			}
			fmt.Println(colorstring.Color(fmt.Sprintf("[green]ok[reset] %s -> %s (%s)", extracted.Name, extracted.OutputPath, humanize.Bytes(extracted.BytesWritten))))
		}
		if err := pool.Submit(task); err != nil {
			fmt.Fprintln(os.Stderr, "error submitting task:", err)
			wg.Done()
		}
	}

	wg.Wait()
	if failures > 0 {
		os.Exit(1)
	}
}
