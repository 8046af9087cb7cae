// cmd/vacation/main.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

// This file contains the implementation of the main() function, which
// initializes the system and then runs the event loop until the window
// is closed.

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/goforj/godump"

	"github.com/mmp/vacation/log"
	"github.com/mmp/vacation/renderer"
	"github.com/mmp/vacation/util"
)

var (
	// Command-line options are only used for developer features.
	cpuprofile = flag.String("cpuprofile", "", "write CPU profile to file")
	memprofile = flag.String("memprofile", "", "write memory profile to this file")
	logLevel   = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir     = flag.String("logdir", "", "log file directory")
	dataDir    = flag.String("datadir", "", "directory holding fonts, shaders, and textures")
	configFile = flag.String("config", "", "configuration file (default: user config directory)")
	dumpAtlas  = flag.Bool("dumpatlas", false, "lay out the sample text without a window and print atlas statistics")
)

func init() {
	// OpenGL and friends require that all calls be made from the primary
	// application thread, while by default, go allows the main thread to
	// run on different hardware threads over the course of
	// execution. Therefore, we must lock the main thread at startup time.
	runtime.LockOSThread()
}

func setupSignalHandler(profiler *util.Profiler) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "Caught signal, cleaning up...")
		profiler.Stop()
		os.Exit(0)
	}()
}

func main() {
	flag.Parse()

	lg := log.New(*logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	profiler, err := util.StartProfiler(*cpuprofile, *memprofile)
	if err != nil {
		lg.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer profiler.Stop()
	if profiler.Active() {
		setupSignalHandler(profiler)
	}

	fn := *configFile
	if fn == "" {
		fn = configFilePath(lg)
	}
	config, err := LoadOrMakeDefaultConfig(fn, lg)
	if err != nil {
		lg.Errorf("%s: %v", fn, err)
		fmt.Fprintf(os.Stderr, "%s: %v; using default configuration\n", fn, err)
	}

	var e util.ErrorLogger
	config.Validate(&e)
	if e.HaveErrors() {
		e.PrintErrors(lg)
		os.Exit(1)
	}

	dir := *dataDir
	if dir == "" {
		dir = config.DataDir
	}
	if dir == "" {
		if dir, err = util.FindDataDir(""); err != nil {
			lg.Errorf("%v", err)
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	lg.Infof("Using data directory %s", dir)
	fsys := os.DirFS(dir)

	if *dumpAtlas {
		dumpAtlasStats(config, fsys, lg)
		return
	}

	if err := run(config, fn, fsys, lg); err != nil {
		lg.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// dumpAtlasStats lays out the sample text at a range of sizes using a
// headless renderer and prints the resulting atlas statistics.
func dumpAtlasStats(config *Config, fsys fs.FS, lg *log.Logger) {
	r := renderer.NewHeadlessRenderer(lg)
	defer r.Dispose()

	atlas := renderer.NewAtlas(config.Atlas, lg)
	fonts := renderer.NewFontRegistry(fsys, atlas, config.Fonts, lg)
	defer fonts.Dispose(r)

	for _, size := range []int{12, 16, 24, 32, 48} {
		f, err := fonts.LoadFont(config.UIFont, size)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", config.UIFont, err)
			return
		}
		failed := false
		for _, line := range strings.Split(config.SampleText, "\n") {
			f.PrepareText(line)
			failed = failed || f.ConversionFailed()
		}
		if failed {
			fmt.Fprintf(os.Stderr, "%s: no glyphs for %q\n", f.Id, f.MissingCharacters())
		}
	}
	for i := range atlas.NumPages() {
		atlas.Sync(r, i)
	}

	godump.Dump(fonts.Fonts())
	godump.Dump(atlas.Stats())
}
