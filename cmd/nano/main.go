// Command nano is the runtime's CLI surface (spec.md §6): eval a one-off
// script, drop into a REPL preserving one context, or serve one or more
// tenants behind the HTTP Front End. Flag parsing mirrors the teacher's
// cmd/appserver/main.go and cmd/gateway/main.go style: stdlib flag, fatal
// on startup error.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gleicon/nano/internal/config"
	"github.com/gleicon/nano/internal/configwatch"
	"github.com/gleicon/nano/internal/engine"
	"github.com/gleicon/nano/internal/eventloop"
	"github.com/gleicon/nano/internal/httpfront"
	"github.com/gleicon/nano/internal/shutdown"
	"github.com/gleicon/nano/internal/tenant"
	"github.com/gleicon/nano/internal/watchdog"
	"github.com/gleicon/nano/internal/webapi"
	"github.com/gleicon/nano/pkg/logger"
	"github.com/gleicon/nano/pkg/metrics"
)

// evalMemCapBytes is the memory ceiling of the scratch runtime behind `nano
// eval` and `nano repl`: a trivial context doesn't need a tenant's full
// memory cap. eval's CPU budget is watchdog.DefaultSyncTimeout (spec.md §4.3).
const evalMemCapBytes = 64 * 1024 * 1024

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "eval":
		os.Exit(runEval(os.Args[2:]))
	case "repl":
		os.Exit(runRepl())
	case "serve":
		os.Exit(runServe(os.Args[2:]))
	case "-h", "--help", "help":
		usage()
		os.Exit(0)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `nano eval "<source>"        — exit 0 prints result; exit 1 prints formatted error
nano repl                   — interactive REPL preserving one context
nano serve [--port N] [--config FILE] [<app_dir>]`)
}

func newScratchRuntime() (*engine.Runtime, error) {
	rt := engine.NewRuntime(evalMemCapBytes)
	loop := eventloop.New()
	env := &webapi.Env{
		Loop:                 loop,
		FetchTable:           engine.NewFetchTable(),
		MaxStreamBufferBytes: 16 * 1024 * 1024,
		Fetcher:              webapi.NewHTTPFetcher(),
	}
	if err := webapi.Install(rt, env); err != nil {
		return nil, err
	}
	return rt, nil
}

func runEval(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: nano eval \"<source>\"")
		return 1
	}
	source := args[0]

	rt, err := newScratchRuntime()
	if err != nil {
		fmt.Fprintln(os.Stderr, engine.FormatError(err))
		return 1
	}

	wd := watchdog.Start(rt, watchdog.DefaultSyncTimeout)
	val, err := rt.RunScript("<eval>", source)
	wd.Stop()
	rt.ClearInterrupt()
	if err != nil {
		fmt.Fprintln(os.Stderr, engine.FormatError(err))
		return 1
	}
	fmt.Println(val.String())
	return 0
}

func runRepl() int {
	rt, err := newScratchRuntime()
	if err != nil {
		fmt.Fprintln(os.Stderr, engine.FormatError(err))
		return 1
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprint(os.Stderr, "> ")
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			fmt.Fprint(os.Stderr, "> ")
			continue
		}
		val, err := rt.RunScript("<repl>", line)
		if err != nil {
			fmt.Fprintln(os.Stderr, engine.FormatError(err))
		} else {
			fmt.Println(val.String())
		}
		fmt.Fprint(os.Stderr, "> ")
	}
	return 0
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := fs.Int("port", 0, "HTTP listen port (overrides config)")
	configPath := fs.String("config", "", "path to configuration file (JSON or YAML)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	log := logger.NewDefault("nano")

	var doc *config.Document
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Errorf("load config %s: %v", *configPath, err)
			return 1
		}
		doc = loaded
	} else {
		doc = config.New()
		if appDir := fs.Arg(0); appDir != "" {
			name := filepath.Base(strings.TrimRight(appDir, string(os.PathSeparator)))
			doc.Apps = append(doc.Apps, config.App{
				Name:            name,
				Hostname:        strings.ToLower(name),
				Path:            appDir,
				TimeoutMS:       doc.Defaults.TimeoutMS,
				MemoryMB:        doc.Defaults.MemoryMB,
				MaxBufferSizeMB: 64,
			})
		}
	}
	if *port != 0 {
		doc.Port = *port
	}
	if len(doc.Apps) == 0 {
		fmt.Fprintln(os.Stderr, "no apps configured: pass --config FILE or an <app_dir>")
		return 1
	}

	deps := tenant.Deps{
		FetchTable: engine.NewFetchTable(),
		Fetcher:    webapi.NewHTTPFetcher(),
	}
	registry := tenant.NewRegistry(deps)
	for _, app := range doc.Apps {
		rec := tenant.Record{
			Name:            app.Name,
			Hostname:        app.Hostname,
			Path:            app.Path,
			TimeoutMS:       app.TimeoutMS,
			MemoryMB:        app.MemoryMB,
			Env:             app.Env,
			MaxBufferSizeMB: app.MaxBufferSizeMB,
		}
		if err := registry.Add(rec); err != nil {
			log.Errorf("load tenant %s: %v", app.Hostname, err)
			return 1
		}
	}

	metrics.SetTenantCount(len(registry.List()))

	addr := fmt.Sprintf(":%d", doc.Port)
	server := httpfront.New(addr, registry, deps, log, *configPath)
	if err := server.Start(); err != nil {
		log.Errorf("start http front end: %v", err)
		return 1
	}
	log.Infof("nano listening on %s", addr)

	if *configPath != "" {
		watchLoop := eventloop.New()
		go driveLoop(watchLoop)
		watcher := configwatch.Start(watchLoop, *configPath, registry, log)
		defer watcher.Stop()
	}

	shutdown.New(server, registry, log).Wait()
	return 0
}

// driveLoop runs watchLoop's timers for the lifetime of the process; a
// bare channel-less event loop otherwise never executes its callbacks.
func driveLoop(loop *eventloop.Loop) {
	for {
		loop.RunOnce(time.Second)
	}
}
