// Command sudb runs the scripted demo engine under the debugger front ends.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sudb/sudb/internal/config"
	"github.com/sudb/sudb/internal/engine/sim"
	"github.com/sudb/sudb/internal/frontend/console"
	"github.com/sudb/sudb/internal/frontend/remote"
	"github.com/sudb/sudb/internal/gate"
	"github.com/sudb/sudb/internal/logging"
)

// demoScript runs when no script file is configured.
const demoScript = `# sudb demo script
gset greeting hello
setup:
  set target world
  set retries 3
main loop:
  set i 0
  work:
    set i 1
    gset progress started
  set done yes
gset progress finished
`

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "", "path to TOML config file")
		port       = flag.Int("port", 0, "network listener port (overrides config)")
		useConsole = flag.Bool("console", false, "enable the terminal front end")
		noRemote   = flag.Bool("no-remote", false, "disable the network front end")
		scriptPath = flag.String("script", "", "script file to execute (overrides config)")
		debugSpec  = flag.String("debugger", "", "front-end spec, e.g. \"ide port=7777\"")
		logLevel   = flag.String("log-level", "", "log level: trace, debug, info, warn, error")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sudb: %v\n", err)
		return 1
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if p, ok := config.ParsePortSpec(*debugSpec); ok {
		cfg.Port = p
	}
	if *useConsole {
		cfg.Console = true
	}
	if *noRemote {
		cfg.Remote = false
	}
	if *scriptPath != "" {
		cfg.Script = *scriptPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "sudb: %v\n", err)
		return 1
	}

	log := logging.New(os.Stderr, "sudb", cfg.LogLevel)

	name := "demo.sim"
	src := demoScript
	if cfg.Script != "" {
		data, err := os.ReadFile(cfg.Script)
		if err != nil {
			log.Error().Err(err).Msg("cannot read script")
			return 1
		}
		name = filepath.Base(cfg.Script)
		src = string(data)
	}

	g := gate.New()
	eng := sim.New(name, src, g, log.With().Str("subsystem", "engine").Logger())

	if cfg.Remote {
		srv := remote.NewServer(eng, g, log.With().Str("subsystem", "remote").Logger())
		if err := srv.Start(cfg.Port); err != nil {
			log.Error().Err(err).Msg("cannot start network listener")
			return 1
		}
		defer srv.Close()
		eng.Attach(srv)
	}

	if cfg.Console {
		c := console.New(eng, g, console.Config{HistoryFile: cfg.HistoryFile},
			log.With().Str("subsystem", "console").Logger())
		eng.Attach(c)
		go func() {
			if err := c.Run(); err != nil {
				log.Error().Err(err).Msg("console exited")
			}
		}()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		eng.Stop()
		g.RequestResume()
	}()

	eng.Run()
	return 0
}
