package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/anima-forward/engine"
	"github.com/spaghettifunk/anima-forward/engine/core"
	"github.com/spaghettifunk/anima-forward/testbed"
)

func main() {
	configPath := flag.String("config", engine.DEFAULT_CONFIG_PATH, "path to the engine TOML configuration")
	flag.Parse()

	config, err := engine.LoadConfig(*configPath)
	if err != nil {
		core.LogFatal("configuration: %s", err)
	}

	tb, err := testbed.NewTestGame()
	if err != nil {
		core.LogFatal("testbed: %s", err)
	}

	e, err := engine.New(tb.Game, config)
	if err != nil {
		core.LogFatal("engine: %s", err)
	}

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal("startup failed: %s", err)
	}

	// SIGINT and SIGTERM close the window; teardown stays on the main thread.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		e.RequestQuit()
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		core.LogFatal("%s", runErr)
	}
}
