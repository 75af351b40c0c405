package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"elevatordispatch/api"
	"elevatordispatch/config"
	"elevatordispatch/controller"
	"elevatordispatch/statesync"
	"elevatordispatch/store"
)

func main() {
	configPtr := flag.String("config", "elevator.yaml", "Path of the YAML config file")
	envPtr := flag.String("env", ".env", "Path of the .env file")
	addrPtr := flag.String("addr", "", "HTTP listen address, overrides the config")
	memoryPtr := flag.Bool("memory", false, "Keep state in memory only")
	monitorPtr := flag.String("monitor", "", "Only listen for status broadcasts on this address")
	flag.Parse()
	defer glog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *monitorPtr != "" {
		runMonitor(ctx, *monitorPtr)
		return
	}

	cfg, err := config.Load(*configPtr, *envPtr)
	if err != nil {
		glog.Exitf("Loading config: %v", err)
	}
	if *addrPtr != "" {
		cfg.ListenAddr = *addrPtr
	}

	var s store.Store = store.NewMemory()
	if !*memoryPtr {
		fs, err := store.OpenFile(cfg.StorePath)
		if err != nil {
			glog.Exitf("Opening store: %v", err)
		}
		s = fs
	}

	opts := []controller.Option{controller.WithMaxFloors(cfg.MaxFloors)}
	if cfg.BroadcastAddr != "" {
		publisher, err := statesync.NewPublisher(cfg.BroadcastAddr)
		if err != nil {
			glog.Exitf("Starting status broadcast: %v", err)
		}
		defer publisher.Close()
		go publisher.Run(ctx, statesync.DefaultInterval)
		opts = append(opts, controller.WithObserver(publisher))
	}

	dispatcher := controller.NewDispatcher(s, opts...)
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewServer(dispatcher, api.Defaults{MinFloor: cfg.DefaultMinFloor, MaxFloor: cfg.DefaultMaxFloor}),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			glog.Warningf("HTTP shutdown: %v", err)
		}
	}()

	glog.Infof("Listening on %s", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		glog.Exitf("HTTP server: %v", err)
	}
}

func runMonitor(ctx context.Context, addr string) {
	tracker := statesync.NewTracker(statesync.DefaultSyncTimeout)
	go tracker.MonitorFailedSyncs(ctx, time.Second)

	glog.Infof("Listening for elevator status on %s", addr)
	if err := tracker.Listen(ctx, addr); err != nil {
		glog.Exitf("Listening for status: %v", err)
	}
}
