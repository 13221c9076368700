package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"knox/log"
	"knox/persist"
	"knox/server"
)

const version = "1.0.0"

const sweepInterval = 60 * time.Second

func main() {
	var (
		host                        string
		port, maxConns              int
		preloadPath                 string
		quiet, verbose, veryVerbose bool
	)

	flag.StringVar(&host, "h", "", "The listening host.")
	flag.IntVar(&port, "p", server.DefaultPort, "The listening port.")
	flag.IntVar(&maxConns, "maxconns", server.DefaultMaxConns, "Maximum concurrent connections.")
	flag.StringVar(&preloadPath, "f", "", "Preload keyspace from a snapshot file before serving.")
	flag.BoolVar(&verbose, "v", false, "Enable verbose logging.")
	flag.BoolVar(&veryVerbose, "vv", false, "Enable very verbose logging.")
	flag.BoolVar(&quiet, "q", false, "Quiet logging. Totally silent.")
	flag.Parse()

	switch {
	case veryVerbose:
		log.SetLevel(log.DEBUG)
	case verbose:
		log.SetLevel(log.INFO)
	case quiet:
		log.SetLevel(-1)
	default:
		log.SetLevel(log.NOTICE)
	}

	srv := server.New(server.Config{
		Host:     host,
		Port:     port,
		MaxConns: maxConns,
		Version:  version,
	}, time.Now().Unix())

	if preloadPath != "" {
		staging, err := persist.Load(preloadPath)
		if err != nil {
			log.Fatalf("failed to preload %s: %s", preloadPath, err)
		}
		srv.Store().ReplaceFrom(staging)
		log.Infof("preloaded keyspace from %s", preloadPath)
	}

	srv.RunSweeper(sweepInterval)

	go handleSignals(srv)

	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("%s", err)
	}
}

func handleSignals(srv *server.Server) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	for s := range sigs {
		switch s {
		case syscall.SIGINT, syscall.SIGTERM:
			srv.Shutdown()
			os.Exit(0)
		}
	}
}
