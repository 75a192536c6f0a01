package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sievelabs/sieve/internal/pkg/security"
	"github.com/sievelabs/sieve/internal/server"
	"github.com/sievelabs/sieve/internal/source"
	"github.com/sievelabs/sieve/internal/store"
)

func main() {
	// Command-line flags
	input := flag.String("input", source.Stdin, "Path to log file, or - to read from stdin")
	bufferSize := flag.Int("buffer-size", 0, "Maximum number of entries to retain; the oldest entries past the bound are discarded (required)")
	noWatch := flag.Bool("no-watch", false, "Do not watch the input file for appended data")
	pollInterval := flag.Duration("poll-interval", time.Second, "Re-read interval when file-change notification is unavailable")
	listen := flag.String("listen", "127.0.0.1:8080", "Address to serve clients on")
	disableServer := flag.Bool("disable-server", false, "Do not serve clients")
	useTLS := flag.Bool("tls", false, "Serve clients over TLS")
	certFile := flag.String("cert", "", "Path to TLS certificate file")
	keyFile := flag.String("key", "", "Path to TLS key file")
	authToken := flag.String("auth-token", "", "Token clients must present; randomly generated if empty")
	flag.Parse()

	if *bufferSize <= 0 {
		log.Fatal("-buffer-size must be a positive integer")
	}

	// 1. Build the store
	st, err := store.New(*bufferSize)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Wire the ingestion source to it
	src := source.New(source.Config{
		Input:        *input,
		Watch:        !*noWatch,
		PollInterval: *pollInterval,
	}, st.Push)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st.StartStatsTicker(ctx, time.Second)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return src.Run(ctx) })

	// 3. Start the client-facing server unless disabled
	if !*disableServer {
		token := *authToken
		if token == "" {
			token, err = security.GenerateToken()
			if err != nil {
				log.Fatalf("Cannot generate auth token: %v", err)
			}
			log.Printf("Generated auth token: %s", token)
		}
		hash, err := security.HashToken(token)
		if err != nil {
			log.Fatalf("Cannot hash auth token: %v", err)
		}

		srv, err := server.New(server.Config{
			Addr:      *listen,
			TLS:       *useTLS,
			CertFile:  *certFile,
			KeyFile:   *keyFile,
			TokenHash: hash,
			InputName: src.Name(),
		}, st)
		if err != nil {
			log.Fatalf("Invalid server configuration: %v", err)
		}
		g.Go(func() error { return srv.Run(ctx) })
	}

	log.Printf("sieve started. Input: %s, buffer bound: %d", src.Name(), *bufferSize)

	if err := g.Wait(); err != nil {
		log.Fatalf("Exiting with error: %v", err)
	}
	log.Println("sieve exited gracefully.")
}
