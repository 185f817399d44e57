// Package main implements a minimal stdio JSON-RPC connection host: wire up
// a Connection over stdin/stdout, register a demonstration "ping" method,
// and listen until stdin closes.
// file: cmd/rpcwire-stdio/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dkoosis/rpcwire/pkg/rpcwire"
)

var (
	version    = "dev"
	commitHash = "unknown"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetPrefix("[rpcwire-stdio] ")

	if len(os.Args) > 1 && (os.Args[1] == "-v" || os.Args[1] == "--version") {
		fmt.Printf("rpcwire-stdio %s (%s)\n", version, commitHash)
		return
	}

	configPath := flag.String("config", "", "path to a YAML settings file (partial-message timeout, preferred encodings, cancellation directory)")
	flag.Parse()

	settings := rpcwire.DefaultSettings()
	if *configPath != "" {
		loaded, err := rpcwire.LoadSettings(*configPath)
		if err != nil {
			log.Fatalf("load config %s: %v", *configPath, err)
		}
		settings = loaded
	}
	cfg, err := rpcwire.NewConfigFromSettings(settings)
	if err != nil {
		log.Fatalf("apply config: %v", err)
	}

	c := rpcwire.NewConnection(os.Stdout, cfg)

	if err := c.OnRequest("ping", func(ctx context.Context, params json.RawMessage, token rpcwire.CancellationToken) (any, error) {
		return map[string]string{"pong": "ok"}, nil
	}); err != nil {
		log.Fatalf("register ping handler: %v", err)
	}

	c.OnUnhandledNotification(func(method string, params json.RawMessage) {
		log.Printf("unhandled notification: %s", method)
	})
	c.OnError(func(err error) {
		log.Printf("connection error: %v", err)
	})

	closed := make(chan struct{})
	c.OnClose(func() { close(closed) })

	ctx := context.Background()
	if err := rpcwire.Listen(ctx, c, os.Stdin); err != nil {
		log.Fatalf("listen: %v", err)
	}

	<-closed
	_ = c.Dispose()
}
