package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/seanblong/ragconsole/internal/binder"
	"github.com/seanblong/ragconsole/internal/config"
	"github.com/seanblong/ragconsole/internal/ragapi"
	"github.com/seanblong/ragconsole/internal/web"
	"github.com/spf13/pflag"
)

func main() {
	// Create flagset for configuration
	fs := pflag.NewFlagSet("ragconsole-web", pflag.ExitOnError)
	title := fs.String("title", "", "Page title")

	// Load configuration
	cfg, err := config.Load("", fs, os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	// Set up logging
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	client, err := ragapi.NewHTTPClient(cfg.ClientConfig())
	if err != nil {
		log.Fatalf("Failed to create API client: %v", err)
	}
	logger.Info().
		Str("base_url", cfg.BaseURL).
		Bool("search_enabled", client.SearchEnabled()).
		Dur("timeout", cfg.Timeout).
		Str("log_level", cfg.LogLevel).
		Msg("starting ragconsole web")

	srv, err := web.NewServer(binder.New(client, logger), *title)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	address := fmt.Sprintf(":%d", cfg.Port)
	s := &http.Server{Addr: address, Handler: srv.Handler(logger)}
	logger.Info().Str("addr", s.Addr).Msg("web ui listening")
	log.Fatal(s.ListenAndServe())
}
