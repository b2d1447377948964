// Package cmd holds the startup plumbing shared by the commands.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sparques/irtag/internal/platform/config"
	"github.com/sparques/irtag/internal/platform/otel"
)

const defaultOTelShutdownTimeout = 5 * time.Second

// ServicePlayer names the player unit in telemetry.
const ServicePlayer = "player"

// ParseConfig loads environment defaults into cfg.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// ParseConfigFromArgs loads defaults from env and then lets flags override them.
// Flags must be bound to cfg's fields before the call.
func ParseConfigFromArgs[T any](cfg *T, fs *flag.FlagSet, args []string) error {
	if err := ParseConfig(cfg); err != nil {
		return err
	}
	return ParseArgs(fs, args)
}

// RunWithTelemetry sets up tracing, runs run and flushes spans afterwards. attrs
// identify the unit in every exported span.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error, attrs ...attribute.KeyValue) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return errors.New("service name is required")
	}
	if run == nil {
		return errors.New("run function is required")
	}
	shutdown, err := otel.Setup(ctx, service, attrs...)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultOTelShutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("%s otel shutdown: %v", service, err)
		}
	}()
	return run(ctx)
}
