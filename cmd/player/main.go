// Package main starts a player unit on a Linux board.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	playercmd "github.com/sparques/irtag/internal/cmd/player"
	"github.com/sparques/irtag/internal/platform/config"
)

func main() {
	cfg, err := playercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[PLAYER] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := playercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("player stopped: %v", err)
	}
}
