package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/cli"
)

func main() {
	// Initialize zerolog global logger early so config loading errors are readable.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := cli.NewRootCmd(&cli.Dependencies{}).Execute(); err != nil {
		log.Error().Err(err).Msg("meet failed")
		os.Exit(1)
	}
}
