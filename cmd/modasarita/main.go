package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/Danohx/modasarita-auth/internal/config"
	"github.com/Danohx/modasarita-auth/internal/metrics"
	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// errFailed marks a command that already told the user what went wrong.
var errFailed = errors.New("command failed")

func main() {
	err := run(os.Args[1:])
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
	case errors.Is(err, errFailed):
		os.Exit(1)
	default:
		log.Fatal().Err(err).Msg("modasarita")
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	setupLogging(c)

	global := flag.NewFlagSet("modasarita", flag.ContinueOnError)
	quiet := global.Bool("quiet", false, "do not print the banner")
	metricsFile := global.String("metrics-file", "", "write collected metrics to `file` on exit")
	global.Usage = func() { usage(global.Output(), global) }
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return flag.ErrHelp
	}

	name := global.Arg(0)
	cmd, ok := lookup(name)
	if !ok {
		global.Usage()
		return fmt.Errorf("unknown command %q", name)
	}

	if !*quiet {
		displayAppname(c.GetAppName())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	a, err := newApp(ctx, c, metrics.New(reg), newTerminal(os.Stdin, os.Stdout))
	if err != nil {
		return err
	}
	defer a.close()

	returnError = cmd.run(ctx, a, global.Args()[1:])

	if *metricsFile != "" {
		if err := prometheus.WriteToTextfile(*metricsFile, reg); err != nil {
			log.Err(err).Str("file", *metricsFile).Msg("writing metrics")
		}
	}
	return returnError
}

func setupLogging(c config.EnvConfig) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if c.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func usage(w io.Writer, global *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: modasarita [flags] <command> [args]\n\nCommands:\n")
	for _, cmd := range commands() {
		fmt.Fprintf(w, "  %-28s %s\n", cmd.usage, cmd.summary)
	}
	fmt.Fprintf(w, "\nFlags:\n")
	global.PrintDefaults()
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
