// Command unsealer recovers data from password manager exports.
//
// Usage:
//
//	unsealer samsung <backup.spass> [-f md|txt|csv|json|html] [-o path] [--preview] [-y] [--pg]
//	unsealer google <otpauth-migration://...|file>... [-o report.md] [-y]
//	unsealer serve
//
// Configuration comes from the environment and an optional .env file; see
// internal/config. The Samsung Pass master password is prompted for without
// echo, or read from UNSEALER_PASSWORD.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Oracipher/Unsealer/internal/config"
	"github.com/Oracipher/Unsealer/internal/core"
	"github.com/Oracipher/Unsealer/internal/logging"
	"github.com/Oracipher/Unsealer/internal/schema"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// errUsage marks command-line mistakes; the usage text has already been
// printed when it is returned.
var errUsage = errors.New("usage error")

// app holds what every subcommand needs.
type app struct {
	cfg       *config.Config
	decrypter *core.Decrypter
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	now       func() time.Time
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	// Overload lets .env values win over the inherited environment.
	envErr := godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return exitError
	}

	logging.SetupWriter(stderr, cfg.Logging.Level, cfg.Logging.Format)
	if envErr == nil {
		slog.Debug("loaded .env file")
	}

	if len(args) == 0 {
		usage(stderr)
		return exitUsage
	}

	registry, err := schema.Load(cfg.Decrypt.SchemaPath)
	if err != nil {
		printError(stderr, err)
		return exitError
	}
	slog.Debug("schemas loaded", "count", registry.Len(), "path", cfg.Decrypt.SchemaPath)

	a := &app{
		cfg:       cfg,
		decrypter: core.NewDecrypter(registry),
		stdin:     stdin,
		stdout:    stdout,
		stderr:    stderr,
		now:       time.Now,
	}

	switch args[0] {
	case "samsung":
		err = a.runSamsung(ctx, args[1:])
	case "google":
		err = a.runGoogle(ctx, args[1:])
	case "serve":
		err = a.runServe(ctx, args[1:])
	case "-h", "--help", "help":
		usage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return exitUsage
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		return exitUsage
	default:
		printError(stderr, err)
		return exitError
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: unsealer <command> [options]

Commands:
  samsung <file>     decrypt a Samsung Pass (.spass) backup and write a report
  google <input>...  decode Google Authenticator export links
  serve              start the local web interface

Run "unsealer <command> -h" for command options.
`)
}

// printError writes err for a person: the mapped message, code and hint
// when the error is known, the raw error otherwise.
func printError(w io.Writer, err error) {
	if !core.IsUserFacing(err) {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}
	msg := core.MapError(err)
	fmt.Fprintf(w, "error: %s (code %s)\n  %s\n", msg.Message, msg.Code, msg.Action)
	slog.Debug("error detail", "error", err)
}

// parseInterspersed parses flags that may appear before, between or after
// positional arguments and returns the positional ones.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, err
			}
			return nil, errUsage
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}
