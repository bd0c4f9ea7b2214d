package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/Oracipher/Unsealer/internal/core"
	"github.com/Oracipher/Unsealer/internal/report"
	"github.com/Oracipher/Unsealer/internal/store"
)

// passwordEnv lets scripts supply the master password without a prompt.
const passwordEnv = "UNSEALER_PASSWORD"

var errOutputExists = errors.New("output already exists")

type samsungOptions struct {
	input   string
	format  report.Format
	output  string
	preview bool
	force   bool
	pg      bool
}

func (a *app) parseSamsungFlags(args []string) (samsungOptions, error) {
	fs := flag.NewFlagSet("samsung", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: unsealer samsung <backup.spass> [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	var (
		format string
		opts   samsungOptions
	)
	fs.StringVar(&format, "f", a.cfg.Export.Format, "report format: md, txt, csv, json or html")
	fs.StringVar(&format, "format", a.cfg.Export.Format, "same as -f")
	fs.StringVar(&opts.output, "o", "", "output file (directory for csv); default derived from the input name")
	fs.StringVar(&opts.output, "output", "", "same as -o")
	fs.BoolVar(&opts.preview, "preview", false, "print the summary only, write nothing")
	fs.BoolVar(&opts.force, "y", a.cfg.Export.Force, "overwrite an existing output")
	fs.BoolVar(&opts.force, "force", a.cfg.Export.Force, "same as -y")
	fs.BoolVar(&opts.pg, "pg", false, "also store the records in PostgreSQL (needs DATABASE_URL)")

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return opts, err
	}
	if len(positional) != 1 {
		fs.Usage()
		return opts, errUsage
	}
	opts.input = positional[0]

	if opts.format, err = report.ParseFormat(format); err != nil {
		return opts, err
	}
	if opts.output == "" {
		opts.output = report.DefaultOutput(opts.input, opts.format)
	}
	return opts, nil
}

func (a *app) runSamsung(ctx context.Context, args []string) error {
	opts, err := a.parseSamsungFlags(args)
	if err != nil {
		return err
	}

	if !opts.preview && !opts.force {
		if err := checkOutput(opts.output, opts.format.IsDir()); err != nil {
			return err
		}
	}
	if opts.pg && !a.cfg.Database.Enabled() {
		return errors.New("--pg needs DATABASE_URL to be set")
	}

	content, err := a.readBackup(opts.input)
	if err != nil {
		return err
	}

	password, err := a.password()
	if err != nil {
		return err
	}

	res, err := a.decrypter.Decrypt(ctx, content, password)
	if err != nil {
		return err
	}
	a.printSummary(res)

	if opts.preview {
		fmt.Fprintln(a.stderr, "preview mode: nothing written (use -f and -o to export)")
		return nil
	}

	if err := a.writeReport(ctx, opts, res); err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "report written to %s (%s)\n", opts.output, opts.format)

	if opts.pg {
		return a.storeResult(ctx, res)
	}
	return nil
}

func (a *app) readBackup(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > a.cfg.Decrypt.MaxFileSize {
		return nil, fmt.Errorf("%s is %d bytes, larger than DECRYPT_MAX_FILE_SIZE (%d)", path, info.Size(), a.cfg.Decrypt.MaxFileSize)
	}
	return os.ReadFile(path)
}

// password returns the master password from the environment, a terminal
// prompt without echo, or the first line of stdin.
func (a *app) password() (string, error) {
	if pw, ok := os.LookupEnv(passwordEnv); ok {
		return pw, nil
	}

	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.stderr, "Samsung account master password: ")
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) printSummary(res *core.Result) {
	tw := tabwriter.NewWriter(a.stderr, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "decrypted:")
	for _, s := range report.Summarize(res) {
		fmt.Fprintf(tw, "  %s\t%d records\n", s.Display, s.Records)
	}
	tw.Flush()

	for _, w := range res.Warnings {
		fmt.Fprintf(a.stderr, "warning: %s\n", w.Error())
	}
}

func (a *app) writeReport(ctx context.Context, opts samsungOptions, res *core.Result) error {
	if opts.format.IsDir() {
		paths, err := report.WriteCSV(opts.output, res)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintf(a.stderr, "  %s\n", p)
		}
		return nil
	}

	f, err := os.OpenFile(opts.output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}

	ropts := report.Options{GeneratedAt: a.now(), Source: opts.input}
	if err := report.Write(ctx, f, opts.format, res, ropts); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}

func (a *app) storeResult(ctx context.Context, res *core.Result) error {
	st, err := store.Open(ctx, a.cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}

	saved, err := st.Save(ctx, res)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "stored in database: %d new, %d already present\n", saved.Inserted, saved.Skipped)
	return nil
}

// checkOutput refuses to replace an existing file or a non-empty directory.
func checkOutput(path string, dir bool) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	if dir && info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return fmt.Errorf("%w: directory %s is not empty (use -y to overwrite)", errOutputExists, path)
	}
	return fmt.Errorf("%w: %s (use -y to overwrite)", errOutputExists, path)
}
