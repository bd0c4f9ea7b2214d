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

	"github.com/Oracipher/Unsealer/internal/gauth"
	"github.com/Oracipher/Unsealer/internal/report"
)

const migrationPrefix = "otpauth-migration://"

func (a *app) runGoogle(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("google", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: unsealer google [options] <link|file>...\n\n"+
			"Inputs are otpauth-migration:// links or text files containing them, one\n"+
			"per line. With no inputs, links are read from stdin until an empty line.\n\nOptions:\n")
		fs.PrintDefaults()
	}

	var (
		output string
		force  bool
	)
	fs.StringVar(&output, "o", "", "write a Markdown report to this file")
	fs.StringVar(&output, "output", "", "same as -o")
	fs.BoolVar(&force, "y", a.cfg.Export.Force, "overwrite an existing report")
	fs.BoolVar(&force, "force", a.cfg.Export.Force, "same as -y")

	inputs, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}

	if output != "" && !force {
		if err := checkOutput(output, false); err != nil {
			return err
		}
	}

	var links []string
	if len(inputs) == 0 {
		fmt.Fprintln(a.stderr, "paste otpauth-migration:// links, one per line; finish with an empty line")
		links, err = readLinks(a.stdin, true)
		if err != nil {
			return err
		}
	}
	for _, in := range inputs {
		found, err := collectLinks(in)
		if err != nil {
			return err
		}
		links = append(links, found...)
	}
	if len(links) == 0 {
		return fmt.Errorf("%w: no otpauth-migration links found", gauth.ErrInvalidURI)
	}

	batches := make([][]gauth.Account, 0, len(links))
	for i, link := range links {
		accounts, err := gauth.ParseURI(link)
		if err != nil {
			return fmt.Errorf("link %d: %w", i+1, err)
		}
		batches = append(batches, accounts)
	}
	accounts := gauth.Merge(batches...)

	a.printAccounts(accounts)

	if output == "" {
		return nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := report.WriteAccountsMarkdown(f, accounts, report.Options{GeneratedAt: a.now()}); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "report written to %s\n", output)
	return nil
}

// collectLinks returns in itself when it is a link, or the links listed in
// the file it names.
func collectLinks(in string) ([]string, error) {
	if strings.HasPrefix(in, migrationPrefix) {
		return []string{in}, nil
	}

	f, err := os.Open(in)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q is neither a link nor a file", gauth.ErrInvalidURI, in)
		}
		return nil, err
	}
	defer f.Close()

	return readLinks(f, false)
}

// readLinks scans r for lines holding migration links. In interactive mode
// an empty line ends the input.
func readLinks(r io.Reader, interactive bool) ([]string, error) {
	var links []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			if interactive {
				break
			}
			continue
		}
		if i := strings.Index(line, migrationPrefix); i >= 0 {
			links = append(links, strings.Fields(line[i:])[0])
		}
	}
	return links, sc.Err()
}

func (a *app) printAccounts(accounts []gauth.Account) {
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ISSUER\tNAME\tSECRET\tTYPE\tALGORITHM\tDIGITS")
	for _, acc := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", acc.Issuer, acc.Name, acc.Secret, acc.Type, acc.Algorithm, acc.Digits)
	}
	tw.Flush()
	fmt.Fprintf(a.stderr, "%d accounts\n", len(accounts))
}
