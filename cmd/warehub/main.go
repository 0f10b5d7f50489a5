// Package main is the entry point for the warehub binary. It dispatches the
// cli, github, add, generate and version subcommands via a simple switch on
// os.Args so the binary's full CLI surface is readable in one place.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/warehub/warehub/internal/config"
	"github.com/warehub/warehub/internal/db"
	"github.com/warehub/warehub/internal/db/models"
	"github.com/warehub/warehub/internal/ingest"
	"github.com/warehub/warehub/internal/mirror"
	"github.com/warehub/warehub/internal/secrets"
	"github.com/warehub/warehub/internal/site"
	"github.com/warehub/warehub/internal/storage"
	_ "github.com/warehub/warehub/internal/storage/local"
	"github.com/warehub/warehub/internal/telemetry"
	"github.com/warehub/warehub/internal/validation"
)

const version = site.Version

const usage = `usage: warehub <command> [args]

Commands:
  cli <repository>   mirror the release assets of a GitHub repository
  github             run cli with the arguments found in $GITHUB_CONTEXT
  add <file>...      ingest local distribution files
  generate           regenerate the static index
  version            print the version`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		slog.Error("warehub failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}
	command, rest := args[0], args[1:]

	switch command {
	case "version", "-v", "--version":
		fmt.Fprintf(stdout, "warehub version %s\n", version)
		return nil
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage)
		return nil
	}

	// Load configuration
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	a, err := newApp(cfg, stdout)
	if err != nil {
		return err
	}

	// Execute command
	switch command {
	case "cli":
		err = a.cli(ctx, rest)
	case "github":
		err = a.github(ctx, rest)
	case "add":
		err = a.add(ctx, rest)
	case "generate":
		err = a.generate(ctx)
	default:
		return fmt.Errorf("unknown command: %s\n%s", command, usage)
	}

	if textfile := cfg.Telemetry.Metrics.Textfile; cfg.Telemetry.Metrics.Enabled && textfile != "" {
		if werr := telemetry.WriteTextfile(cfg.Paths.Resolve(textfile)); werr != nil {
			slog.Warn("failed to write metrics", "path", textfile, "error", werr)
		}
	}
	return err
}

// app carries what every subcommand needs.
type app struct {
	cfg     *config.Config
	store   *db.Store
	secrets *secrets.Secrets
	stdout  io.Writer
}

func newApp(cfg *config.Config, stdout io.Writer) (*app, error) {
	s, err := secrets.New(secrets.DefaultVariable, secrets.DefaultToken)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:     cfg,
		store:   db.New(cfg.Paths.DatabasePath()),
		secrets: s,
		stdout:  stdout,
	}, nil
}

// ----- cli ------------------------------------------------------------------

func (a *app) cli(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("warehub cli", pflag.ContinueOnError)
	fs.SetOutput(a.stdout)
	token := a.secrets.Token()
	domain := fs.StringP("domain", "d", a.cfg.Mirror.Domain, "The domain of the github api.")
	username := fs.StringP("username", "u", a.cfg.Mirror.Username,
		fmt.Sprintf("The username to use to login to github. Surround with %s to get from environment (case sensitive).", token))
	password := fs.StringP("password", "p", a.cfg.Mirror.Password,
		fmt.Sprintf("The password to use to login to github. Surround with %s to get from environment (case sensitive).", token))
	constraint := fs.StringP("constraint", "c", "", "Only mirror releases whose tag satisfies this version constraint.")
	generate := fs.BoolP("generate", "g", false, "Regenerate the site after ingesting.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: warehub cli <repository> [flags]\n%s", fs.FlagUsages())
	}

	tags, err := validation.ParseTagConstraint(*constraint)
	if err != nil {
		return err
	}
	user, err := a.credential(*username, fs.Changed("username"))
	if err != nil {
		return err
	}
	pass, err := a.credential(*password, fs.Changed("password"))
	if err != nil {
		return err
	}

	client, err := mirror.NewReleasesClient(*domain, fs.Arg(0))
	if err != nil {
		return err
	}
	client.Username = user
	client.Password = pass
	client.PerPage = a.cfg.Mirror.PerPage
	client.HTTPClient.Timeout = a.cfg.Mirror.Timeout
	client.DownloadClient.Timeout = a.cfg.Mirror.DownloadTimeout

	tmp, err := os.MkdirTemp("", "warehub-")
	if err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	paths, err := client.DownloadAssets(ctx, tmp, tags)
	if err != nil {
		return err
	}
	if err := a.ingest(ctx, paths); err != nil {
		return err
	}
	if *generate {
		return a.generate(ctx)
	}
	return nil
}

// credential resolves a ##NAME## reference. A default reference whose secret
// is absent means no credential.
func (a *app) credential(value string, explicit bool) (string, error) {
	v, err := a.secrets.Resolve(value)
	if errors.Is(err, secrets.ErrSecretNotFound) && !explicit {
		slog.Debug("secret not present, continuing without it", "name", value)
		return "", nil
	}
	return v, err
}

// ----- github ---------------------------------------------------------------

// issueLineRe matches "- **name:** value" lines of an issue body.
var issueLineRe = regexp.MustCompile(`^- \*\*(\w+):\*\*\s*(.*)`)

// issueArguments turns the "- **name:** value" lines of an issue body into cli
// arguments. repository becomes the positional argument; unknown names are
// ignored.
func issueArguments(body string) []string {
	flags := map[string]bool{"domain": true, "username": true, "password": true, "constraint": true, "generate": true}

	var args []string
	for _, line := range strings.Split(strings.ReplaceAll(body, "\r", ""), "\n") {
		m := issueLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name, value := strings.ToLower(m[1]), strings.TrimSpace(m[2])
		switch {
		case name == "repository":
			args = append(args, value)
		case flags[name]:
			args = append(args, "--"+name+"="+value)
		}
	}
	return args
}

func (a *app) github(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("usage: warehub github (arguments are read from $GITHUB_CONTEXT)")
	}
	raw, ok := os.LookupEnv("GITHUB_CONTEXT")
	if !ok {
		return fmt.Errorf("'GITHUB_CONTEXT' is not in environment. Did you mean to run 'cli'")
	}

	var ghContext struct {
		Event struct {
			Issue struct {
				Body string `json:"body"`
			} `json:"issue"`
		} `json:"event"`
	}
	if err := json.Unmarshal([]byte(raw), &ghContext); err != nil {
		return fmt.Errorf("failed to decode GITHUB_CONTEXT: %w", err)
	}
	return a.cli(ctx, issueArguments(ghContext.Event.Issue.Body))
}

// ----- add ------------------------------------------------------------------

func (a *app) add(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("warehub add", pflag.ContinueOnError)
	fs.SetOutput(a.stdout)
	generate := fs.BoolP("generate", "g", false, "Regenerate the site after ingesting.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: warehub add <file>... [flags]\n%s", fs.FlagUsages())
	}

	if err := a.ingest(ctx, fs.Args()); err != nil {
		return err
	}
	if *generate {
		return a.generate(ctx)
	}
	return nil
}

// ingest adds the files to the store. The store is saved even when the batch
// stops early so the artifacts accepted before the failure are kept.
func (a *app) ingest(ctx context.Context, paths []string) error {
	st, err := storage.NewStorage(a.cfg)
	if err != nil {
		return err
	}

	opts := []ingest.Option{ingest.WithLogger(slog.Default())}
	if a.cfg.Ingest.VerifySignatures {
		keyring, err := validation.LoadKeyring(a.cfg.Ingest.KeyringFile)
		if err != nil {
			return err
		}
		opts = append(opts, ingest.WithKeyring(keyring))
	}

	in := ingest.New(a.store, st, ingest.LimitsFromConfig(&a.cfg.Ingest), opts...)
	results, ingestErr := in.IngestAll(ctx, paths)
	saveErr := a.save()

	if len(results) > 0 {
		fmt.Fprintln(a.stdout, "View new Packages at:")
		seen := make(map[string]bool)
		for _, r := range results {
			if url := r.URL(); !seen[url] {
				seen[url] = true
				fmt.Fprintf(a.stdout, "\t%s\n", url)
			}
		}
	}
	return errors.Join(ingestErr, saveErr)
}

// save persists the store and records the table sizes.
func (a *app) save() error {
	if err := a.store.Save(); err != nil {
		return fmt.Errorf("failed to save %s: %w", a.store.Path(), err)
	}
	for _, schema := range []*db.Schema{models.ProjectSchema, models.ReleaseSchema, models.FileSchema} {
		recs, err := a.store.Query(schema, db.Always)
		if err != nil {
			return err
		}
		telemetry.StoreRecords.WithLabelValues(schema.Table).Set(float64(len(recs)))
	}
	return nil
}

// ----- generate -------------------------------------------------------------

func (a *app) generate(ctx context.Context) error {
	siteCfg, err := config.LoadSite(a.cfg.Paths.SiteConfigPath())
	if err != nil {
		return err
	}
	g, err := site.New(a.store, siteCfg, a.cfg.Paths.Root, site.WithVersion(version))
	if err != nil {
		return err
	}
	return g.Generate(ctx)
}
