// Command markovwalk trains, stores and walks first-order Markov chains over
// tokenized text. It can be used as a CLI or run as an HTTP API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/CTAG07/markovwalk/pkg/store"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// app bundles what every subcommand needs.
type app struct {
	config *Config
	logger *slog.Logger
	db     *sql.DB
	store  *store.Store
	stdout io.Writer
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"train", "train -model NAME [-strategy alias|cumulative] FILE...", runTrain},
	{"generate", "generate -model NAME [-n N] [-seed S] [-from TOKEN]", runGenerate},
	{"export", "export -model NAME [-format json|yaml] [-o FILE]", runExport},
	{"import", "import [-model NAME] [-format json|yaml] FILE", runImport},
	{"list", "list", runList},
	{"stats", "stats", runStats},
	{"prune", "prune -model NAME -min N", runPrune},
	{"remove", "remove -model NAME", runRemove},
	{"serve", "serve", runServe},
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: markovwalk [-config FILE] <command> [flags]")
	_, _ = fmt.Fprintln(w, "\ncommands:")
	for _, c := range commands {
		_, _ = fmt.Fprintf(w, "  %s\n", c.usage)
	}
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "markovwalk: %v\n", err)
		os.Exit(1)
	}
}

// run parses the global flags, opens the store and dispatches to a subcommand.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("markovwalk", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() { usage(fs.Output()) }
	configPath := fs.String("config", "./config.json", "path to the JSON config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no command given")
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == fs.Arg(0) {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		fs.Usage()
		return fmt.Errorf("unknown command %q", fs.Arg(0))
	}

	config, err := LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	a, err := newApp(config, stdout)
	if err != nil {
		return err
	}
	defer a.close()

	return cmd.run(ctx, a, fs.Args()[1:])
}

// newApp opens the configured database and prepares the store.
func newApp(config *Config, stdout io.Writer) (*app, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.logLevel()}))

	db, err := initDB(config.Server.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err = store.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup markov schema: %w", err)
	}
	s, err := store.NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error creating markov store: %w", err)
	}
	s.SetLogger(logger)

	return &app{
		config: config,
		logger: logger,
		db:     db,
		store:  s,
		stdout: stdout,
	}, nil
}

func (a *app) close() {
	a.store.Close()
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database", "error", err)
	}
}
