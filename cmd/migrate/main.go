package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Piotrek1987/ds-online-shop/pkg/config"
	"github.com/Piotrek1987/ds-online-shop/pkg/db"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
	"github.com/Piotrek1987/ds-online-shop/pkg/migrate"
	"github.com/joho/godotenv"
)

type options struct {
	dir     string
	name    string
	version string
}

type command struct {
	needsDB bool
	run     func(ctx context.Context, deps deps, opts options) error
}

type deps struct {
	logg   *logger.Logger
	cfg    *config.Config
	client *db.Client
}

var commands = map[string]command{
	"create":   {run: runCreate},
	"validate": {run: runValidate},
	"up":       {needsDB: true, run: runUp},
	"down":     {needsDB: true, run: runDown},
	"status":   {needsDB: true, run: runStatus},
	"version":  {needsDB: true, run: runVersion},
}

func main() {
	_ = godotenv.Load()

	cmdName := flag.String("cmd", "up", "migration command: "+commandNames())
	var opts options
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name (for -cmd=create)")
	flag.StringVar(&opts.version, "version", "", "target version YYYYMMDDHHMMSS (for -cmd=version)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	ctx := context.Background()

	cmd, ok := commands[*cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown -cmd %q (want %s)\n", *cmdName, commandNames())
		os.Exit(2)
	}

	cfg, err := config.Load()
	exitOn(ctx, logg, "load config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"cmd":    *cmdName,
		"dir":    opts.dir,
		"driver": cfg.DB.Driver,
	})

	d := deps{logg: logg, cfg: cfg}
	if cmd.needsDB {
		d.client, err = db.New(ctx, cfg.DB, logg)
		exitOn(ctx, logg, "connect database", err)
		defer d.client.Close()
	}

	if err := cmd.run(ctx, d, opts); err != nil {
		logg.Error(ctx, "migrate command failed", err)
		if d.client != nil {
			_ = d.client.Close()
		}
		os.Exit(1)
	}
}

func runCreate(ctx context.Context, d deps, opts options) error {
	if opts.name == "" {
		return fmt.Errorf("-name is required for create")
	}
	path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
	if err != nil {
		return err
	}
	d.logg.Info(d.logg.WithField(ctx, "path", path), "migration created")
	return nil
}

func runValidate(ctx context.Context, d deps, opts options) error {
	if err := migrate.ValidateDir(opts.dir); err != nil {
		return err
	}
	d.logg.Info(ctx, "migrations valid")
	return nil
}

// runUp on sqlite has nothing to apply: db.New already ran AutoMigrate.
func runUp(ctx context.Context, d deps, opts options) error {
	if d.cfg.DB.IsSQLite() {
		d.logg.Info(ctx, "sqlite schema is managed by AutoMigrate")
		return nil
	}
	runner, err := newRunner(d, opts)
	if err != nil {
		return err
	}
	results, err := runner.Up(ctx)
	logApplied(ctx, d.logg, results)
	return err
}

func runDown(ctx context.Context, d deps, opts options) error {
	runner, err := newRunner(d, opts)
	if err != nil {
		return err
	}
	results, err := runner.Down(ctx)
	logApplied(ctx, d.logg, results)
	return err
}

func runStatus(ctx context.Context, d deps, opts options) error {
	runner, err := newRunner(d, opts)
	if err != nil {
		return err
	}
	statuses, err := runner.Status(ctx)
	if err != nil {
		return err
	}
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Printf("%-16d %-8s %s\n", s.Version, state, s.Path)
	}
	return nil
}

func runVersion(ctx context.Context, d deps, opts options) error {
	if opts.version == "" {
		return fmt.Errorf("-version is required for version")
	}
	runner, err := newRunner(d, opts)
	if err != nil {
		return err
	}
	results, err := runner.ToVersion(ctx, opts.version)
	logApplied(ctx, d.logg, results)
	return err
}

func newRunner(d deps, opts options) (*migrate.Runner, error) {
	if d.cfg.DB.IsSQLite() {
		return nil, fmt.Errorf("goose migrations target postgres; sqlite uses AutoMigrate")
	}
	sqlDB, err := d.client.DB().DB()
	if err != nil {
		return nil, fmt.Errorf("extracting sql.DB: %w", err)
	}
	return migrate.NewRunner(sqlDB, opts.dir)
}

func logApplied(ctx context.Context, logg *logger.Logger, results []migrate.Applied) {
	for _, r := range results {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":   r.Version,
			"path":      r.Path,
			"direction": r.Direction,
		}), "migration applied")
	}
	if len(results) == 0 {
		logg.Info(ctx, "no migrations to apply")
	}
}

func commandNames() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

func exitOn(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, step+" failed", err)
	os.Exit(1)
}
