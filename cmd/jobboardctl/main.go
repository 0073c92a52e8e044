// Command jobboardctl drives the job board backend from a terminal: sign
// in, pick the organization to act for and run the offer workflow.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/goliatone/go-jobboard"
	"github.com/goliatone/go-jobboard/activitymap"
	"github.com/goliatone/go-jobboard/client"
	"github.com/goliatone/go-jobboard/config"
	"github.com/goliatone/go-jobboard/middleware/access"
	"github.com/goliatone/go-jobboard/storage"
	"github.com/goliatone/go-jobboard/storage/redisstore"
	"github.com/goliatone/go-jobboard/storage/sqlstore"
)

const usage = `usage: jobboardctl [-config file] <command> [args]

commands:
  login -email E -password P [-remember]
  logout
  whoami
  tenants                      list and load managed organizations
  select-tenant ID
  offers [-featured|-mine]
  offer ID
  submit|validate|publish|close ID
  reject ID -reason TEXT
  feature ID -level N [-days D]
  unfeature ID
  candidature-status ID -offer OFFER_ID -status acceptee|refusee [-message M]
  pending-tenants              organizations waiting for review
  validate-tenant|revalidate-tenant ID
  reject-tenant ID -reason TEXT
  track CODE
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("jobboardctl", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	zl, err := newZap(cfg.Logging)
	if err != nil {
		return err
	}
	defer zl.Sync()
	logger := jobboard.NewZapLogger(zl)

	store, closeStore, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	app, err := client.NewApp(ctx, client.Config{
		BaseURL:         cfg.API.BaseURL,
		Navigator:       &navigator{cfg: cfg.UI, logger: logger},
		Timeout:         cfg.API.Timeout,
		UploadTimeout:   cfg.API.UploadTimeout,
		UploadLimit:     cfg.API.UploadLimit,
		PublicLocations: cfg.UI.PublicLocations,
		Metrics:         access.NewMetrics(cfg.API.MetricsNamespace, prometheus.DefaultRegisterer),
		Logger:          logger,
		Debug:           cfg.Logging.Level == "debug",
	}, store, client.AppOptions{
		PhoneRegion:  cfg.PhoneRegion,
		ActivitySink: activitymap.ZapSink(zl.Named("activity"), activitymap.WithDefaultChannel("cli")),
	})
	if err != nil {
		return err
	}
	defer app.Close()

	cmd := command{app: app, out: out, now: time.Now}
	return cmd.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
}

func newZap(cfg config.Logging) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = level
	return zc.Build()
}

func openStore(ctx context.Context, cfg config.Storage, logger jobboard.Logger) (storage.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := sqlstore.OpenSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.DriverRedis:
		s, err := redisstore.Connect(ctx, &redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
			TTL:      cfg.RedisTTL,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		logger.Info("memory storage: the session ends with the process")
		return storage.NewMemory(), func() {}, nil
	}
}

// navigator reports the redirects the library asks for. The terminal is a
// protected location so a missing token prints the login hint.
type navigator struct {
	cfg    config.UI
	logger jobboard.Logger
}

func (n *navigator) CurrentLocation() string {
	return "/cli"
}

func (n *navigator) RedirectToLogin(context.Context) {
	n.logger.Info("authentication required (%s), run: jobboardctl login", n.cfg.LoginLocation)
}

func (n *navigator) RedirectToAccessDenied(context.Context) {
	n.logger.Error("access denied (%s)", n.cfg.AccessDeniedLocation)
}

func describe(err error) string {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		msg := fmt.Sprintf("%s: %s", rich.TextCode, rich.Message)
		if fields := jobboard.FieldErrors(err); len(fields) > 0 {
			msg += "\n" + print.MaybePrettyJSON(fields)
		}
		return msg
	}
	return err.Error()
}

func parseID(args []string) (int64, []string, error) {
	if len(args) == 0 {
		return 0, nil, errors.New("missing id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, nil, fmt.Errorf("invalid id %q", args[0])
	}
	return id, args[1:], nil
}
