package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/salessavvy-storefront/internal/backend"
	"github.com/angelmondragon/salessavvy-storefront/internal/cart"
	"github.com/angelmondragon/salessavvy-storefront/internal/orders"
	"github.com/angelmondragon/salessavvy-storefront/internal/persist"
	"github.com/angelmondragon/salessavvy-storefront/internal/session"
	"github.com/angelmondragon/salessavvy-storefront/pkg/config"
	"github.com/angelmondragon/salessavvy-storefront/pkg/logger"
	"github.com/angelmondragon/salessavvy-storefront/pkg/metrics"
)

const usage = `usage: storefront [flags] <command> [args]

commands:
  login -u <username|email> -p <password>
  register -u <username> -e <email> -p <password> [-role CUSTOMER|ADMIN]
  logout | whoami | health
  forgot <email> | reset <token> <new-password> | check-reset <token>
  cart | add <productId> [qty] | update <cartItemId> <qty> | remove <cartItemId> | clear
  checkout -address <text> -method COD|CARD|UPI|WALLET [method flags]
  orders | order <orderId> | cancel <orderId> | status <orderId> <STATUS>
`

type app struct {
	out      io.Writer
	logg     *logger.Logger
	registry *prometheus.Registry
	client   *backend.Client
	store    persist.Store
	session  *session.Store
	cart     *cart.Store
	workflow *orders.Workflow
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logg := logger.New(logger.Options{ServiceName: "storefront"})
	_ = godotenv.Load()

	baseURL := flag.String("api", "", "backend base url (overrides SALESSAVVY_API_BASE_URL)")
	showMetrics := flag.Bool("metrics", false, "print request metrics after the command")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      os.Stderr,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": flag.Arg(0)})

	a, err := newApp(ctx, *cfg, logg, *baseURL)
	requireResource(ctx, logg, "storefront", err)
	defer a.close(ctx)

	a.session.Initialize(ctx)

	err = a.run(ctx, flag.Arg(0), flag.Args()[1:])
	if *showMetrics {
		printMetrics(os.Stderr, a.registry)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(ctx context.Context, cfg config.Config, logg *logger.Logger, baseURL string) (*app, error) {
	registry := prometheus.NewRegistry()
	m := metrics.NewClientMetrics(registry)

	opts := []backend.Option{backend.WithLogger(logg), backend.WithMetrics(m)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, backend.WithBaseURL(baseURL))
	}
	client, err := backend.NewClient(cfg.Backend, opts...)
	if err != nil {
		return nil, err
	}

	store, err := persist.Open(ctx, cfg, logg)
	if err != nil {
		return nil, fmt.Errorf("open session storage: %w", err)
	}

	sess := session.New(client, store, session.WithLogger(logg), session.WithMetrics(m))
	c := cart.New(sess, client, cart.WithLogger(logg))
	return &app{
		out:      os.Stdout,
		logg:     logg,
		registry: registry,
		client:   client,
		store:    store,
		session:  sess,
		cart:     c,
		workflow: orders.New(sess, c, client, orders.WithLogger(logg)),
	}, nil
}

func (a *app) close(ctx context.Context) {
	a.cart.Close()
	if err := a.store.Close(); err != nil {
		a.logg.Error(ctx, "error closing session storage", err)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to initialize "+name, err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
	os.Exit(1)
}
