package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"waypoint/internal/adapter"
	"waypoint/internal/cache"
	"waypoint/internal/candidate"
	"waypoint/internal/codec"
	"waypoint/internal/config"
	"waypoint/internal/domain"
	"waypoint/internal/handler"
	"waypoint/internal/hub"
	"waypoint/internal/netinfo"
	"waypoint/internal/prober"
	"waypoint/internal/repository/sqlite"
	"waypoint/internal/resolver"
	"waypoint/internal/service"
	"waypoint/internal/watcher"
)

const usage = `Usage: waypoint [flags] <command> [args]

Commands:
  init               write a default config file
  serve              run the resolver with the operator API and config watcher
  resolve            resolve the backend endpoint once, probing if needed
  override <host>    pin the endpoint (host, host:port or base URL)
  clear              drop the override and cached endpoint
  reset              drop override, cached endpoint and probe history
  test <url|host>    probe a backend once
  status             show the endpoint of a running server

Flags:
`

func main() {
	configPath := flag.String("config", "", "config file path (default: search standard locations)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if flag.Arg(0) == "init" {
		if err := runInit(*configPath); err != nil {
			log.Fatalf("init: %v", err)
		}
		return
	}

	cfg, path := loadConfig(*configPath)
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	var err error
	switch cmd {
	case "serve":
		err = runServe(cfg, path, args)
	case "resolve":
		err = runResolve(cfg, args)
	case "override":
		err = runOverride(cfg, args)
	case "clear":
		err = runClear(cfg, false)
	case "reset":
		err = runClear(cfg, true)
	case "test":
		err = runTest(cfg, args)
	case "status":
		err = runStatus(cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

// runInit writes the default config without overwriting an existing file
func runInit(path string) error {
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func loadConfig(explicit string) (*config.Config, string) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if explicit != "" {
		cfg, path, err = config.LoadFromPath(explicit)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if path == "" {
		log.Printf("No config file found, using defaults")
	} else {
		log.Printf("Config loaded: %s", path)
	}
	return cfg, path
}

// app holds the wired components shared by every command
type app struct {
	cfg      *config.Config
	repo     *sqlite.Repository
	cache    *cache.Cache
	source   *candidate.Source
	prober   *prober.HTTPProber
	resolver *resolver.Resolver
	bus      *service.EventBus
}

func newApp(cfg *config.Config, opts ...resolver.Option) (*app, error) {
	def, err := cfg.Default()
	if err != nil {
		return nil, err
	}
	forced, err := cfg.Forced()
	if err != nil {
		return nil, err
	}

	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	behavior := cfg.EffectiveBehavior()
	mode := cfg.EffectiveMode()
	bus := service.NewEventBus()
	c := cache.New(repo)

	src := candidate.NewSource(candidate.Config{
		Template:       def,
		StaticHosts:    cfg.StaticHosts,
		SequentialScan: behavior.SequentialScan,
	}, c, c)
	if mode.Allows(config.ModeSweep) {
		sweepOpts := []adapter.NmapOption{
			adapter.WithTimeout(behavior.SweepTimeout),
			adapter.WithPublisher(bus),
		}
		if cfg.Sweep.Port > 0 {
			sweepOpts = append(sweepOpts, adapter.WithBackendPort(cfg.Sweep.Port))
		}
		port := cfg.Sweep.Port
		if port == 0 {
			port = def.Port
		}
		if port == 0 {
			port = 80
			if def.Scheme == "https" {
				port = 443
			}
		}
		tcp := adapter.NewTCPSweeper(adapter.DefaultTCPSweeperConfig(port))
		tcp.SetEventPublisher(bus)
		src.SetSweeper(adapter.FallbackSweeper{
			Primary:   adapter.NewNmapSweeper(sweepOpts...),
			Secondary: tcp,
		})
	}

	p := prober.New(prober.Config{
		HealthPath: cfg.HealthPath,
		Timeout:    behavior.ProbeTimeout,
	})

	ropts := []resolver.Option{
		resolver.WithEventBus(bus),
		resolver.WithMaxConcurrentProbes(behavior.MaxConcurrentProbes),
	}
	if forced != nil {
		ropts = append(ropts, resolver.WithForced(*forced))
	}
	if !mode.Allows(config.ModeProbe) {
		ropts = append(ropts, resolver.WithoutDiscovery())
	}
	ropts = append(ropts, opts...)

	r := resolver.New(c, src, p, netinfo.NewSystem(), def, ropts...)

	return &app{
		cfg:      cfg,
		repo:     repo,
		cache:    c,
		source:   src,
		prober:   p,
		resolver: r,
		bus:      bus,
	}, nil
}

func (a *app) Close() {
	if err := a.resolver.Close(); err != nil {
		log.Printf("Resolver shutdown error: %v", err)
	}
	if err := a.repo.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}
}

func runServe(cfg *config.Config, path string, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", cfg.API.Addr, "HTTP listen address")
	fs.Parse(args)

	log.Println("Starting waypoint...")
	log.Println(cfg.Summary())

	a, err := newApp(cfg, resolver.WithScheduler(resolver.NewSupervisorScheduler("waypoint")))
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stream bus events to SSE clients
	sseHub := hub.New()
	go sseHub.Run(ctx, a.bus)

	if path != "" {
		reloader := watcher.NewReloader(path, cfg, a.source, a.resolver, a.bus)
		w := watcher.New(path, reloader.OnChange)
		go func() {
			if err := w.Watch(ctx); err != nil && err != context.Canceled {
				log.Printf("Config watcher stopped: %v", err)
			}
		}()
	}

	// Kick off discovery so the cache is warm before the first client asks
	state := a.resolver.Resolve(ctx)
	log.Printf("Initial endpoint: %s (%s)", state.BaseURL(), state.Provenance)

	mux := http.NewServeMux()
	handler.NewEndpointHandler(a.resolver).Register(mux)
	mux.Handle("GET /events", sseHub)

	finalHandler := handler.Chain(mux,
		handler.Recover,
		handler.CORS,
		handler.Logger,
	)

	server := &http.Server{
		Addr:        *addr,
		Handler:     finalHandler,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Operator API listening on %s", *addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	return nil
}

func runResolve(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	format := fs.String("o", "json", "output format (json, yaml)")
	noProbe := fs.Bool("no-probe", false, "answer from override, cache or default without probing")
	fs.Parse(args)

	c, err := codec.ForFormat(*format)
	if err != nil {
		return err
	}

	var opts []resolver.Option
	if *noProbe {
		opts = append(opts, resolver.WithoutDiscovery())
	}
	a, err := newApp(cfg, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	// The synchronous scheduler has finished any discovery by the time
	// Resolve returns, so Current reflects the probed answer
	a.resolver.Resolve(context.Background())
	return c.Encode(a.resolver.Current(), os.Stdout)
}

func runOverride(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: waypoint override <host|host:port|url>")
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.resolver.Override(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Println(a.resolver.Current().BaseURL())
	return nil
}

func runClear(cfg *config.Config, all bool) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if all {
		err = a.resolver.Reset(ctx)
	} else {
		err = a.resolver.ClearOverride(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func runTest(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: waypoint test <url|host>")
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	def, err := cfg.Default()
	if err != nil {
		return err
	}
	ep, err := domain.ParseOverride(args[0], def)
	if err != nil {
		return err
	}
	if !a.resolver.TestConnection(context.Background(), ep) {
		return fmt.Errorf("%s is not reachable", ep)
	}
	fmt.Printf("%s is reachable\n", ep)
	return nil
}

func runStatus(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	api := fs.String("api", cfg.API.Addr, "operator API address of a running server")
	format := fs.String("o", "yaml", "output format (json, yaml)")
	fs.Parse(args)

	out, err := codec.ForFormat(*format)
	if err != nil {
		return err
	}

	base := *api
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(strings.TrimSuffix(base, "/") + "/api/endpoint?cached=true")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}

	state, err := codec.NewJSONCodec().Decode(resp.Body)
	if err != nil {
		return err
	}
	return out.Encode(state, os.Stdout)
}
