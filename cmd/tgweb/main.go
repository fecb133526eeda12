package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"nuclight.org/tgweb/app/controller"
	"nuclight.org/tgweb/app/debug"
	"nuclight.org/tgweb/app/engine"
	"nuclight.org/tgweb/app/reporting"
	"nuclight.org/tgweb/app/session"
	"nuclight.org/tgweb/app/storage"
	"nuclight.org/tgweb/pkg/logger"
)

type options struct {
	Config   string `long:"config" env:"TGWEB_CONFIG" description:"path to an ini config file, command line flags override it"`
	LogLevel string `long:"log-level" env:"LOG_LEVEL" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"log level"`

	Engine struct {
		Kind    string `long:"kind" ini-name:"kind" env:"KIND" default:"websocket" choice:"websocket" choice:"botapi" description:"engine adapter"`
		URL     string `long:"url" ini-name:"url" env:"URL" default:"ws://127.0.0.1:8080/engine" description:"websocket engine endpoint"`
		Token   string `long:"token" ini-name:"token" env:"TOKEN" description:"telegram bot api token for the botapi engine"`
		Workers int    `long:"workers" ini-name:"workers" env:"WORKERS" default:"5" description:"number of update workers for the botapi engine"`
	} `group:"engine" namespace:"engine" env-namespace:"ENGINE"`

	Retry struct {
		Attempts uint64        `long:"attempts" ini-name:"attempts" env:"ATTEMPTS" default:"3" description:"attempts per ui request, 1 disables retries"`
		Initial  time.Duration `long:"initial" ini-name:"initial" env:"INITIAL" default:"500ms" description:"first retry delay"`
		Max      time.Duration `long:"max" ini-name:"max" env:"MAX" default:"30s" description:"longest retry delay"`
	} `group:"retry" namespace:"retry" env-namespace:"RETRY"`

	JournalPath string `long:"journal" env:"JOURNAL_PATH" description:"path to the sqlite request journal, empty disables it"`
	SentryDSN   string `long:"sentry-dsn" env:"SENTRY_DSN" description:"sentry dsn for fatal error reports"`
	DebugAddr   string `long:"debug-addr" env:"DEBUG_ADDR" description:"listen address of the debug http server, empty disables it"`
}

var opts options

var Revision = "dev"

func main() {
	if err := parseOptions(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	log := logger.New(level)
	log.Info("starting client", "revision", Revision, "engine", opts.Engine.Kind)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, log, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("running client", "error", err)
		os.Exit(1)
	}

	log.Info("stopping client")
	os.Exit(0)
}

// parseOptions reads the ini file named by --config first so that the command line
// and the environment override it.
func parseOptions(args []string) error {
	var pre struct {
		Config string `long:"config" env:"TGWEB_CONFIG"`
	}
	if _, err := flags.NewParser(&pre, flags.IgnoreUnknown).ParseArgs(args); err != nil {
		return err
	}

	parser := flags.NewParser(&opts, flags.Default)
	if pre.Config != "" {
		if err := flags.NewIniParser(parser).ParseFile(pre.Config); err != nil {
			fmt.Fprintf(os.Stderr, "reading config %s: %v\n", pre.Config, err)
			return err
		}
	}

	_, err := parser.ParseArgs(args)
	return err
}

func run(ctx context.Context, log logger.Logger, in io.Reader, out io.Writer) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := controller.NewMetrics(reg)

	reporter, err := reporting.New(log, reporting.Options{
		DSN:     opts.SentryDSN,
		Release: Revision,
		Engine:  opts.Engine.Kind,
	})
	if err != nil {
		return fmt.Errorf("creating reporter: %w", err)
	}
	defer reporter.Close()

	var journal controller.Journal
	if opts.JournalPath != "" {
		db, err := storage.NewSQLite(ctx, opts.JournalPath)
		if err != nil {
			return fmt.Errorf("creating sqlite3 database: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("closing sqlite3 database", "error", err)
			}
		}()
		journal = db
	}

	dbg := debug.New(log, reg)
	if opts.DebugAddr != "" {
		go func() {
			if err := dbg.ListenAndServe(ctx, opts.DebugAddr); err != nil {
				log.Error("serving debug http", "error", err)
			}
		}()
	}

	lines := readLines(ctx, in)

	for {
		eng, closeEngine, err := openEngine(ctx, log)
		if err != nil {
			return err
		}

		s := session.New(log, session.Config{
			Engine:   eng,
			Journal:  journal,
			Metrics:  metrics,
			Reporter: reporter,
			Retry: controller.RetryPolicy{
				MaxAttempts:     opts.Retry.Attempts,
				InitialInterval: opts.Retry.Initial,
				MaxInterval:     opts.Retry.Max,
			},
		})
		dbg.SetSource(s)

		err = serve(ctx, log, s, lines, out)

		dbg.SetSource(nil)
		s.Close()
		if cerr := closeEngine(); cerr != nil {
			log.Warn("closing engine", "error", cerr)
		}

		switch {
		case errors.Is(err, session.ErrRestart):
			log.Info("session restarted")
			continue
		case errors.Is(err, errQuit):
			return nil
		default:
			return err
		}
	}
}

// serve runs one session, applying input lines and printing a frame after every
// change.
func serve(ctx context.Context, log logger.Logger, s *session.Session, lines <-chan string, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	for {
		select {
		case err := <-done:
			return err
		case <-s.Changed():
			frame, err := s.Render(ctx)
			if err != nil {
				continue
			}
			fmt.Fprintln(out, frame)
		case line, ok := <-lines:
			if !ok {
				cancel()
				<-done
				return errQuit
			}

			act, err := parseCommand(ctx, line)
			if errors.Is(err, errQuit) {
				cancel()
				<-done
				return errQuit
			}
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			if act == nil {
				continue
			}
			if err := s.Do(ctx, act); err != nil {
				log.Warn("applying command", "error", err)
			}
		}
	}
}

func openEngine(ctx context.Context, log logger.Logger) (controller.Engine, func() error, error) {
	switch opts.Engine.Kind {
	case "botapi":
		bot := &engine.BotAPI{
			Log:        log.With("engine", "botapi"),
			APIToken:   opts.Engine.Token,
			WorkersNum: opts.Engine.Workers,
		}
		if err := bot.Start(ctx); err != nil {
			return nil, nil, fmt.Errorf("starting bot api engine: %w", err)
		}
		return bot, bot.Close, nil
	default:
		var ws *engine.Websocket
		op := func() error {
			var err error
			ws, err = engine.DialWebsocket(ctx, log, opts.Engine.URL, nil)
			return err
		}
		notify := func(err error, wait time.Duration) {
			log.Warn("engine unreachable", "wait", wait, "error", err)
		}
		if err := backoff.RetryNotify(op, backoff.WithContext(backoff.NewExponentialBackOff(), ctx), notify); err != nil {
			return nil, nil, fmt.Errorf("connecting to engine: %w", err)
		}
		return ws, ws.Close, nil
	}
}

func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
