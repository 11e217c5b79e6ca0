package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/umputun/mockstudio/app/catalog"
	"github.com/umputun/mockstudio/app/gallery"
	"github.com/umputun/mockstudio/app/generate"
	"github.com/umputun/mockstudio/app/notify"
	"github.com/umputun/mockstudio/app/web"
)

var opts struct {
	CatalogFile string `short:"c" long:"catalog" env:"MOCKSTUDIO_CATALOG" description:"catalog yaml file, embedded default if empty"`
	Dbg         bool   `long:"dbg" env:"MOCKSTUDIO_DEBUG" description:"debug mode"`

	Gemini struct {
		APIKey      string        `long:"key" env:"KEY" description:"gemini api key"`
		URL         string        `long:"url" env:"URL" default:"https://generativelanguage.googleapis.com" description:"gemini api base url"`
		Model       string        `long:"model" env:"MODEL" default:"gemini-2.5-flash-image" description:"image model"`
		Timeout     time.Duration `long:"timeout" env:"TIMEOUT" default:"2m" description:"timeout of a single generation call"`
		AspectRatio string        `long:"aspect" env:"ASPECT" description:"aspect ratio of generated images, model default if empty"`
	} `group:"gemini" namespace:"gemini" env-namespace:"MOCKSTUDIO_GEMINI"`

	Gallery struct {
		DBPath string `long:"db" env:"DB" description:"sqlite database file for the gallery, in-memory if empty"`
	} `group:"gallery" namespace:"gallery" env-namespace:"MOCKSTUDIO_GALLERY"`

	Repeater struct {
		Attempts int           `long:"attempts" env:"ATTEMPTS" default:"1" description:"how many times to try a failed generation call"`
		Duration time.Duration `long:"duration" env:"DURATION" default:"1s" description:"initial duration"`
		Factor   float64       `long:"factor" env:"FACTOR" default:"3" description:"backoff factor"`
		Jitter   bool          `long:"jitter" env:"JITTER" description:"jitter"`
	} `group:"repeater" namespace:"repeater" env-namespace:"MOCKSTUDIO_REPEATER"`

	Notify struct {
		EnabledError       bool          `long:"enabled-error" env:"ENABLED_ERROR" description:"notify on failed batches"`
		EnabledCompletion  bool          `long:"enabled-complete" env:"ENABLED_COMPLETE" description:"notify on completed batches"`
		Destinations       []string      `long:"dest" env:"DEST" env-delim:"," description:"webhook urls or slack:channel"`
		SlackToken         string        `long:"slack-token" env:"SLACK_TOKEN" description:"slack token for slack:channel destinations"`
		Timeout            time.Duration `long:"timeout" env:"TIMEOUT" default:"10s" description:"notification timeout"`
		ErrorTemplate      string        `long:"err-template" env:"ERR_TEMPLATE" description:"failure message template file"`
		CompletionTemplate string        `long:"complete-template" env:"COMPLETE_TEMPLATE" description:"completion message template file"`
		Link               string        `long:"link" env:"LINK" description:"absolute studio url added to messages, e.g. https://studio.example.com/studio"`
	} `group:"notify" namespace:"notify" env-namespace:"MOCKSTUDIO_NOTIFY"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable logging to file"`
		Filename        string `long:"filename" env:"FILENAME" description:"file to write logs to, stdout if empty"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"maximum size in megabytes before rotation"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"maximum number of old log files to retain"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"0" description:"maximum days to retain old log files"`
		EnabledCompress bool   `long:"enabled-compress" env:"ENABLED_COMPRESS" description:"compress rotated log files"`
	} `group:"log" namespace:"log" env-namespace:"MOCKSTUDIO_LOG"`

	Web struct {
		Address      string        `long:"address" env:"ADDRESS" default:":8080" description:"web server listen address"`
		BaseURL      string        `long:"base-url" env:"BASE_URL" description:"base url path for reverse proxy, e.g. /studio"`
		PasswordHash string        `long:"password-hash" env:"PASSWORD_HASH" description:"bcrypt hash of web ui password, no auth if empty"`
		SessionTTL   time.Duration `long:"session-ttl" env:"SESSION_TTL" default:"24h" description:"idle session lifetime"`
		MaxSessions  int           `long:"max-sessions" env:"MAX_SESSIONS" default:"1000" description:"max number of live sessions"`
		MaxBatches   int           `long:"max-batches" env:"MAX_BATCHES" default:"4" description:"max generation batches running at once"`
		GenerateRate float64       `long:"generate-rate" env:"GENERATE_RATE" default:"1" description:"generate requests per second per client"`
	} `group:"web" namespace:"web" env-namespace:"MOCKSTUDIO_WEB"`
}

var revision = "unknown"

func main() {
	fmt.Printf("mockstudio %s\n", revision)

	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(2)
	}
	setupLogger(setupLogs(), opts.Dbg)

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	signals(cancel) // handle SIGQUIT and SIGTERM

	if err := run(ctx); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if opts.Gemini.APIKey == "" {
		return errors.New("gemini api key is required")
	}
	if err := generate.CheckAspectRatio(opts.Gemini.AspectRatio); err != nil {
		return err
	}

	cat, err := catalog.Load(opts.CatalogFile)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	store, err := makeGallery()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("[WARN] failed to close gallery: %v", err)
		}
	}()

	gemini := generate.NewGemini(generate.GeminiParams{BaseURL: opts.Gemini.URL, Model: opts.Gemini.Model,
		APIKey: opts.Gemini.APIKey, Timeout: opts.Gemini.Timeout})
	log.Printf("[INFO] generator: %s", gemini)

	runner := &generate.Runner{
		Generator:   gemini,
		Catalog:     cat,
		Repeater:    makeRepeater(),
		AspectRatio: opts.Gemini.AspectRatio,
	}

	cfg := web.Config{
		Catalog:      cat,
		Gallery:      store,
		Runner:       runner,
		BaseURL:      validateBaseURL(opts.Web.BaseURL),
		Version:      revision,
		PasswordHash: opts.Web.PasswordHash,
		SessionTTL:   opts.Web.SessionTTL,
		MaxSessions:  opts.Web.MaxSessions,
		MaxBatches:   opts.Web.MaxBatches,
		GenerateRate: opts.Web.GenerateRate,
		KeepGallery:  opts.Gallery.DBPath != "",
	}
	if ntf := makeNotifier(); ntf != nil {
		cfg.Notifier = ntf
	}

	srv, err := web.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}
	return srv.Run(ctx, opts.Web.Address)
}

func makeGallery() (gallery.Store, error) {
	if opts.Gallery.DBPath == "" {
		log.Printf("[INFO] gallery kept in memory")
		return gallery.NewMemory(), nil
	}
	store, err := gallery.NewSQLite(opts.Gallery.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open gallery %s: %w", opts.Gallery.DBPath, err)
	}
	log.Printf("[INFO] gallery stored in %s", opts.Gallery.DBPath)
	return store, nil
}

func makeRepeater() generate.Repeater {
	attempts := max(opts.Repeater.Attempts, 1)
	return repeater.New(&strategy.Backoff{Repeats: attempts, Duration: opts.Repeater.Duration,
		Factor: opts.Repeater.Factor, Jitter: opts.Repeater.Jitter})
}

// makeNotifier returns nil if no destinations defined or all notifications are disabled
func makeNotifier() *notify.Service {
	ntf := notify.NewService(notify.Params{
		EnabledError:       opts.Notify.EnabledError,
		EnabledCompletion:  opts.Notify.EnabledCompletion,
		ErrorTemplate:      opts.Notify.ErrorTemplate,
		CompletionTemplate: opts.Notify.CompletionTemplate,
		Link:               opts.Notify.Link,
	}, notify.SendersParams{
		Destinations: opts.Notify.Destinations,
		SlackToken:   opts.Notify.SlackToken,
		Timeout:      opts.Notify.Timeout,
	})
	if !ntf.IsOnError() && !ntf.IsOnCompletion() {
		return nil
	}
	log.Printf("[INFO] notifications enabled, error:%v, completion:%v", ntf.IsOnError(), ntf.IsOnCompletion())
	return ntf
}

// validateBaseURL normalizes base url path, "/" and "" mean no base url
func validateBaseURL(u string) string {
	u = strings.TrimSuffix(u, "/")
	if u != "" && !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return u
}

// setupLogs returns log destination, lumberjack rotated file if filename is set
func setupLogs() io.Writer {
	if !opts.Log.Enabled || opts.Log.Filename == "" {
		return os.Stdout
	}
	return &lumberjack.Logger{
		Filename:   opts.Log.Filename,
		MaxSize:    opts.Log.MaxSize,
		MaxBackups: opts.Log.MaxBackups,
		MaxAge:     opts.Log.MaxAge,
		Compress:   opts.Log.EnabledCompress,
	}
}

func setupLogger(out io.Writer, dbg bool) {
	if dbg {
		log.Setup(log.Debug, log.Msec, log.CallerFunc, log.CallerPkg, log.CallerFile, log.Out(out), log.Err(out))
		return
	}
	log.Setup(log.Msec, log.Out(out), log.Err(out))
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT { // catch SIGQUIT and print stack traces
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			log.Printf("[INFO] got %s, shutting down", sig)
			cancel()
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
}
