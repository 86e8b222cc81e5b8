// Command rpipe-server runs the channel relay described in SPEC_FULL.md,
// wired the way cmd/registry wires the teacher's handlers.App: parse
// configuration, configure logging, build the application, and serve.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rpipe-project/rpipe-server/internal/admin"
	"github.com/rpipe-project/rpipe-server/internal/config"
	"github.com/rpipe-project/rpipe-server/internal/eventbus"
	"github.com/rpipe-project/rpipe-server/internal/httpapi"
	"github.com/rpipe-project/rpipe-server/internal/logctx"
	"github.com/rpipe-project/rpipe-server/internal/persist"
	"github.com/rpipe-project/rpipe-server/internal/prune"
	"github.com/rpipe-project/rpipe-server/internal/shutdown"
	"github.com/rpipe-project/rpipe-server/internal/state"
	"github.com/rpipe-project/rpipe-server/internal/stats"
	"github.com/rpipe-project/rpipe-server/internal/version"
)

var showVersion bool

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "show the version and exit")
}

var rootCmd = &cobra.Command{
	Use:   "rpipe-server",
	Short: "rpipe-server relays small byte streams between an uploader and a downloader",
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.Build())
			return
		}
		// nolint:errcheck
		cmd.Usage()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve <config>",
	Short: "serve starts the relay's HTTP listener",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := run(args[0]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string) error {
	fp, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("opening configuration: %w", err)
	}
	cfg, err := config.Parse(fp)
	fp.Close()
	if err != nil {
		return fmt.Errorf("parsing configuration: %w", err)
	}

	log := configureLogging(cfg)

	bus := eventbus.New()
	defer bus.Close()
	st := state.New(bus)
	collector := stats.NewCollector()
	bus.Subscribe(collector.Sink())

	if cfg.StateFile != "" {
		streams, err := persist.Load(cfg.StateFile)
		if err != nil {
			log.Warnf("snapshot load failed, starting empty: %v", err)
		} else if err := st.Restore(streams); err != nil {
			log.Warnf("snapshot restore failed, starting empty: %v", err)
		} else if len(streams) > 0 {
			log.Infof("restored %d channel(s) from %s", len(streams), cfg.StateFile)
		}
	}

	gate, err := buildGate(cfg)
	if err != nil {
		return fmt.Errorf("configuring admin gate: %w", err)
	}

	ctx := logctx.WithLogger(context.Background(), logrus.NewEntry(logrus.StandardLogger()))
	coord, ctx := shutdown.New(ctx, st, cfg.StateFile)

	app := &httpapi.App{
		State:      st,
		Config:     cfg,
		Stats:      collector,
		Gate:       gate,
		Nonces:     gate.Nonces,
		Version:    version.MustParse(version.Build()),
		MinVersion: persist.MinSaveStateVersion,
		StopFn:     func() { coord.Trigger(ctx) },
	}

	pruner := prune.New(st, cfg.Limits.PruneInterval)
	go pruner.Run(ctx)
	go coord.Listen(ctx)

	handler := httpapi.NewRouter(app)
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warnf("http server shutdown: %v", err)
		}
	}()

	if cfg.TLSEnabled() {
		server.TLSConfig = &tls.Config{ClientAuth: tls.NoClientCert}
		log.Infof("listening on %s, tls", cfg.HTTP.Addr)
		err = server.ListenAndServeTLS(cfg.HTTP.TLS.Certificate, cfg.HTTP.TLS.Key)
	} else {
		log.Infof("listening on %s", cfg.HTTP.Addr)
		err = server.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func buildGate(cfg *config.Configuration) (*admin.Gate, error) {
	nonces := admin.NewNoncePool()
	gate := &admin.Gate{Nonces: nonces, RequireTLS: cfg.Admin.RequireTLS}
	if cfg.Admin.AuthorizedKeysFile == "" {
		return gate, nil
	}
	keyLine, err := os.ReadFile(cfg.Admin.AuthorizedKeysFile)
	if err != nil {
		return nil, fmt.Errorf("reading authorized keys file: %w", err)
	}
	verifier, err := admin.NewSSHVerifier(keyLine)
	if err != nil {
		return nil, err
	}
	gate.Verifier = verifier
	return gate, nil
}

func configureLogging(cfg *config.Configuration) logctx.Logger {
	level, err := logrus.ParseLevel(string(cfg.Log.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	switch cfg.Log.Formatter {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		logrus.Warnf("unsupported log formatter %q, using text", cfg.Log.Formatter)
		logrus.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339Nano})
	}
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
