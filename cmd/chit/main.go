// Command chit is an interactive shell and command line for a chit
// patch directory.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/davidad/chit"
	"github.com/davidad/chit/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "chit",
	Short: "Version control for sets of entities",
	Long: `chit keeps the history of a set of entities as immutable patch files.
Without arguments it opens an interactive shell; "chit <command>" runs a
single shell command and exits.`,
	SilenceUsage: true,
	RunE:         runRoot,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "YAML config file")
	flags.String("dir", ".", "directory holding patches/")
	flags.String("index", "", "pebble index store directory (disabled when empty)")
	flags.String("log-level", "warn", "debug, info, warn or error")
	flags.String("metrics", "", "serve prometheus metrics on this address")
	flags.Bool("quarantine", false, "move invalid patch files aside instead of failing")
	flags.Int("workers", 0, "parallel patch decoders (default GOMAXPROCS)")
}

func openHost(cmd *cobra.Command) (*Host, *chit.Chit, Config, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, nil, cfg, err
	}
	cfg.override(cmd.Flags())
	level, err := utils.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, cfg, err
	}
	logger := utils.NewDefaultLogger(level)
	c, err := chit.Open(chit.Options{
		Dir:               cfg.Dir,
		IndexDir:          cfg.Index,
		Logger:            logger,
		LoadWorkers:       cfg.LoadWorkers,
		QuarantineInvalid: cfg.Quarantine,
	})
	if err != nil {
		logger.Error("cannot open patch directory", "dir", cfg.Dir, "err", err)
		return nil, nil, cfg, err
	}
	return NewHost(c, cmd.OutOrStdout()), c, cfg, nil
}

func serveMetrics(addr string, c *chit.Chit) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(chit.Collectors()...)
	if store := c.Index(); store != nil {
		reg.MustRegister(store.Collector())
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.Logger().Error("metrics server stopped", "addr", addr, "err", err)
		}
	}()
}

func runRoot(cmd *cobra.Command, args []string) (err error) {
	host, c, cfg, err := openHost(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}()
	if cfg.Metrics != "" {
		serveMetrics(cfg.Metrics, c)
	}
	if len(args) > 0 {
		return host.Exec(strings.Join(args, " "))
	}
	repl := REPL{host: host}
	if err := repl.Open(filepath.Join(cfg.Dir, ".chit_history")); err != nil {
		return err
	}
	defer repl.Close()
	return repl.Run()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
