package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/inwatch/inwatch/internal/config"
	"github.com/inwatch/inwatch/internal/inotify"
	"github.com/inwatch/inwatch/internal/inotify/sys"
	"github.com/inwatch/inwatch/internal/logging"
	"github.com/inwatch/inwatch/internal/monitor"
	"github.com/inwatch/inwatch/internal/walker"
)

var bannerLines = []string{
	"  _                 _       _     ",
	" (_)_ ____      ____ _| |_ ___| |__  ",
	" | | '_ \\ \\ /\\ / / _` | __/ __| '_ \\ ",
	" | | | | \\ V  V / (_| | || (__| | | |",
	" |_|_| |_|\\_/\\_/ \\__,_|\\__\\___|_| |_|",
	helpText,
}

var helpText = `
inwatch watches directories for file system events using inotify and
prints them to the console. Watches come from command line flags or a
YAML config file. Handlers fire per watch and per event class; use the
events flag to narrow what gets reported.
`

var banner = strings.Join(bannerLines, "\n")

var rootCmd = &cobra.Command{
	Use:   "inwatch",
	Short: "inwatch reports file system events on watched directories",
	Long:  banner,
}

var configFile string
var rDirs, dirs, eventNames []string
var pollTimeout, drainFor time.Duration
var colored, debug bool

func init() {
	rootCmd.Run = root
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "load watches from this YAML file")
	rootCmd.PersistentFlags().StringArrayVarP(&rDirs, "recursive-dirs", "r", []string{}, "watch these dirs recursively")
	rootCmd.PersistentFlags().StringArrayVarP(&dirs, "dirs", "d", []string{}, "watch these dirs")
	rootCmd.PersistentFlags().StringArrayVarP(&eventNames, "events", "e", []string{}, "event classes to report (default: all)")
	rootCmd.PersistentFlags().DurationVarP(&pollTimeout, "timeout", "t", 500*time.Millisecond, "readiness wait per poll cycle")
	rootCmd.PersistentFlags().DurationVar(&drainFor, "drain-for", time.Second, "discard events for this long after startup")
	rootCmd.PersistentFlags().BoolVar(&colored, "colored", true, "print events in color")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print debug messages")
}

func root(cmd *cobra.Command, args []string) {
	cfg, err := buildConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Debug)
	logger.Infof("Config: %s", cfg)

	fs, err := inotify.New(&sys.InotifySyscallsUNIX{})
	if err != nil {
		logger.Errorf("initializing watch facility: %v", err)
		os.Exit(1)
	}
	defer fs.Close()

	m := monitor.New(cfg, &monitor.Bindings{
		Logger: logger,
		FS:     fs,
		W:      walker.NewWalker(),
	})
	if err := m.Setup(); err != nil {
		logger.Errorf("setting up watches: %v", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	stop := make(chan struct{})
	go func() {
		s := <-sigCh
		logger.Infof("Exiting program... (%s)", s)
		close(stop)
	}()

	m.Run(stop)
}

func buildConfig() (*config.Config, error) {
	cfg := &config.Config{
		Timeout:  config.Duration(pollTimeout),
		DrainFor: config.Duration(drainFor),
		Colored:  colored,
		Debug:    debug,
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg.Watches = loaded.Watches

		// the file wins for every setting not explicitly given on the
		// command line
		flags := rootCmd.PersistentFlags()
		if !flags.Changed("timeout") && loaded.Timeout != 0 {
			cfg.Timeout = loaded.Timeout
		}
		if !flags.Changed("drain-for") && loaded.DrainFor != 0 {
			cfg.DrainFor = loaded.DrainFor
		}
		if !flags.Changed("colored") {
			cfg.Colored = loaded.Colored
		}
		if !flags.Changed("debug") {
			cfg.Debug = loaded.Debug
		}
	}

	if _, err := config.ParseEvents(eventNames); err != nil {
		return nil, err
	}
	for _, d := range rDirs {
		cfg.Watches = append(cfg.Watches, config.WatchSpec{Path: d, Recursive: true, Events: eventNames})
	}
	for _, d := range dirs {
		cfg.Watches = append(cfg.Watches, config.WatchSpec{Path: d, Events: eventNames})
	}

	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
