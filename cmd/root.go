package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/karrick/godirwalk"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/leweaver/filewatch/watch"
)

var (
	cfgFile string
	version = "0.1.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "filewatch [path]",
	Short: "Watch a file or directory for changes",
	Long: `filewatch watches a single file or a directory and prints one line per
observed change: added, removed, modified, renamed-old, renamed-new.

Watching a file registers on its containing directory and filters events
down to that one name. Press Ctrl+C to stop.

Examples:
  filewatch /var/log
  filewatch --format=json /etc/hosts
  filewatch -v .`,
	Version: version,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd, args[0])
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.filewatch.yaml)")
	rootCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.Flags().Bool("silent", false, "Disable all output except errors")
	rootCmd.Flags().String("format", "text", "Output format (text|json)")

	// Bind flags to viper
	viper.BindPFlag("verbose", rootCmd.Flags().Lookup("verbose"))
	viper.BindPFlag("silent", rootCmd.Flags().Lookup("silent"))
	viper.BindPFlag("format", rootCmd.Flags().Lookup("format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".filewatch" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".filewatch")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func runWatch(cmd *cobra.Command, path string) error {
	format := viper.GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid format: %s", format)
	}

	logger := newLogger(viper.GetBool("verbose"), viper.GetBool("silent"))
	defer logger.Sync()

	target, err := watch.Resolve(path)
	if err != nil {
		return err
	}

	// Report what sits under the root before events start flowing, so a
	// typo'd path is obvious immediately.
	logger.Info("watching",
		zap.String("root", target.Root),
		zap.String("mode", target.Mode.String()),
		zap.String("filter", target.FilterName),
		zap.Int("entries", countEntries(target.Root)))

	session, err := watch.NewWithOptions(path, func(p string, kind watch.EventKind) {
		printEvent(format, p, kind)
	}, watch.Options{Logger: logger})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case <-session.Done():
		// The session went terminal on its own; Err says why.
	}

	if err := session.Close(); err != nil {
		logger.Warn("error releasing watch", zap.Error(err))
	}
	return session.Err()
}

// printEvent writes one line per delivered event in the selected format.
func printEvent(format, path string, kind watch.EventKind) {
	switch format {
	case "json":
		out, err := json.Marshal(map[string]string{"event": kind.String(), "path": path})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding event: %v\n", err)
			return
		}
		fmt.Println(string(out))
	default:
		fmt.Printf("%s: %s\n", strings.ToUpper(kind.String()), path)
	}
}

// countEntries counts everything directly reachable under root. Unreadable
// entries are skipped rather than failing the count.
func countEntries(root string) int {
	count := 0
	_ = godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(string, *godirwalk.Dirent) error {
			count++
			return nil
		},
		ErrorCallback: func(string, error) godirwalk.ErrorAction {
			return godirwalk.SkipNode
		},
	})
	return count
}

// newLogger creates a zap logger matching the requested verbosity.
func newLogger(verbose, silent bool) *zap.Logger {
	var config zap.Config
	switch {
	case silent:
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	case verbose:
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, _ := config.Build()
	return logger
}
