// Package main provides the Cadenza CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"cadenza/internal/core"
	"cadenza/internal/extractor"
	httpserver "cadenza/internal/http"
	"cadenza/internal/search"
	"cadenza/internal/spotify"
	"cadenza/pkg/resolve"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cadenza",
	Short: "Cadenza - track reference resolution",
	Long: `Cadenza resolves music track references (direct video URLs or Spotify track
links) into downloaded audio files with normalized metadata.`,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <reference>",
	Short: "Resolve a track reference to a local audio file",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP resolution service",
	RunE:  runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json, console)")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().String("search-base-url", "", "search site base URL override")
	rootCmd.PersistentFlags().String("output-dir", "", "directory for downloaded audio files")
	rootCmd.PersistentFlags().String("cache-dir", "", "directory for extraction caches")
	rootCmd.PersistentFlags().String("server-host", "0.0.0.0", "HTTP server host")
	rootCmd.PersistentFlags().Int("server-port", 8080, "HTTP server port")
	rootCmd.PersistentFlags().Int("requests-per-minute", 10, "per-client resolution limit, 0 disables")

	resolveCmd.Flags().String("title", "", "override the resolved title")
	resolveCmd.Flags().StringArray("artist", nil, "override the resolved artists (repeatable)")
	resolveCmd.Flags().Bool("quiet", false, "suppress resolution output, print only the result")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(resolveCmd, serveCmd)
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix("CADENZA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")

	cfg.Search.BaseURL = viper.GetString("search-base-url")

	if host := viper.GetString("server-host"); host != "" {
		cfg.Server.Host = host
	}
	if port := viper.GetInt("server-port"); port != 0 {
		cfg.Server.Port = port
	}
	cfg.Server.RequestsPerMin = viper.GetInt("requests-per-minute")

	if level := viper.GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format := viper.GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}

	if dir := viper.GetString("output-dir"); dir != "" {
		cfg.App.OutputDir = dir
	}
	if dir := viper.GetString("cache-dir"); dir != "" {
		cfg.App.CacheDir = dir
	}

	return cfg
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	if strings.ToLower(format) == "console" {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func buildResolver(ctx context.Context, log *zap.Logger) (*resolve.Resolver, error) {
	engine := extractor.NewEngine(log)
	searcher := search.NewClient(config.Search.BaseURL, extractor.UserAgent(), log)

	tracks, err := spotify.NewTrackFetcher(ctx, &config.Spotify, log)
	if err != nil {
		return nil, fmt.Errorf("creating track metadata source: %w", err)
	}

	return resolve.NewResolver(resolve.Config{
		OutputDir: config.App.OutputDir,
		CacheDir:  config.App.CacheDir,
	}, engine, tracks, searcher, log), nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reference := args[0]
	title, _ := cmd.Flags().GetString("title")
	artists, _ := cmd.Flags().GetStringArray("artist")
	quiet, _ := cmd.Flags().GetBool("quiet")

	overrides := resolve.Overrides{Title: title, Artists: artists}

	if quiet {
		// The logger is rebuilt inside the captured region so its stderr
		// sink binds to the redirected stream along with everything else.
		result, captured := resolve.Capture(func() (resolve.CanonicalResult, error) {
			quietLogger := buildLogger(config.Log.Level, config.Log.Format)
			resolver, err := buildResolver(ctx, quietLogger)
			if err != nil {
				return resolve.CanonicalResult{}, err
			}
			return resolver.Resolve(ctx, reference, overrides)
		})
		if result == nil {
			fmt.Fprint(os.Stderr, captured)
			return fmt.Errorf("resolution failed")
		}
		return printResult(*result)
	}

	resolver, err := buildResolver(ctx, logger)
	if err != nil {
		return err
	}

	result, err := resolver.Resolve(ctx, reference, overrides)
	if err != nil {
		return err
	}
	return printResult(result)
}

func printResult(result resolve.CanonicalResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting Cadenza",
		zap.String("log_level", config.Log.Level),
		zap.String("output_dir", config.App.OutputDir))

	resolver, err := buildResolver(ctx, logger)
	if err != nil {
		return err
	}

	server := httpserver.NewServer(&config.Server, resolver, logger.Named("http"))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(gCtx)
	})

	logger.Info("Cadenza started",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("Cadenza stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Cadenza stopped gracefully")
	return nil
}
