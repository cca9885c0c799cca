// Package main provides the fragsync binary entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/zenibako/fragsync/config"
	"github.com/zenibako/fragsync/dialog"
	"github.com/zenibako/fragsync/messages"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "fragsync"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Keeps content fragment dialog fields in sync with the selected fragment",
		Long: `fragsync follows the content fragment edit dialog of an authoring UI.

When the author picks another fragment it reloads the element and variation
choices, asks before discarding a configuration the new fragment cannot hold,
and keeps the paragraph controls in line with the element selection.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if err := setLogLevel(cfg.Log.Level); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	cmd.AddCommand(serveCmd(load))
	cmd.AddCommand(checkCmd(load))
	cmd.AddCommand(initConfigCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func setLogLevel(level string) error {
	if level == "" {
		return nil
	}
	parsed, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(parsed)
	return nil
}

func serveCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Listen for dialog events from the authoring host",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	registry := prometheus.NewRegistry()
	metrics := dialog.NewMetrics(registry)

	publisher := dialog.NewPublisher(cfg.Host.Host, cfg.Host.Port, cfg.Namespace)

	var prompter dialog.Prompter
	var notifier dialog.Notifier
	switch cfg.Prompt {
	case config.PromptTerminal:
		terminal := dialog.NewTerminalPrompter()
		prompter, notifier = terminal, terminal
	default:
		prompter = dialog.NewRemotePrompter(publisher.SendPrompt)
		notifier = publisher
	}

	host := dialog.NewHost(dialog.HostConfig{
		Endpoints:  messages.NewEndpointBuilder(cfg.Author.URL),
		HTTPClient: &http.Client{Timeout: cfg.Author.Timeout},
		Username:   cfg.Author.Username,
		Password:   cfg.Author.Password,
		Prompter:   prompter,
		Notifier:   notifier,
		Metrics:    metrics,
		OnChange:   publisher.PublishState,
	})
	defer host.Teardown()

	listener := dialog.NewListener(cfg.Listen.Addr(), cfg.Namespace, host)
	if err := listener.Start(); err != nil {
		return err
	}
	defer listener.Close()

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("Metrics server exited with error: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
		log.Infof("Serving metrics on %s/metrics", cfg.Metrics.Addr)
	}

	log.Info("fragsync ready", "author", cfg.Author.URL, "listen", cfg.Listen.Addr(), "host", cfg.Host.Addr(), "prompt", cfg.Prompt)
	<-ctx.Done()
	log.Info("Shutting down")
	return nil
}

// checkResult is printed by the check command
type checkResult struct {
	Current  string              `json:"current"`
	Next     string              `json:"next"`
	Keep     bool                `json:"keep"`
	Elements []string            `json:"elements"`
	Options  dialog.FieldOptions `json:"options"`
}

func checkCmd(load func() (*config.Config, error)) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "check <dialog.html> <fragment-path>",
		Short: "Report whether a dialog configuration survives a fragment change",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			remoteFor := func(paths dialog.FieldPaths) dialog.Remote {
				remote := dialog.NewHTTPRemote(messages.NewEndpointBuilder(cfg.Author.URL), paths)
				remote.SetHTTPClient(&http.Client{Timeout: cfg.Author.Timeout})
				if cfg.Author.Username != "" {
					remote.SetBasicAuth(cfg.Author.Username, cfg.Author.Password)
				}
				return remote
			}
			result, err := check(cmd.Context(), args[0], args[1], remoteFor)
			if err != nil {
				return err
			}
			return printCheck(cmd, result, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func check(ctx context.Context, dialogFile, next string, remoteFor func(dialog.FieldPaths) dialog.Remote) (checkResult, error) {
	f, err := os.Open(dialogFile)
	if err != nil {
		return checkResult{}, fmt.Errorf("failed to open dialog markup: %w", err)
	}
	defer f.Close()

	state, err := dialog.ParseDialog(f)
	if err != nil {
		return checkResult{}, err
	}

	result := checkResult{
		Current:  state.FragmentPath,
		Next:     next,
		Elements: state.Elements,
	}

	current := dialog.FieldState{
		Elements:         state.Elements,
		ElementOptions:   state.ElementOptions,
		Variation:        state.Variation,
		VariationOptions: state.VariationOptions,
	}

	var incoming *dialog.FieldOptions
	if next != "" {
		options, err := remoteFor(state.Paths).FetchOptions(ctx, next)
		if err != nil {
			return checkResult{}, err
		}
		result.Options = options
		incoming = &options
	}
	result.Keep = dialog.CanKeep(current, incoming)
	return result, nil
}

func printCheck(cmd *cobra.Command, result checkResult, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	verdict := "configuration is kept"
	if !result.Keep {
		verdict = "confirmation required: configuration would be discarded"
	}
	fmt.Fprintf(out, "%s -> %s: %s\n", displayPath(result.Current), displayPath(result.Next), verdict)
	fmt.Fprintf(out, "  elements offered:   %s\n", strings.Join(result.Options.Elements.Values(), ", "))
	fmt.Fprintf(out, "  variations offered: %s\n", strings.Join(result.Options.Variations.Values(), ", "))
	return nil
}

func displayPath(path string) string {
	if path == "" {
		return "(none)"
	}
	return path
}

func initConfigCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write a config file with default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigFile
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.DefaultConfig().SaveToFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
