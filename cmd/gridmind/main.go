// Command gridmind answers energy questions from the terminal: it wires
// the service registry from configuration and environment, then runs one
// question (answer) or inspects runtime state (breakers).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/gridmind/gridmind/core"
	"github.com/gridmind/gridmind/orchestrator"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var metricsEnabled bool

	root := &cobra.Command{
		Use:   "gridmind",
		Short: "Resilient question answering over energy data APIs",
		Long: `gridmind decomposes energy questions (charging stations, utility
rates, solar production, building efficiency, system optimization) into
tool calls guarded by caching, circuit breakers, and retries, then
synthesizes one composite answer.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&metricsEnabled, "metrics", false,
		"print OpenTelemetry metrics to stdout on exit")

	root.AddCommand(newAnswerCmd(&metricsEnabled))
	root.AddCommand(newBreakersCmd())
	return root
}

// setupRegistry loads configuration and wires the pipeline. Missing
// required settings are the only fatal startup condition.
func setupRegistry() (*orchestrator.ServiceRegistry, error) {
	cfg, err := core.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}

	logger := core.NewProductionLogger(cfg.Logging, cfg.ServiceName)
	return orchestrator.NewServiceRegistry(cfg, logger)
}

// setupMetrics installs a stdout meter provider and returns its
// shutdown hook.
func setupMetrics() (func(context.Context) error, error) {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(30*time.Second))),
	)
	otel.SetMeterProvider(provider)
	return provider.Shutdown, nil
}

func newAnswerCmd(metricsEnabled *bool) *cobra.Command {
	var jsonOutput bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "answer [question]",
		Short: "Answer one question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if *metricsEnabled {
				shutdown, err := setupMetrics()
				if err != nil {
					return err
				}
				defer shutdown(context.Background())
			}

			registry, err := setupRegistry()
			if err != nil {
				return err
			}
			defer registry.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			question := strings.Join(args, " ")
			resp, err := orchestrator.New(registry).Answer(ctx, question)
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(resp)
			}

			fmt.Println(resp.Answer)
			if len(resp.ToolsUsed) > 0 {
				fmt.Printf("\n(tools: %s)\n", strings.Join(resp.ToolsUsed, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit the full response as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute,
		"overall deadline for the question (optimizer runs are slow)")
	return cmd
}

func newBreakersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "breakers",
		Short: "Show circuit breaker states",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := setupRegistry()
			if err != nil {
				return err
			}
			defer registry.Close()

			snapshots := registry.Breakers.Snapshots()
			if len(snapshots) == 0 {
				fmt.Println("no breakers created yet")
				return nil
			}
			return json.NewEncoder(os.Stdout).Encode(snapshots)
		},
	}
}
