package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/llm-d-incubation/qsizer/internal/logger"
	"github.com/llm-d-incubation/qsizer/pkg/analyzer"
	"github.com/llm-d-incubation/qsizer/pkg/client"
	"github.com/llm-d-incubation/qsizer/pkg/config"
	"github.com/llm-d-incubation/qsizer/pkg/core"
	"github.com/llm-d-incubation/qsizer/pkg/rest"
	"github.com/llm-d-incubation/qsizer/pkg/solver"
)

// settings keys, also bound to QSIZER_* environment variables
const (
	keyFile     = "file"
	keyRemote   = "remote"
	keyStrategy = "strategy"
	keyPooling  = "pooling"
	keyHost     = "host"
	keyPort     = "port"
	keyLogLevel = "log-level"
)

func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("qsizer")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "qsizer",
		Short:         "Queueing-based sizing of edge/cloud processing systems",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logger.SetLevel(v.GetString(keyLogLevel))
		},
	}
	root.PersistentFlags().String(keyLogLevel, "", "log level: debug, info, warn or error (default from LOG_LEVEL)")
	_ = v.BindPFlag(keyLogLevel, root.PersistentFlags().Lookup(keyLogLevel))
	root.PersistentFlags().String(keyRemote, "", "URL of a qsizer server; evaluate locally when empty")
	_ = v.BindPFlag(keyRemote, root.PersistentFlags().Lookup(keyRemote))

	root.AddCommand(
		newEvaluateCommand(v),
		newSweepCommand(v),
		newOptimizeCommand(v),
		newNetworkCommand(v),
		newServeCommand(v),
	)
	return root
}

// add the input file flag to a command; it is per command so not bound to viper
func fileFlag(cmd *cobra.Command) {
	cmd.Flags().StringP(keyFile, "f", "", "input file (JSON or YAML)")
	_ = cmd.MarkFlagRequired(keyFile)
}

// load the input file of a command
func load[T any](cmd *cobra.Command) (*T, error) {
	name, err := cmd.Flags().GetString(keyFile)
	if err != nil {
		return nil, err
	}
	return config.LoadFile[T](name)
}

func remoteClient(v *viper.Viper) *client.Client {
	if url := v.GetString(keyRemote); url != "" {
		return client.NewClientForURL(url)
	}
	return nil
}

func newEvaluateCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate the performance of a single queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := load[config.QueueSpec](cmd)
			if err != nil {
				return err
			}
			var result *config.QueueResult
			if c := remoteClient(v); c != nil {
				result, err = c.Evaluate(cmd.Context(), spec)
			} else {
				result, err = analyzer.Evaluate(spec)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	fileFlag(cmd)
	return cmd
}

func newSweepCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Evaluate a queue over a range of arrival rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := load[config.SweepSpec](cmd)
			if err != nil {
				return err
			}
			var result *config.SweepResult
			if c := remoteClient(v); c != nil {
				result, err = c.Sweep(cmd.Context(), spec)
			} else {
				result, err = analyzer.RunSweep(spec)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	fileFlag(cmd)
	return cmd
}

func newOptimizeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Find the cheapest edge/cloud configuration meeting the constraints",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := load[config.OptimizerData](cmd)
			if err != nil {
				return err
			}
			if s := v.GetString(keyStrategy); s != "" {
				data.Search.Strategy = s
			}
			if p := v.GetString(keyPooling); p != "" {
				data.Search.Pooling = p
			}
			result, err := optimize(cmd.Context(), remoteClient(v), data)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	fileFlag(cmd)
	cmd.Flags().String(keyStrategy, "", "search strategy, one of "+strings.Join(solver.StrategyNames(), ", "))
	cmd.Flags().String(keyPooling, "", "server pooling: shared or partitioned")
	_ = v.BindPFlag(keyStrategy, cmd.Flags().Lookup(keyStrategy))
	_ = v.BindPFlag(keyPooling, cmd.Flags().Lookup(keyPooling))
	return cmd
}

func optimize(ctx context.Context, c *client.Client, data *config.OptimizerData) (*config.OptimizerResult, error) {
	if c != nil {
		return c.Optimize(ctx, data)
	}
	result, err := solver.Optimize(ctx, data)
	if err == nil {
		logger.Log.Infow("optimizer done", "strategy", result.Strategy, "evaluations", result.Evaluations,
			"edge", result.EdgeCount, "cloud", result.CloudCount, "cost", result.Cost)
	}
	return result, err
}

func newNetworkCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Propagate traffic through a processing network",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := load[config.NetworkSpec](cmd)
			if err != nil {
				return err
			}
			var report *config.NetworkReport
			if c := remoteClient(v); c != nil {
				report, err = c.Network(cmd.Context(), spec)
			} else {
				report, err = core.RunNetwork(spec)
			}
			// partial reports are printed before failing
			if report != nil {
				if perr := printJSON(cmd.OutOrStdout(), report); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	fileFlag(cmd)
	return cmd
}

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST server",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := rest.NewStateLessServer()
			return server.RunOn(v.GetString(keyHost) + ":" + v.GetString(keyPort))
		},
	}
	cmd.Flags().String(keyHost, rest.DefaultRestHost, "listen host")
	cmd.Flags().String(keyPort, rest.DefaultRestPort, "listen port")
	_ = v.BindPFlag(keyHost, cmd.Flags().Lookup(keyHost))
	_ = v.BindPFlag(keyPort, cmd.Flags().Lookup(keyPort))
	return cmd
}

func printJSON(w io.Writer, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("rendering result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
