// Package cmd is the thin CLI wrapper over the facade: it parses flags,
// builds a Prebakery, and calls Run. No output-formatting or rewriting
// logic lives here, per spec.md — the CLI is a black-box caller of the
// core library, in the teacher's cmd/root.go style (spf13/cobra +
// spf13/pflag driving a logrus-backed logger).
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nu7hatch/gouuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mstoykov/prebake/config"
	"github.com/mstoykov/prebake/facade"
	"github.com/mstoykov/prebake/fetch"
	"github.com/mstoykov/prebake/ids"
	"github.com/mstoykov/prebake/instrument"
	"github.com/mstoykov/prebake/log"
	"github.com/mstoykov/prebake/parse"
	"github.com/mstoykov/prebake/telemetry"
)

// globalState groups the process-external bits the run command touches,
// the way the teacher's globalState struct collects os.Args/stdout/stderr
// behind one seam so tests can swap in fakes instead of the real process.
type globalState struct {
	fs     afero.Fs
	stdout io.Writer
	stderr io.Writer
}

func newGlobalState() *globalState {
	return &globalState{fs: afero.NewOsFs(), stdout: os.Stdout, stderr: os.Stderr}
}

// Execute builds the root command and runs it against os.Args.
func Execute() error {
	gs := newGlobalState()
	return newRootCmd(gs).Execute()
}

func newRootCmd(gs *globalState) *cobra.Command {
	root := &cobra.Command{
		Use:           "prebake",
		Short:         "precompile a module's early code ahead of time",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(gs.stdout)
	root.SetErr(gs.stderr)
	root.AddCommand(newRunCmd(gs))
	return root
}

func runFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("config", "", "path to a prebake.yaml config file")
	flags.String("base-id", "", "base id entry specifiers resolve against")
	flags.String("log-level", "", "debug|info|warn|error")
	return flags
}

func newRunCmd(gs *globalState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [entries...]",
		Short: "precompile the given entry modules and report their final stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, gs, args)
		},
	}
	cmd.Flags().AddFlagSet(runFlagSet())
	return cmd
}

func runRun(cmd *cobra.Command, gs *globalState, entries []string) error {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	baseIDFlag, _ := flags.GetString("base-id")
	logLevelFlag, _ := flags.GetString("log-level")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		cfg.Entries = entries
	}
	if baseIDFlag != "" {
		cfg.BaseID = baseIDFlag
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	if len(cfg.Entries) == 0 {
		return fmt.Errorf("prebake: no entries given (pass as arguments or config.entries)")
	}

	logger := logrus.New()
	logger.SetLevel(parseLevel(cfg.LogLevel))
	diag := log.NewBus(log.NewConsoleSink(), log.NewLogrusSink(logger))

	runID, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("prebake: generate run id: %w", err)
	}

	provider := telemetry.NewProvider(runID.String(), sdktrace.WithSampler(sdktrace.AlwaysSample()))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	resolver := fetch.NewResolver(nil)
	chain := fetch.NewChain(fetch.NewFSFetcher(gs.fs))
	p := facade.New(diag, resolver, chain, parse.GojaParser{}, instrument.DefaultExternal{})
	defer p.Close()
	provider.AttachToSet(p.Set)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := p.Run(ctx, cfg.Entries, cfg.BaseID)
	if err != nil {
		return err
	}

	for _, spec := range cfg.Entries {
		key := result.SpecifierIDs[spec]
		m, ok := p.Set.Get(ids.Tentative(key))
		stage := "UNKNOWN"
		if ok {
			stage = m.Stage().String()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", spec, key, stage)
	}
	return nil
}

func parseLevel(level string) logrus.Level {
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lv
}
