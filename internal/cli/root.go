// Package cli implements the artifactkit command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/config"
	"github.com/dunamismax/artifactkit/internal/export"
	"github.com/dunamismax/artifactkit/internal/history"
	"github.com/dunamismax/artifactkit/internal/kv"
	"github.com/dunamismax/artifactkit/internal/logging"
	"github.com/dunamismax/artifactkit/internal/notify"
	"github.com/dunamismax/artifactkit/internal/tools"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// App is the state shared by subcommands for one invocation.
type App struct {
	Config  config.Config
	Logger  zerolog.Logger
	Tools   *tools.Toolbox
	History *history.Collections

	configPath string
	verbose    bool
	save       bool
	kv         kv.Store
}

// needsHistory marks commands that open the kv store even without --save.
const needsHistory = "needs-history"

func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	app := &App{}
	root := &cobra.Command{
		Use:           "artifactkit",
		Short:         "Local artifact tools for hashes, QR codes, conversions, passwords, PDFs and photos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion":
				return nil
			}
			_, wantHistory := cmd.Annotations[needsHistory]
			return app.init(cmd.Context(), stderr, app.save || wantHistory)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			app.Close()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&app.configPath, "config", "", "config file (default $ARTIFACTKIT_CONFIG)")
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "log tool notifications")
	flags.BoolVar(&app.save, "save", false, "record the operation in history")

	root.AddCommand(
		newHashCommand(app),
		newQRCommand(app),
		newConvertCommand(app),
		newPasswordCommand(app),
		newPDFCommand(app),
		newCaptureCommand(app),
		newHistoryCommand(app),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func (a *App) init(ctx context.Context, stderr io.Writer, withHistory bool) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.Config = cfg

	level := "warn"
	if a.verbose {
		level = "debug"
	}
	a.Logger = logging.Component(logging.NewWithWriter(logging.Config{Level: level, Format: "console"}, stderr), "cli")

	if withHistory {
		store, err := kv.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		a.kv = store
		a.History = history.NewCollections(store, cfg.History)
	}

	deps := tools.NewDeps(codec.New(), a.History, notify.LogSink{Logger: a.Logger}, a.Logger)
	a.Tools = tools.NewToolbox(deps, cfg.Limits, nil)
	return nil
}

func (a *App) Close() {
	if c, ok := a.kv.(kv.Closer); ok {
		_ = c.Close()
	}
}

// formatFromPath picks the output format from the file extension.
func formatFromPath(path string) (codec.Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot tell the output format of %q, add an extension", path)
	}
	return codec.ParseFormat(ext)
}

func writeArtifact(path string, art export.Artifact) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, art.Bytes, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
