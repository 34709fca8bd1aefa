// Package cli implements the wizflow command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/petrijr/wizflow/internal/config"
	"github.com/petrijr/wizflow/internal/platform"
	"github.com/petrijr/wizflow/pkg/api"
)

// app is the state shared by every command of one invocation.
type app struct {
	fs      afero.Fs
	cfg     *config.Config
	logger  *slog.Logger
	metrics *api.BasicMetrics
	backend *config.Backend
}

// NewRoot returns the wizflow root command.
func NewRoot() *cobra.Command {
	return newRoot(afero.NewOsFs())
}

func newRoot(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs}

	cmd := &cobra.Command{
		Use:          "wizflow",
		Short:        "Run and administer wizards",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newFieldTypesCmd(a))
	cmd.AddCommand(newSaveCmd(a))
	cmd.AddCommand(newLoadCmd(a))
	cmd.AddCommand(newRemoveCmd(a))
	cmd.AddCommand(newGetCmd(a))
	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newSubmissionsCmd(a))
	cmd.AddCommand(newLogsCmd(a))
	return cmd
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.LoadFrom(a.fs, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.NewLogger(cmd.ErrOrStderr())
	a.metrics = &api.BasicMetrics{}

	obs := api.NewCompositeObserver(api.NewLoggingObserver(a.logger), a.metrics)
	p := platform.NewMemory(cfg.Actors()...)

	backend, err := cfg.Open(cmd.Context(), p, obs, a.logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	a.backend = backend
	return nil
}

func (a *app) close() error {
	if a.backend == nil {
		return nil
	}
	err := a.backend.Close()
	a.backend = nil
	return err
}

func (a *app) engine() api.Engine {
	return a.backend.Engine
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
