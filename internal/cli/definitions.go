package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petrijr/wizflow/internal/loader"
)

func newFieldTypesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "field-types",
		Short: "List the supported field types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, t := range a.engine().FieldTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}

func newSaveCmd(a *app) *cobra.Command {
	var existingID string

	cmd := &cobra.Command{
		Use:   "save <file>",
		Short: "Save a wizard definition from a YAML or JSON file",
		Long: `Save validates and upserts one definition. With --rename-from the
definition stored under that id is replaced, so a wizard can change id
without leaving a copy behind.

Examples:
  wizflow save welcome.yaml
  wizflow save hello.yaml --rename-from welcome`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loader.New(a.fs).LoadFile(args[0])
			if err != nil {
				return err
			}
			if existingID != "" {
				def.ExistingID = existingID
			}
			if err := a.engine().SaveDefinition(cmd.Context(), def); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", def.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&existingID, "rename-from", "", "id of the stored definition this one replaces")
	return cmd
}

func newLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load <dir>",
		Short: "Save every YAML and JSON definition in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := loadDir(cmd, a, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %d definitions\n", n)
			return nil
		},
	}
}

// loadDir saves the definitions in dir. Every file is parsed before the
// first save.
func loadDir(cmd *cobra.Command, a *app, dir string) (int, error) {
	defs, err := loader.New(a.fs).LoadDir(dir)
	if err != nil {
		return 0, err
	}
	for _, def := range defs {
		if err := a.engine().SaveDefinition(cmd.Context(), def); err != nil {
			return 0, fmt.Errorf("save %s: %w", def.ID, err)
		}
	}
	return len(defs), nil
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a wizard definition; its submissions are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.engine().RemoveDefinition(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}

func newGetCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print a wizard definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := a.engine().GetDefinition(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := loader.Marshal(def, loader.Format(strings.ToLower(format)))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml or json")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List wizard definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs, err := a.engine().ListDefinitions(cmd.Context())
			if err != nil {
				return err
			}
			for _, d := range defs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d steps\n", d.ID, d.DisplayName(), len(d.Steps))
			}
			return nil
		},
	}
}
