package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"motion-logger/controller"
)

func library() *controller.Library {
	return controller.NewLibrary(cfg.Recording.Dir, nil)
}

// resolve accepts either a path or a bare name inside the recordings dir.
func resolve(lib *controller.Library, arg string) (string, error) {
	if strings.ContainsRune(arg, os.PathSeparator) {
		return arg, nil
	}
	return lib.Resolve(arg)
}

func listCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recordings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := library().List()
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			if len(list) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no recordings in %s\n", cfg.Recording.Dir)
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED")
			for _, r := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.Size, r.ModifiedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")
	return cmd
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [name|path]",
		Short: "Summarise a recording: rows, time span and activities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := library()
			path, err := resolve(lib, args[0])
			if err != nil {
				return err
			}
			info, err := lib.Info(path)
			if err != nil {
				return err
			}
			summary, err := lib.Summary(path)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(map[string]any{
				"file":       info.Name,
				"size":       info.Size,
				"rows":       summary.Rows,
				"first":      summary.First,
				"last":       summary.Last,
				"span":       summary.Span.String(),
				"activities": summary.Activities,
			})
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name|path]",
		Short: "Delete a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := library()
			path, err := resolve(lib, args[0])
			if err != nil {
				return err
			}
			if err := lib.Delete(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", filepath.Base(path))
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [name|path] [target]",
		Short: "Copy a recording to a file or directory, overwriting the target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := library()
			path, err := resolve(lib, args[0])
			if err != nil {
				return err
			}
			written, err := lib.Export(path, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "exported to", written)
			return nil
		},
	}
}
