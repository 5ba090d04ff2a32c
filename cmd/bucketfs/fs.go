package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/marmos91/bucketfs/pkg/namespace"
	"github.com/spf13/cobra"
)

// withApp opens the store for a one-shot command and closes it afterwards.
func withApp(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx, opts, nil, nil)
	if err != nil {
		return err
	}

	runErr := fn(ctx, a)
	if err := a.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func pathArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func printEntries(w io.Writer, entries []namespace.Entry, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TYPE\tSIZE\tMODIFIED\tPATH")
	for _, e := range entries {
		modified := "-"
		if !e.LastModified.IsZero() {
			modified = e.LastModified.UTC().Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", e.Type, e.Size, modified, e.Path)
	}
	return tw.Flush()
}

func newListCmd(opts *globalOptions) *cobra.Command {
	var (
		recursive bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List the entries of a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				entries, err := a.engine.ListChildren(ctx, pathArg(args), !recursive)
				if err != nil {
					return err
				}
				return printEntries(cmd.OutOrStdout(), entries, asJSON)
			})
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "list every descendant")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newTreeCmd(opts *globalOptions) *cobra.Command {
	var (
		childrenFirst bool
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "tree [path]",
		Short: "Walk a directory subtree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			order := namespace.SelfFirst
			if childrenFirst {
				order = namespace.ChildrenFirst
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				entries, err := a.engine.Walk(ctx, pathArg(args), order)
				if err != nil {
					return err
				}
				return printEntries(cmd.OutOrStdout(), entries, asJSON)
			})
		},
	}

	cmd.Flags().BoolVar(&childrenFirst, "children-first", false, "emit every directory after its descendants")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newStatCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Show the metadata of a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				entry, err := a.engine.Stat(ctx, args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entry)
			})
		},
	}
}

func newCatCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "Print the content of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				data, err := a.engine.Read(ctx, args[0])
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}
}

func newPutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "put <path> [local-file]",
		Short: "Write a file from a local file or stdin",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 2 && args[1] != "-" {
				data, err = os.ReadFile(args[1])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.engine.Write(ctx, args[0], data)
			})
		},
	}
}

func newMkdirCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.engine.MakeDirectory(ctx, args[0])
			})
		},
	}
}

func newCopyCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cp <src> <dst>",
		Short: "Copy a file or a directory subtree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.engine.Copy(ctx, args[0], args[1])
			})
		},
	}
}

func newMoveCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <src> <dst>",
		Short: "Move a file or a directory subtree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.engine.Move(ctx, args[0], args[1])
			})
		},
	}
}

func newRemoveCmd(opts *globalOptions) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Remove a file or a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.engine.Remove(ctx, args[0], recursive)
			})
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "remove a populated directory and everything under it")
	return cmd
}
