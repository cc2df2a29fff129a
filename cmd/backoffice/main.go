// Command backoffice is a terminal client of the back-office API. It reads
// resources through the same cache, session and transport stack the UI uses.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thomasjacksonsantos/querysync/config"
	"github.com/thomasjacksonsantos/querysync/resource"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	envFile  string
	logLevel string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f rootFlags
	root := &cobra.Command{
		Use:          "backoffice",
		Short:        "Read back-office resources through the query cache",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&f.envFile, "env-file", ".env", "env file read before the environment")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "overrides LOG_LEVEL")

	root.AddCommand(
		newConfigCmd(&f),
		newResourcesCmd(&f),
		newListCmd(&f),
		newGetCmd(&f),
		newSnapshotsCmd(&f),
	)
	return root
}

func loadConfig(f *rootFlags) (*config.Config, error) {
	cfg, err := config.LoadFrom(f.envFile)
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// withApp loads the configuration, wires the stack, runs fn and shuts the
// stack down.
func withApp(cmd *cobra.Command, f *rootFlags, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	logOut := &lockedWriter{w: cmd.ErrOrStderr()}
	zl, err := newZap(cfg.LogLevel, logOut)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, zl, logOut)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), 5*time.Second)
		defer cancel()
		if err := a.Close(ctx); err != nil {
			zl.Warn("shutdown", zap.Error(err))
		}
	}()
	return fn(cmd.Context(), a)
}

func newConfigCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), cfg.String())
			return nil
		},
	}
}

func newResourcesCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List the resource names accepted by list and get",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, f, func(_ context.Context, a *app) error {
				for _, n := range a.catalog.Names() {
					r, _ := a.catalog.Reader(n)
					fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", n, r.Definition().Path)
				}
				return nil
			})
		},
	}
}

func newListCmd(f *rootFlags) *cobra.Command {
	var (
		p       resource.ListParams
		filters []string
	)
	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "Print one page of a resource as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := parseFilters(filters)
			if err != nil {
				return err
			}
			p.Filters = fs
			return withApp(cmd, f, func(ctx context.Context, a *app) error {
				r, err := a.catalog.Reader(args[0])
				if err != nil {
					return err
				}
				v, err := r.List(ctx, p)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), v)
			})
		},
	}
	cmd.Flags().IntVar(&p.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&p.PageSize, "page-size", 20, "page size")
	cmd.Flags().StringVar(&p.Search, "search", "", "search term")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "name=value filter, repeatable")
	return cmd
}

func newGetCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <resource> <id>",
		Short: "Print one record as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, f, func(ctx context.Context, a *app) error {
				r, err := a.catalog.Reader(args[0])
				if err != nil {
					return err
				}
				v, err := r.Get(ctx, args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), v)
			})
		},
	}
}

func newSnapshotsCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots",
		Short: "Print the snapshot generation of every namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, f, func(ctx context.Context, a *app) error {
				if a.snapshots == nil {
					return errors.New("snapshot store disabled (SNAPSHOT_ENABLED=false)")
				}
				names := a.snapshots.Namespaces()
				sort.Strings(names)
				gens, err := a.gens.CurrentMany(ctx, names)
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintf(cmd.OutOrStdout(), "%-16s %d\n", n, gens[n])
				}
				return nil
			})
		},
	}
}

func parseFilters(in []string) (map[string]string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(in))
	for _, kv := range in {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("bad filter %q, want name=value", kv)
		}
		out[k] = v
	}
	return out, nil
}

// lockedWriter serializes the log backends and the hook workers, which all
// write to stderr.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
