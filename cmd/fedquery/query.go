package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fedquery/internal/engine"
	"fedquery/internal/store"
	"fedquery/internal/types"
)

var (
	queryLimit    int
	queryStrategy string
	queryNoCache  bool
	queryDatabase string
	queryMinScore float64
)

var queryCmd = &cobra.Command{
	Use:   "query [query string]",
	Short: "Run one federated query and print the ranked results",
	Long: `Runs a single query across every configured store and prints the merged,
ranked result list.

Examples:
  fedquery query "memory%architecture%recent"
  fedquery query --limit 5 --strategy parallel "document%*.md readme"
  fedquery query --database relational "chat%rollback%yesterday"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVar(&queryLimit, "limit", 10, "maximum results (1-100)")
	queryCmd.Flags().StringVar(&queryStrategy, "strategy", "hybrid", "parallel|sequential|hybrid|selective|cached")
	queryCmd.Flags().BoolVar(&queryNoCache, "no-cache", false, "bypass the result cache")
	queryCmd.Flags().StringVar(&queryDatabase, "database", "", "restrict to one store kind")
	queryCmd.Flags().Float64Var(&queryMinScore, "min-score", 0, "drop results below this composite score")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	eng, cleanup, err := buildEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	opts := types.QueryOptions{
		Limit:    queryLimit,
		Strategy: types.Strategy(queryStrategy),
		UseCache: !queryNoCache,
		Database: types.StoreKind(queryDatabase),
		MinScore: queryMinScore,
	}

	raw := strings.Join(args, " ")
	resp, err := eng.Execute(ctx, raw, opts)
	if err != nil {
		return err
	}

	renderResponse(os.Stdout, resp)
	logger.Debug("query complete",
		zap.String("requestId", resp.Metadata.RequestID),
		zap.Float64("ms", resp.Metadata.ExecutionTimeMs))
	return nil
}

// buildEngine wires every store named in the config into a fresh engine.
// Stores that fail to open are logged and skipped; the planner treats
// them as unavailable.
func buildEngine() (*engine.Engine, func(), error) {
	reg := store.NewRegistry()
	var closers []io.Closer

	if dsn := cfg.Stores.RelationalDSN; dsn != "" {
		if a, err := store.NewRelationalAdapter(dsn); err != nil {
			logger.Warn("relational store unavailable", zap.Error(err))
		} else {
			reg.Register(a)
			closers = append(closers, a)
		}
	}
	if dsn := cfg.Stores.VectorDSN; dsn != "" {
		if a, err := store.NewVectorAdapter(dsn, nil); err != nil {
			logger.Warn("vector store unavailable", zap.Error(err))
		} else {
			reg.Register(a)
			closers = append(closers, a)
		}
	}
	if dsn := cfg.Stores.GraphDSN; dsn != "" {
		if a, err := store.NewGraphAdapter(dsn); err != nil {
			logger.Warn("graph store unavailable", zap.Error(err))
		} else {
			reg.Register(a)
			closers = append(closers, a)
		}
	}
	if path := cfg.Stores.KVPath; path != "" {
		if a, err := store.NewKVAdapter(path); err != nil {
			logger.Warn("kv store unavailable", zap.Error(err))
		} else {
			reg.Register(a)
			closers = append(closers, a)
		}
	}
	if root := cfg.Stores.FilesystemRoot; root != "" {
		if a, err := store.NewFilesystemAdapter(root); err != nil {
			logger.Warn("filesystem store unavailable", zap.Error(err))
		} else {
			reg.Register(a)
		}
	}

	cleanup := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}
	return engine.New(cfg, reg), cleanup, nil
}

func renderResponse(w io.Writer, resp *types.Response) {
	header := color.New(color.FgCyan, color.Bold)
	warn := color.New(color.FgYellow)
	fail := color.New(color.FgRed)

	if !resp.Success {
		fail.Fprintln(w, "no results")
		for _, e := range resp.Metadata.Errors {
			fail.Fprintf(w, "  %s\n", e.Error())
		}
		return
	}

	header.Fprintf(w, "%d result(s) in %.0fms", len(resp.Items), resp.Metadata.ExecutionTimeMs)
	if resp.Metadata.FromCache {
		header.Fprint(w, " (cached)")
	}
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.Header("#", "Score", "Store", "Kind", "Title", "Content")
	for _, it := range resp.Items {
		table.Append(
			fmt.Sprintf("%d", it.RankPosition),
			fmt.Sprintf("%.3f", it.CompositeScore),
			string(it.SourceStore),
			string(it.Kind),
			truncate(it.Title, 30),
			truncate(it.Content, 60),
		)
	}
	table.Render()

	for _, e := range resp.Metadata.Errors {
		warn.Fprintf(w, "warning: %s\n", e.Error())
	}
	for _, note := range resp.Metadata.Warnings {
		warn.Fprintf(w, "note: %s\n", note)
	}
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
