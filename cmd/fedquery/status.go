package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"fedquery/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configured stores and their health",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	eng, cleanup, err := buildEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Store", "Registered", "Healthy", "Size hint")
	for _, kind := range types.AllStoreKinds {
		registered := eng.Registry().Has(kind)
		if !registered {
			table.Append(string(kind), bad("no"), "-", "-")
			continue
		}
		h := eng.Registry().Health(ctx, kind)
		healthy := ok("yes")
		if !h.Healthy {
			healthy = bad("no")
		}
		table.Append(string(kind), ok("yes"), healthy, fmt.Sprintf("%d", h.SizeHint))
	}
	table.Render()

	hits, misses, size := eng.CacheStats()
	fmt.Printf("result cache: %d entries, %d hits, %d misses\n", size, hits, misses)
	fmt.Printf("sla: %dms, cache ttl: %ds\n", cfg.Engine.SLAMs, cfg.Cache.TTLSec)
	return nil
}
