// Command routes prints the API route table and the resolved resource tree.
// Deployment tooling uses the derived route ids as unit names.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/fintrackhq/fintrack/internal/dispatch"
	"github.com/fintrackhq/fintrack/internal/filter"
	httpapi "github.com/fintrackhq/fintrack/internal/httpapi/v1"
	"github.com/fintrackhq/fintrack/internal/insight"
	"github.com/fintrackhq/fintrack/internal/pager"
	"github.com/fintrackhq/fintrack/internal/service/expense"
	"github.com/fintrackhq/fintrack/internal/service/income"
	"github.com/fintrackhq/fintrack/internal/storage/memory"
)

func main() {
	store := memory.New()
	p := pager.Paginator{Mode: pager.ModeOffset}
	expSvc := expense.New(store, store, p, nil)
	incSvc := income.New(store, store, p, nil)
	insSvc := insight.New(expSvc, incSvc)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	api := httpapi.New(expSvc, incSvc, insSvc, store, store, httpapi.Config{
		Currency: "PEN",
		Policy:   filter.Policy{MaxLimit: 100},
		Mode:     pager.ModeOffset,
	}, logger)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMETHOD\tPATH\tTIMEOUT\tMEMORY\tDESCRIPTION")
	for _, rt := range api.Registry().Routes() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			rt.ID, rt.Method, rt.Path, rt.Options.Timeout, rt.Options.MemorySize, rt.Options.Description)
	}
	w.Flush()

	fmt.Println()
	fmt.Println("Resource tree:")
	for _, root := range api.Tree().Roots() {
		printNode(root, 1)
	}
}

func printNode(n *dispatch.ResourceNode, depth int) {
	for i := 0; i < depth; i++ {
		fmt.Print("  ")
	}
	fmt.Println(n.Segment)
	for _, c := range n.Children {
		printNode(c, depth+1)
	}
}
