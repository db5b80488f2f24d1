// Command curvenet evaluates a sketch script and prints the resulting
// planar curve network: the curves on each plane, how they were trimmed,
// and the regions they bound.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/chazu/curvenet/pkg/planar"
	"github.com/chazu/curvenet/pkg/store"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg := planar.DefaultConfig()
	fs := flag.NewFlagSet("curvenet", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Float64Var(&cfg.PlaneTolerance, "plane-tol", cfg.PlaneTolerance, "distance under which two planes are the same")
	fs.Float64Var(&cfg.IntersectionTolerance, "tol", cfg.IntersectionTolerance, "distance under which two curves meet")
	fs.Float64Var(&cfg.MinSpan, "min-span", cfg.MinSpan, "shortest parameter span kept as a fragment")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	verbose := fs.Bool("v", false, "log network updates to stderr")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: curvenet [flags] [script.sketch]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return 2
	}

	if *verbose {
		store.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	src := stdin
	if fs.NArg() == 1 {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		defer f.Close()
		src = f
	}
	source, err := io.ReadAll(src)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	result := NewApp(cfg).Evaluate(context.Background(), string(source))
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	} else {
		printResult(stdout, result)
	}
	if len(result.Errors) > 0 {
		return 1
	}
	return 0
}

func printResult(w io.Writer, r EvalResult) {
	for _, e := range r.Errors {
		if e.Line > 0 {
			fmt.Fprintf(w, "error: line %d: %s\n", e.Line, e.Message)
		} else {
			fmt.Fprintf(w, "error: %s\n", e.Message)
		}
	}
	if len(r.Errors) > 0 {
		return
	}
	fmt.Fprintf(w, "%d curves on %d planes\n", r.Curves, len(r.Planes))
	for _, p := range r.Planes {
		fmt.Fprintf(w, "\n%s\n", p.Placement)
		for _, c := range p.Curves {
			label := c.ID.String()
			if c.Name != "" {
				label += " " + c.Name
			}
			fmt.Fprintf(w, "  curve %-12s %-8s %d fragments, touches %v\n", label, c.Kind, c.Fragments, c.Touches)
		}
		for _, rg := range p.Regions {
			fmt.Fprintf(w, "  region %-11s area %.4f, %d holes\n", rg.ID, rg.Area, rg.Holes)
		}
	}
	for _, f := range r.Findings {
		fmt.Fprintf(w, "finding: %s\n", f)
	}
}
