// Command imageoptim-report runs a batch optimization over the image paths
// given on the command line and writes a one-page HTML summary to stdout.
// It is a thin consumer of the core engine's public API, analogous to the
// teacher's examples/main.go — the CLI flag surface and progress reporting
// spec.md excludes from the core belong here, not in the root package.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/language"

	"github.com/imageoptim-go/imageoptim"
	"github.com/imageoptim-go/imageoptim/config"
	"github.com/imageoptim-go/imageoptim/hooks"
	"github.com/imageoptim-go/imageoptim/internal/units"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "imageoptim-report:", err)
		os.Exit(1)
	}
}

func run(paths []string, out *os.File) error {
	if len(paths) == 0 {
		return fmt.Errorf("usage: imageoptim-report <path> [path...]")
	}

	engine, err := imageoptim.NewEngine(config.Default())
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	ctx := context.Background()
	started := time.Now()
	results, err := engine.OptimizeImages(ctx, paths, nil)
	if err != nil {
		return fmt.Errorf("optimize batch: %w", err)
	}
	elapsed := time.Since(started)

	doc := renderReport(results, engine.Stats(), elapsed)
	return html.Render(out, doc)
}

// renderReport builds the report's HTML tree directly with html.Node
// construction, the same node-by-node assembly style as the pack's own
// html-tree-building code (constructing element nodes, appending children,
// rendering with html.Render) rather than text/template.
func renderReport(results []imageoptim.Pair, stats hooks.MetricsSnapshot, elapsed time.Duration) *html.Node {
	pr := units.NewPrinter(language.English)

	doc := el("html")
	head := el("head")
	title := el("title")
	title.AppendChild(text("imageoptim batch report"))
	head.AppendChild(title)
	doc.AppendChild(head)

	body := el("body")
	h1 := el("h1")
	h1.AppendChild(text("imageoptim batch report"))
	body.AppendChild(h1)

	summary := el("p")
	summary.AppendChild(text(fmt.Sprintf("%d image(s) processed in %s — %d optimized, %d unchanged, %d failed",
		len(results), elapsed.Round(time.Millisecond), stats.ImagesOptimized, len(results)-int(stats.ImagesOptimized+stats.ImagesFailed), stats.ImagesFailed)))
	body.AppendChild(summary)

	body.AppendChild(resultsTable(results, pr))
	body.AppendChild(totalsParagraph(results, pr))
	body.AppendChild(workerTable(stats))

	doc.AppendChild(body)
	return doc
}

func resultsTable(results []imageoptim.Pair, pr units.Printer) *html.Node {
	table := el("table")
	table.AppendChild(headerRow("Path", "Original", "Optimized", "Saved", "Error"))
	for _, r := range results {
		table.AppendChild(reportRow(r, pr))
	}
	return table
}

func totalsParagraph(results []imageoptim.Pair, pr units.Printer) *html.Node {
	var totalOriginal, totalSaved int64
	for _, r := range results {
		if r.Result == nil {
			continue
		}
		optimizedSize, err := r.Result.Size()
		if err != nil {
			continue
		}
		totalOriginal += r.Result.OriginalSize
		totalSaved += r.Result.OriginalSize - optimizedSize
	}

	p := el("p")
	p.AppendChild(text(fmt.Sprintf("Total saved: %s (%s of %s processed)",
		pr.Bytes(totalSaved), pr.Percent(totalSaved, totalOriginal), pr.Bytes(totalOriginal))))
	return p
}

// workerTable renders the per-worker call/success/failure breakdown from
// the engine's MetricsHook, sorted by binary name for a stable report.
func workerTable(stats hooks.MetricsSnapshot) *html.Node {
	names := make([]string, 0, len(stats.WorkerCalls))
	for name := range stats.WorkerCalls {
		names = append(names, name)
	}
	sort.Strings(names)

	table := el("table")
	table.AppendChild(headerRow("Worker", "Calls", "Succeeded", "Failed"))
	for _, name := range names {
		row := el("tr")
		row.AppendChild(cell(name))
		row.AppendChild(cell(fmt.Sprintf("%d", stats.WorkerCalls[name])))
		row.AppendChild(cell(fmt.Sprintf("%d", stats.WorkerSuccesses[name])))
		row.AppendChild(cell(fmt.Sprintf("%d", stats.WorkerFailures[name])))
		table.AppendChild(row)
	}
	return table
}

func headerRow(headers ...string) *html.Node {
	row := el("tr")
	for _, h := range headers {
		th := el("th")
		th.AppendChild(text(h))
		row.AppendChild(th)
	}
	return row
}

func reportRow(r imageoptim.Pair, pr units.Printer) *html.Node {
	row := el("tr")
	row.AppendChild(cell(r.Src))

	switch {
	case r.Err != nil:
		row.AppendChild(cell("-"))
		row.AppendChild(cell("-"))
		row.AppendChild(cell("-"))
		row.AppendChild(cell(r.Err.Error()))

	case r.Result == nil:
		row.AppendChild(cell("-"))
		row.AppendChild(cell("unchanged"))
		row.AppendChild(cell(pr.Bytes(0)))
		row.AppendChild(cell(""))

	default:
		optimizedSize, err := r.Result.Size()
		if err != nil {
			row.AppendChild(cell(pr.Bytes(r.Result.OriginalSize)))
			row.AppendChild(cell("-"))
			row.AppendChild(cell("-"))
			row.AppendChild(cell(err.Error()))
			break
		}
		row.AppendChild(cell(pr.Bytes(r.Result.OriginalSize)))
		row.AppendChild(cell(pr.Bytes(optimizedSize)))
		row.AppendChild(cell(pr.Delta(optimizedSize - r.Result.OriginalSize)))
		row.AppendChild(cell(""))
	}
	return row
}

func cell(s string) *html.Node {
	td := el("td")
	td.AppendChild(text(s))
	return td
}

func el(tag string) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
