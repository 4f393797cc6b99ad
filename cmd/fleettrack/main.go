package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"fleettrack/internal/cloud"
	"fleettrack/internal/config"
	"fleettrack/internal/pipeline"
	"fleettrack/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "import:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "workbook path (.xlsx)")
		yes := fs.Bool("yes", false, "skip confirmation")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		importer := pipeline.NewImporter(db, cfg)
		analysis, err := importer.AnalyzeWorkbook(*file)
		must(err)
		runImport(importer, analysis, *yes)
	case "import:html":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "scraped html path")
		yes := fs.Bool("yes", false, "skip confirmation")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		f, err := os.Open(*file)
		must(err)
		importer := pipeline.NewImporter(db, cfg)
		analysis, err := importer.AnalyzeHTML(f)
		_ = f.Close()
		must(err)
		runImport(importer, analysis, *yes)
	case "cloud:push":
		svc := cloud.NewSyncService(db, cfg)
		pushed, err := svc.PushAll(context.Background(), func(table string, sent, total int) {
			fmt.Printf("  %s: %d/%d\n", table, sent, total)
		})
		must(err)
		fmt.Printf("cloud push complete: %d rows\n", pushed)
	case "db:export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output json path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}
		f, err := os.Create(*out)
		must(err)
		err = db.ExportJSON(f)
		_ = f.Close()
		must(err)
		fmt.Printf("exported to %s\n", *out)
	case "db:restore":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "backup json path")
		yes := fs.Bool("yes", false, "skip confirmation")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		if !*yes && !confirm("Restore replaces all current data. Continue?") {
			fmt.Println("cancelled")
			return
		}
		f, err := os.Open(*file)
		must(err)
		err = db.RestoreJSON(f)
		_ = f.Close()
		must(err)
		fmt.Println("restore complete")
	case "db:stats":
		stats, err := db.Stats()
		must(err)
		tables := make([]string, 0, len(stats))
		for table := range stats {
			tables = append(tables, table)
		}
		sort.Strings(tables)
		for _, table := range tables {
			fmt.Printf("  %-16s %d\n", table, stats[table])
		}
	default:
		usage()
		os.Exit(1)
	}
}

func runImport(importer *pipeline.Importer, analysis *pipeline.Analysis, yes bool) {
	fmt.Printf("Phát hiện %d bản ghi hợp lệ:\n", analysis.Total())
	for _, line := range analysis.Report() {
		fmt.Println(line)
	}
	for _, diag := range analysis.Diags {
		fmt.Printf("  [%s] %s: %s\n", diag.Level, diag.Sheet, diag.Msg)
	}
	if !yes && !confirm("Proceed with import?") {
		fmt.Println("cancelled")
		return
	}

	start := time.Now()
	summary, err := importer.Run(context.Background(), analysis, func(processed, percent int) {
		fmt.Printf("\r  %d/%d (%d%%)", processed, analysis.Total(), percent)
	})
	fmt.Println()
	must(err)

	fmt.Printf("import done in %s\n", time.Since(start).Round(time.Millisecond))
	printCounts("inserted", summary.Inserted)
	printCounts("updated", summary.Updated)
	printCounts("skipped", summary.Skipped)
	if summary.Dropped > 0 {
		fmt.Printf("  dropped: %d rows missing key fields\n", summary.Dropped)
	}
}

func printCounts(label string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k, v := range counts {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	fmt.Printf("  %s: %s\n", label, strings.Join(parts, " "))
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func usage() {
	fmt.Println("usage: fleettrack <command>")
	fmt.Println("commands:")
	fmt.Println("  import:xlsx --file=./data.xlsx [--yes]")
	fmt.Println("  import:html --file=./repairs.html [--yes]")
	fmt.Println("  cloud:push")
	fmt.Println("  db:export --out=./backup.json")
	fmt.Println("  db:restore --file=./backup.json [--yes]")
	fmt.Println("  db:stats")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
