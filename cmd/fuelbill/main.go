package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"fuelbill/internal"
	"fuelbill/internal/config"
	"fuelbill/internal/contract"
	"fuelbill/internal/listener"
	"fuelbill/internal/logging"
	"fuelbill/internal/pipeline"
	"fuelbill/internal/storage"
	"fuelbill/internal/validate"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	closeLog, err := logging.AttachFile(log, cfg.LogFile)
	must(err)
	defer closeLog()

	cmd := os.Args[1]
	switch cmd {
	case "bill:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "bill file (.xls, .xlsx or .eml)")
		output := fs.String("output", "", "output xlsx path")
		rulesPath := fs.String("config", "", "rules json path")
		runtimePath := fs.String("runtime-config", "", "runtime override json path")
		headerRow := fs.Int("header-row", -1, "zero-based header row")
		dateCol := fs.String("date-column", "", "flight date column letter or header")
		routeCol := fs.String("route-column", "", "route column letter or header")
		flightCol := fs.String("flight-column", "", "flight number column letter or header")
		priceCol := fs.String("price-column", "", "fuel price column letter or header")
		originCol := fs.String("origin-column", "", "origin column letter or header")
		destCol := fs.String("destination-column", "", "destination column letter or header")
		runValidate := fs.Bool("validate", false, "validate the output rows")
		reportCSV := fs.String("report-csv", "", "write validation failures to this csv")
		_ = fs.Parse(os.Args[2:])
		if *input == "" && fs.NArg() > 0 {
			*input = fs.Arg(0)
		}
		if strings.TrimSpace(*input) == "" {
			must(eris.New("--input is required"))
		}

		override, err := buildOverride(*runtimePath, *headerRow, map[string]string{
			"flight_date": *dateCol,
			"route":       *routeCol,
			"flight_no":   *flightCol,
			"fuel_price":  *priceCol,
			"origin":      *originCol,
			"destination": *destCol,
		})
		must(err)

		db := openJournal(cfg, log)
		if db != nil {
			defer db.Close()
		}
		processor, err := newProcessor(cfg, *rulesPath, db, log)
		must(err)

		res, err := processor.ProcessFile(context.Background(), *input, *output, override)
		must(err)
		fmt.Printf("process done rows=%d contracts=%d/%d merged=%d filtered=%d output=%s\n",
			len(res.Rows), res.ContractHits, len(res.Rows), res.MergedLegs, res.FilteredRoutes, res.OutputPath)

		if *runValidate || *reportCSV != "" {
			report := validate.Check(validate.FromOutputRows(res.Rows))
			validate.PrintReport(os.Stdout, report)
			if *reportCSV != "" {
				must(validate.WriteFailuresCSV(report, *reportCSV))
				fmt.Printf("validation failures written to %s\n", *reportCSV)
			}
		}
	case "bill:analyze":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "bill file (.xls, .xlsx or .eml)")
		_ = fs.Parse(os.Args[2:])
		if *input == "" && fs.NArg() > 0 {
			*input = fs.Arg(0)
		}
		if strings.TrimSpace(*input) == "" {
			must(eris.New("--input is required"))
		}
		grid, err := pipeline.ReadGridFromFile(*input)
		must(err)
		printAnalysis(*input, pipeline.Analyze(grid))
	case "bill:validate":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "settlement xlsx to check")
		reportCSV := fs.String("report-csv", "", "write failures to this csv")
		_ = fs.Parse(os.Args[2:])
		if *input == "" && fs.NArg() > 0 {
			*input = fs.Arg(0)
		}
		if strings.TrimSpace(*input) == "" {
			must(eris.New("--input is required"))
		}
		records, err := validate.ReadRecords(*input)
		must(err)
		report := validate.Check(records)
		validate.PrintReport(os.Stdout, report)
		if *reportCSV != "" {
			must(validate.WriteFailuresCSV(report, *reportCSV))
			fmt.Printf("validation failures written to %s\n", *reportCSV)
		}
		if !report.OK() {
			os.Exit(2)
		}
	case "bill:watch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		rulesPath := fs.String("config", "", "rules json path")
		_ = fs.Parse(os.Args[2:])
		db := openJournal(cfg, log)
		if db != nil {
			defer db.Close()
		}
		processor, err := newProcessor(cfg, *rulesPath, db, log)
		must(err)
		svc := listener.NewService(db, cfg, processor)
		svc.SetLogger(log)
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		must(svc.Run(ctx))
	case "runs:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "number of runs")
		_ = fs.Parse(os.Args[2:])
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		runs, err := db.ListRuns(*limit)
		must(err)
		for _, run := range runs {
			line := fmt.Sprintf("%s %s status=%s header=%d rows=%d contracts=%d input=%s",
				run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.ID, run.Status, run.HeaderRow+1,
				run.Counts["emitted"], run.Counts["contracts"], run.InputPath)
			if run.Error != "" {
				line += " error=" + run.Error
			}
			fmt.Println(line)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func newProcessor(cfg config.Config, rulesPath string, db *storage.DB, log *logrus.Logger) (*pipeline.ProcessingService, error) {
	if rulesPath == "" {
		rulesPath = cfg.RulesPath
	}
	rules, err := config.LoadRules(rulesPath)
	if err != nil {
		return nil, err
	}
	rules = rules.WithEnv(cfg)

	client := contract.NewClient(rules.API.URL, rules.API.TimeoutDuration(), cfg.LookupRateLimitRPS)
	processor := pipeline.NewProcessingService(db, cfg, rules, client)
	processor.SetLogger(log)
	return processor, nil
}

// openJournal returns nil when journaling is off or the database cannot be
// opened; processing never depends on it.
func openJournal(cfg config.Config, log *logrus.Logger) *storage.DB {
	if !cfg.JournalEnabled {
		return nil
	}
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.WithError(err).Warn("run journal unavailable")
		return nil
	}
	return db
}

// buildOverride prefers a runtime config file over individual flags.
func buildOverride(runtimePath string, headerRow int, columns map[string]string) (*config.RuntimeOverride, error) {
	if strings.TrimSpace(runtimePath) != "" {
		return config.LoadRuntimeOverride(runtimePath)
	}
	override := &config.RuntimeOverride{}
	if headerRow >= 0 {
		override.HeaderRow = &headerRow
	}
	for field, value := range columns {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if override.Columns == nil {
			override.Columns = map[string]string{}
		}
		override.Columns[field] = value
	}
	if override.Empty() {
		return nil, nil
	}
	return override, nil
}

func printAnalysis(input string, a pipeline.Analysis) {
	rule := strings.Repeat("=", 80)
	dash := strings.Repeat("-", 80)

	fmt.Println(rule)
	fmt.Printf("分析文件: %s\n", input)
	fmt.Println(rule)
	fmt.Printf("前 %d 行内容:\n", len(a.Preview))
	fmt.Println(dash)
	for _, row := range a.Preview {
		var b strings.Builder
		fmt.Fprintf(&b, "第%2d行: ", row.Number)
		if len(row.Cells) == 0 {
			b.WriteString("(空行)")
		}
		for _, c := range row.Cells {
			fmt.Fprintf(&b, "[%s:%s] ", c.Letter, c.Text)
		}
		if row.Truncated {
			b.WriteString("...")
		}
		fmt.Println(b.String())
	}
	fmt.Println(dash)
	fmt.Println()

	if a.HeaderDetected {
		fmt.Printf("检测到表头行: 第%d行 (包含%d个关键词)\n", a.HeaderRow+1, a.HeaderScore)
	} else {
		fmt.Printf("未明确检测到表头行，建议: 第%d行\n", a.HeaderRow+1)
	}
	fmt.Printf("\n表头行 (第%d行) 的列名:\n", a.HeaderRow+1)
	for _, h := range a.Headers {
		fmt.Printf("  [%s] %s\n", h.Letter, h.Text)
	}

	fmt.Println("\n列映射建议:")
	labels := []struct {
		field internal.Field
		label string
	}{
		{internal.FieldFlightDate, "航班日期"},
		{internal.FieldRoute, "航段"},
		{internal.FieldFlightNo, "航班号"},
		{internal.FieldFuelPrice, "燃油差价费"},
	}
	for _, l := range labels {
		if letter, ok := a.Suggested[l.field]; ok {
			fmt.Printf("  %s: 列 %s\n", l.label, letter)
		}
	}

	fmt.Println()
	fmt.Println(rule)
	fmt.Println("建议的处理命令:")
	fmt.Println(rule)
	fmt.Println(strings.Join(a.Command("fuelbill", input), " \\\n    "))
	fmt.Println()
	if !a.Complete() {
		fmt.Println("注意: 未检测到所有必需列，请根据上面的表格内容手动指定缺失的列")
	}
}

func usage() {
	fmt.Println("usage: fuelbill <command>")
	fmt.Println("commands:")
	fmt.Println("  bill:process --input=bill.xls [--output=out.xlsx] [--config=rules.json]")
	fmt.Println("               [--runtime-config=runtime.json | --header-row=N --date-column=B --route-column=C")
	fmt.Println("                --flight-column=D --price-column=H --origin-column=E --destination-column=F]")
	fmt.Println("               [--validate] [--report-csv=failures.csv]")
	fmt.Println("  bill:analyze --input=bill.xls")
	fmt.Println("  bill:validate --input=result.xlsx [--report-csv=failures.csv]")
	fmt.Println("  bill:watch [--config=rules.json]")
	fmt.Println("  runs:list [--limit=20]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
