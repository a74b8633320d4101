package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"lifesim/internal/config"
	"lifesim/internal/storage"
	"lifesim/pkg/lifesim"
)

const (
	defaultConfigPath = "lifesim.ini"
	exportsDir        = "exports"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	global := flag.NewFlagSet("lifesimctl", flag.ContinueOnError)
	logLevel := global.String("log-level", "info", "log level: debug|info|warn|error")
	logJSON := global.Bool("log-json", false, "emit logs as JSON")
	if err := global.Parse(args); err != nil {
		return err
	}
	args = global.Args()
	if len(args) == 0 {
		return usageError("missing command")
	}

	logger, err := newLogger(os.Stderr, *logLevel, *logJSON)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "lineage":
		return runLineage(ctx, args[1:])
	case "genome":
		return runGenome(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "conditions":
		return runConditions(ctx, args[1:])
	case "catalog":
		return runCatalog(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func newLogger(w io.Writer, level string, jsonOut bool) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if jsonOut {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "settings file to write")
	force := fs.Bool("force", false, "overwrite an existing settings file")
	storeKind := fs.String("store", storage.DefaultStoreKind, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", config.Default().Storage.DBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := os.Stat(*configPath); err == nil && !*force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", *configPath)
	}
	cfg := config.Default()
	cfg.Storage.Store = *storeKind
	cfg.Storage.DBPath = *dbPath
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(*configPath, cfg); err != nil {
		return err
	}

	client, err := newClient(cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized config=%s store=%s\n", *configPath, *storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional settings file (INI)")
	runID := fs.String("run-id", "", "explicit run id (single run only)")
	runs := fs.Int("runs", 1, "number of independent simulations to run concurrently")
	jsonOut := fs.Bool("json", false, "emit run summaries as JSON")
	overrides := bindRunFlags(fs, config.Default())
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})
	if *runs <= 0 {
		return errors.New("runs must be > 0")
	}
	if *runs > 1 && *runID != "" {
		return errors.New("--run-id cannot be combined with --runs > 1")
	}

	cfg, err := loadRunConfig(*configPath)
	if err != nil {
		return err
	}
	overrides.apply(&cfg, setFlags)
	if err := cfg.Validate(); err != nil {
		return err
	}

	base := lifesim.RunRequestFromConfig(cfg)
	base.RunID = *runID
	reqs := replicateRequests(base, *runs)

	client, err := newClient(cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summaries, err := client.RunMany(ctx, reqs)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(summaries)
	}
	for _, s := range summaries {
		fmt.Printf("run_id=%s name=%s seed=%d generations=%d stop_reason=%s final_survival=%.2f best_survival=%.2f artifacts=%s\n",
			s.RunID,
			s.Name,
			s.Seed,
			s.Generations,
			s.StopReason,
			s.FinalSurvivalRate,
			s.BestSurvivalRate,
			s.ArtifactsDir,
		)
	}
	return nil
}

// replicateRequests derives n requests from base with consecutive seeds.
func replicateRequests(base lifesim.RunRequest, n int) []lifesim.RunRequest {
	if n == 1 {
		return []lifesim.RunRequest{base}
	}
	reqs := make([]lifesim.RunRequest, n)
	for i := range reqs {
		req := base
		req.Seed = base.Seed + int64(i)
		if base.Name != "" {
			req.Name = fmt.Sprintf("%s_%d", base.Name, i+1)
		}
		reqs[i] = req
	}
	return reqs
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	storageFlags := bindStorageFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := newClient(storageFlags.settings())
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, lifesim.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		return writeJSON(items)
	}
	for _, e := range items {
		fmt.Printf("run_id=%s name=%s created_at=%s seed=%d pop=%d gens=%d condition=%s final_survival=%.2f stop_reason=%s\n",
			e.RunID,
			e.Name,
			e.CreatedAtUTC,
			e.Seed,
			e.Population,
			e.Generations,
			e.SelectionCondition,
			e.FinalSurvivalRate,
			e.StopReason,
		)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics for the most recent run from run index")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	brains := fs.Bool("brains", false, "print the sampled brain dumps of each generation")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	storageFlags := bindStorageFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("diagnostics requires --run-id or --latest")
	}
	if *limit < 0 {
		*limit = 0
	}

	client, err := newClient(storageFlags.settings())
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, lifesim.DiagnosticsRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	if *jsonOut {
		return writeJSON(diagnostics)
	}

	for _, d := range diagnostics {
		fmt.Printf("generation=%d population=%d survivors=%d survival_rate=%.2f primary_survival_rate=%.2f mean_live_edges=%.3f mean_rejected_genes=%.3f mean_genome_length=%.2f elapsed_ms=%d\n",
			d.Generation,
			d.Population,
			d.Survivors,
			d.SurvivalRate,
			d.PrimarySurvivalRate,
			d.MeanLiveEdges,
			d.MeanRejectedGenes,
			d.MeanGenomeLength,
			d.ElapsedMillis,
		)
		if *brains {
			for i, brain := range d.SampleBrains {
				fmt.Printf("  brain %d:\n%s", i, indent(brain, "    "))
			}
		}
	}
	return nil
}

func runLineage(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("lineage", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show lineage for the most recent run from run index")
	limit := fs.Int("limit", 50, "max lineage records to print (0 for all)")
	jsonOut := fs.Bool("json", false, "emit lineage as JSON")
	storageFlags := bindStorageFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("lineage requires --run-id or --latest")
	}

	client, err := newClient(storageFlags.settings())
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	lineage, err := client.Lineage(ctx, lifesim.LineageRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(lineage)
	}
	for _, rec := range lineage {
		parents := "-"
		if len(rec.ParentIDs) > 0 {
			parents = strings.Join(rec.ParentIDs, ",")
		}
		fmt.Printf("gen=%d genome_id=%s operation=%s parents=%s\n", rec.Generation, rec.GenomeID, rec.Operation, parents)
	}
	return nil
}

func runGenome(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("genome", flag.ContinueOnError)
	genomeID := fs.String("id", "", "stored genome id")
	genes := fs.String("genes", "", "comma-separated 8-digit hex gene values to compile with the default catalog")
	jsonOut := fs.Bool("json", false, "emit inspection as JSON")
	storageFlags := bindStorageFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*genomeID == "") == (*genes == "") {
		return errors.New("genome requires exactly one of --id or --genes")
	}

	client, err := newClient(storageFlags.settings())
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	var inspection lifesim.GenomeInspection
	if *genomeID != "" {
		inspection, err = client.Genome(ctx, *genomeID)
	} else {
		var values []uint32
		values, err = parseGeneValues(*genes)
		if err == nil {
			inspection, err = client.InspectGenes("", "", 0, values)
		}
	}
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(inspection)
	}

	fmt.Printf("genome_id=%s run_id=%s gen=%d genes=%d accepted=%d pruned=%d live_edges=%d color=#%02x%02x%02x catalog=%q\n",
		inspection.ID,
		inspection.RunID,
		inspection.Generation,
		len(inspection.Genes),
		inspection.Accepted,
		inspection.Pruned,
		inspection.LiveEdges,
		inspection.ColorRGB[0], inspection.ColorRGB[1], inspection.ColorRGB[2],
		inspection.CatalogNote,
	)
	for reason, n := range inspection.Rejected {
		fmt.Printf("rejected %s=%d\n", reason, n)
	}
	for _, g := range inspection.Genes {
		fmt.Printf("gene %08x %s[%d] -> %s[%d] weight=%.4f\n", g.Value, g.TipKind, g.TipIndex, g.EndKind, g.EndIndex, g.Weight)
	}
	fmt.Print(inspection.Brain)
	return nil
}

func parseGeneValues(raw string) ([]uint32, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
	values := make([]uint32, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimPrefix(strings.ToLower(field), "0x")
		if len(field) != 8 {
			return nil, fmt.Errorf("gene %q: want 8 hex digits", field)
		}
		v, err := strconv.ParseUint(field, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("gene %q: %w", field, err)
		}
		values = append(values, uint32(v))
	}
	return values, nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	storageFlags := bindStorageFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}

	client, err := newClient(storageFlags.settings())
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, lifesim.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
	return nil
}

func runConditions(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("conditions", flag.ContinueOnError)
	defaults := config.Default()
	width := fs.Int("width", defaults.Grid.Width, "grid width")
	height := fs.Int("height", defaults.Grid.Height, "grid height")
	jsonOut := fs.Bool("json", false, "emit conditions as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(defaults.Storage)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	conditions, err := client.Conditions(*width, *height)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(conditions)
	}
	for _, c := range conditions {
		fmt.Printf("condition=%s primary_survival_rate=%.2f\n", c.Name, c.PrimarySurvivalRate)
	}
	return nil
}

func runCatalog(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("catalog", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit catalog as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(config.Default().Storage)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	catalog := client.Catalog()
	if *jsonOut {
		return writeJSON(catalog)
	}
	fmt.Printf("default_sensors=%s\n", strings.Join(catalog.DefaultSensors, " "))
	fmt.Printf("default_actuators=%s\n", strings.Join(catalog.DefaultActuators, " "))
	fmt.Printf("activations=%s\n", strings.Join(catalog.Activations, " "))
	for _, s := range catalog.Sensors {
		fmt.Printf("sensor %-20s %s\n", s.Name, s.Description)
	}
	for _, a := range catalog.Actuators {
		fmt.Printf("actuator %-18s %s\n", a.Name, a.Description)
	}
	return nil
}

func newClient(settings config.Storage) (*lifesim.Client, error) {
	return lifesim.New(lifesim.Options{
		StoreKind:    settings.Store,
		DBPath:       settings.DBPath,
		ArtifactsDir: settings.ArtifactsDir,
		ExportsDir:   exportsDir,
		Logger:       slog.Default(),
	})
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func indent(text, prefix string) string {
	lines := strings.SplitAfter(text, "\n")
	var b strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		b.WriteString(prefix)
		b.WriteString(line)
	}
	return b.String()
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: lifesimctl [--log-level level] [--log-json] <init|run|runs|diagnostics|lineage|genome|export|conditions|catalog> [flags]", msg)
}
