package lifesim

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lifesim/internal/config"
	"lifesim/internal/genotype"
	"lifesim/internal/stats"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	base := t.TempDir()
	client, err := New(Options{
		StoreKind:    "memory",
		ArtifactsDir: filepath.Join(base, "simulations"),
		ExportsDir:   filepath.Join(base, "exports"),
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	if err := client.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return client
}

func smallRequest(seed int64) RunRequest {
	return RunRequest{
		Seed:               seed,
		GridWidth:          24,
		GridHeight:         24,
		StepsPerGeneration: 16,
		Generations:        2,
		SelectionCondition: "right_edge",
		Population:         40,
		BrainSize:          6,
		InternalNeurons:    intPtr(1),
		FreshMinds:         intPtr(2),
		Workers:            2,
	}
}

func intPtr(v int) *int { return &v }

func TestClientRunAndQueries(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	summary, err := client.Run(ctx, smallRequest(3))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID == "" || summary.Generations == 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.SurvivalByGeneration) != summary.Generations {
		t.Fatalf("survival series length mismatch: %d vs %d", len(summary.SurvivalByGeneration), summary.Generations)
	}
	if summary.Name != "SIMULATION_3" {
		t.Fatalf("expected default name, got %q", summary.Name)
	}

	runs, err := client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID || runs[0].Population != 40 {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	diagnostics, err := client.Diagnostics(ctx, DiagnosticsRequest{Latest: true})
	if err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
	if len(diagnostics) != summary.Generations {
		t.Fatalf("expected %d diagnostics, got %d", summary.Generations, len(diagnostics))
	}

	lineage, err := client.Lineage(ctx, LineageRequest{RunID: summary.RunID, Limit: 5})
	if err != nil {
		t.Fatalf("lineage: %v", err)
	}
	if len(lineage) != 5 || lineage[0].Operation != "seed" {
		t.Fatalf("unexpected lineage: %+v", lineage)
	}

	inspection, err := client.Genome(ctx, lineage[0].GenomeID)
	if err != nil {
		t.Fatalf("genome: %v", err)
	}
	if len(inspection.Genes) != 6 {
		t.Fatalf("expected 6 genes, got %d", len(inspection.Genes))
	}
	if inspection.CatalogNote != "catalog of run "+summary.RunID {
		t.Fatalf("expected run catalog, got %q", inspection.CatalogNote)
	}
	if lines := strings.Count(inspection.Brain, "\n"); lines != 6 {
		t.Fatalf("expected one brain dump line per gene, got %d", lines)
	}

	export, err := client.Export(ctx, ExportRequest{Latest: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(export.Directory, "settings.json")); err != nil {
		t.Fatalf("expected exported settings: %v", err)
	}
}

func TestClientRunManyKeepsRequestOrder(t *testing.T) {
	client := newTestClient(t)
	first := smallRequest(1)
	first.Name = "first"
	second := smallRequest(2)
	second.Name = "second"

	summaries, err := client.RunMany(context.Background(), []RunRequest{first, second})
	if err != nil {
		t.Fatalf("run many: %v", err)
	}
	if len(summaries) != 2 || summaries[0].Name != "first" || summaries[1].Name != "second" {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
}

func TestClientRunKeepsExplicitZeroSettings(t *testing.T) {
	client := newTestClient(t)
	req := smallRequest(9)
	req.Generations = 1
	zero := 0.0
	req.MutationProbability = &zero
	req.FreshMinds = intPtr(0)
	req.InternalNeurons = intPtr(0)

	summary, err := client.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	settings, ok, err := stats.ReadRunSettings(client.artifactsDir, summary.RunID)
	if err != nil || !ok {
		t.Fatalf("read settings: ok=%t err=%v", ok, err)
	}
	if settings.GeneMutationProbability != 0 || settings.FreshMinds != 0 || settings.MaxInternalNeurons != 0 {
		t.Fatalf("expected explicit zero settings, got %+v", settings)
	}
}

func TestSimulationConfigDefaultsUnsetOptionalFields(t *testing.T) {
	client := newTestClient(t)
	simCfg, err := client.simulationConfig(RunRequest{Population: 4, GridWidth: 8, GridHeight: 8})
	if err != nil {
		t.Fatalf("simulation config: %v", err)
	}
	d := config.Default()
	if simCfg.MutationProbability != d.Mutation.GeneMutationProbability || simCfg.FreshMinds != d.Entities.FreshMinds || simCfg.InternalNeurons != d.Entities.MaxInternalNeurons {
		t.Fatalf("expected defaults for unset fields, got %+v", simCfg)
	}

	cfg := d
	cfg.Mutation.GeneMutationProbability = 0
	cfg.Entities.FreshMinds = 0
	simCfg, err = client.simulationConfig(RunRequestFromConfig(cfg))
	if err != nil {
		t.Fatalf("simulation config from settings: %v", err)
	}
	if simCfg.MutationProbability != 0 || simCfg.FreshMinds != 0 {
		t.Fatalf("expected zero settings to survive, got mutation=%g fresh=%d", simCfg.MutationProbability, simCfg.FreshMinds)
	}
}

func TestClientRejectsInvalidRequests(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	bad := smallRequest(1)
	bad.SelectionCondition = "nowhere-at-all"
	if _, err := client.Run(ctx, bad); err == nil {
		t.Fatal("expected unknown condition error")
	}
	if _, err := client.RunMany(ctx, nil); err == nil {
		t.Fatal("expected error for empty request list")
	}
	if _, err := client.Export(ctx, ExportRequest{}); err == nil {
		t.Fatal("expected export to require run id or latest")
	}
	if _, err := client.Diagnostics(ctx, DiagnosticsRequest{RunID: "x", Latest: true}); err == nil {
		t.Fatal("expected conflicting selectors error")
	}
	if _, err := client.Lineage(ctx, LineageRequest{Latest: true}); err == nil {
		t.Fatal("expected no runs available error")
	}
	if _, err := client.Genome(ctx, "missing"); err == nil {
		t.Fatal("expected missing genome error")
	}
}

func TestInspectGenesSingleEdge(t *testing.T) {
	client := newTestClient(t)
	value := genotype.Encode(genotype.EndpointIO, 0, genotype.EndpointIO, 0, 0xFFFF)
	duplicate := genotype.Encode(genotype.EndpointIO, 0, genotype.EndpointIO, 0, 0)

	inspection, err := client.InspectGenes("g", "", 0, []uint32{value, duplicate})
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if inspection.Accepted != 1 || inspection.LiveEdges != 1 {
		t.Fatalf("expected one live edge: %+v", inspection)
	}
	if inspection.Rejected["duplicate_edge"] != 1 {
		t.Fatalf("expected one duplicate rejection: %+v", inspection.Rejected)
	}
	if inspection.Genes[0].Weight != genotype.MaxWeight {
		t.Fatalf("expected max weight, got %f", inspection.Genes[0].Weight)
	}
	if _, err := client.InspectGenes("g", "", 0, nil); err == nil {
		t.Fatal("expected empty genome error")
	}
}

func TestCatalogAndConditions(t *testing.T) {
	client := newTestClient(t)
	catalog := client.Catalog()
	if len(catalog.DefaultSensors) != 15 || len(catalog.DefaultActuators) != 8 {
		t.Fatalf("unexpected default catalog sizes: sensors=%d actuators=%d", len(catalog.DefaultSensors), len(catalog.DefaultActuators))
	}
	if len(catalog.Sensors) < len(catalog.DefaultSensors) || len(catalog.Activations) == 0 {
		t.Fatalf("unexpected catalog: %+v", catalog)
	}

	conditions, err := client.Conditions(128, 128)
	if err != nil {
		t.Fatalf("conditions: %v", err)
	}
	if len(conditions) < 7 {
		t.Fatalf("expected builtin conditions, got %d", len(conditions))
	}
	for _, cond := range conditions {
		if cond.PrimarySurvivalRate < 0 || cond.PrimarySurvivalRate > 100 {
			t.Fatalf("survival rate out of range: %+v", cond)
		}
	}
	if _, err := client.Conditions(0, 10); err == nil {
		t.Fatal("expected invalid grid error")
	}
}
