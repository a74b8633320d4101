package stats

import (
	"os"
	"path/filepath"
	"testing"

	"lifesim/internal/model"
)

func TestWriteAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	runID := "run-123"
	artifacts := RunArtifacts{
		Settings: RunSettings{
			RunID:              runID,
			GridWidth:          16,
			GridHeight:         16,
			MaxEntityCount:     32,
			SelectionCondition: "almost_p",
			Seed:               1,
		},
		Generations: []model.GenerationDiagnostics{
			{Generation: 0, Survivors: 4, SurvivalRate: 12.5, PrimarySurvivalRate: 16},
			{Generation: 1, Survivors: 8, SurvivalRate: 25, PrimarySurvivalRate: 16},
		},
		Lineage: []model.LineageRecord{
			{GenomeID: "g1", Operation: "seed"},
			{GenomeID: "g2", ParentIDs: []string{"g1", "g1"}, Generation: 1, Operation: "crossover"},
		},
		FinalGenomes: []model.GenomeRecord{{
			ID:    "g1",
			Genes: []uint32{0x8583FFFF},
		}},
	}

	runDir, err := WriteRunArtifacts(baseDir, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	files := []string{"settings.json", "simulation_data.json", "lineage.json", "final_genomes.json", "survival_series.csv"}
	for _, file := range files {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}

	lineage, ok, err := ReadLineage(baseDir, runID)
	if err != nil || !ok || len(lineage) != 2 || lineage[1].ParentIDs[0] != "g1" {
		t.Fatalf("unexpected lineage: %+v ok=%t err=%v", lineage, ok, err)
	}
	series, ok, err := ReadSurvivalSeries(baseDir, runID)
	if err != nil || !ok {
		t.Fatalf("read survival series: ok=%t err=%v", ok, err)
	}
	if len(series) != 2 || series[0] != 12.5 || series[1] != 25 {
		t.Fatalf("unexpected survival series: %v", series)
	}

	genomes, ok, err := ReadFinalGenomes(baseDir, runID)
	if err != nil || !ok || len(genomes) != 1 || genomes[0].Genes[0] != 0x8583FFFF {
		t.Fatalf("unexpected final genomes: %+v ok=%t err=%v", genomes, ok, err)
	}

	exportedDir, err := ExportRunArtifacts(baseDir, runID, outDir)
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}
	for _, file := range files {
		if _, err := os.Stat(filepath.Join(exportedDir, file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}
}

func TestSettingsAndGenerationDataAppend(t *testing.T) {
	baseDir := t.TempDir()
	runDir, err := WriteRunSettings(baseDir, RunSettings{RunID: "run-7", Name: "demo", Sensors: []string{"age"}})
	if err != nil {
		t.Fatalf("write settings: %v", err)
	}

	settings, ok, err := ReadRunSettings(baseDir, "run-7")
	if err != nil || !ok {
		t.Fatalf("read settings: ok=%t err=%v", ok, err)
	}
	if settings.Name != "demo" || len(settings.Sensors) != 1 {
		t.Fatalf("unexpected settings: %+v", settings)
	}

	for gen := 0; gen < 3; gen++ {
		if err := AppendGenerationData(runDir, model.GenerationDiagnostics{Generation: gen, Survivors: gen * 2}); err != nil {
			t.Fatalf("append generation %d: %v", gen, err)
		}
	}
	data, ok, err := ReadGenerationData(baseDir, "run-7")
	if err != nil || !ok {
		t.Fatalf("read generation data: ok=%t err=%v", ok, err)
	}
	if len(data) != 3 || data[2].Survivors != 4 {
		t.Fatalf("unexpected generation data: %+v", data)
	}

	if _, ok, err := ReadRunSettings(baseDir, "missing"); ok || err != nil {
		t.Fatalf("expected missing settings: ok=%t err=%v", ok, err)
	}
	if _, err := WriteRunSettings(baseDir, RunSettings{}); err == nil {
		t.Fatal("expected run id validation")
	}
}

func TestRunIndexAppendListAndUpsert(t *testing.T) {
	baseDir := t.TempDir()

	err := AppendRunIndex(baseDir, RunIndexEntry{
		RunID:              "run-1",
		SelectionCondition: "almost_p",
		PopulationSize:     8,
		Generations:        3,
		Seed:               1,
		FinalSurvivalRate:  40,
		CreatedAtUTC:       "2026-02-10T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("append run-1: %v", err)
	}

	err = AppendRunIndex(baseDir, RunIndexEntry{
		RunID:              "run-2",
		SelectionCondition: "almost_p",
		PopulationSize:     8,
		Generations:        3,
		Seed:               2,
		FinalSurvivalRate:  42,
		CreatedAtUTC:       "2026-02-10T11:00:00Z",
	})
	if err != nil {
		t.Fatalf("append run-2: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "run-2" || entries[1].RunID != "run-1" {
		t.Fatalf("unexpected order: %+v", entries)
	}

	err = AppendRunIndex(baseDir, RunIndexEntry{
		RunID:             "run-1",
		PopulationSize:    8,
		Generations:       3,
		Seed:              1,
		FinalSurvivalRate: 90,
		CreatedAtUTC:      "2026-02-10T12:00:00Z",
	})
	if err != nil {
		t.Fatalf("upsert run-1: %v", err)
	}

	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list after upsert: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after upsert, got %d", len(entries))
	}
	if entries[0].RunID != "run-1" || entries[0].FinalSurvivalRate != 90 {
		t.Fatalf("unexpected upsert result: %+v", entries[0])
	}
}

func TestRunIndexEqualTimestampPrefersLaterAppend(t *testing.T) {
	baseDir := t.TempDir()
	ts := "2026-02-10T12:00:00Z"

	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-a", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-a: %v", err)
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-b", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-b: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "run-b" {
		t.Fatalf("expected latest appended run-b first, got %+v", entries)
	}
}
