package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"lifesim/internal/model"
)

const (
	runIndexFile       = "run_index.json"
	settingsFile       = "settings.json"
	simulationDataFile = "simulation_data.json"
	lineageFile        = "lineage.json"
	finalGenomesFile   = "final_genomes.json"
	survivalSeriesFile = "survival_series.csv"
)

// RunSettings is the settings snapshot written when a run starts.
type RunSettings struct {
	RunID                   string   `json:"run_id"`
	Name                    string   `json:"name"`
	Seed                    int64    `json:"seed"`
	GridWidth               int      `json:"grid_width"`
	GridHeight              int      `json:"grid_height"`
	StepsPerGeneration      int      `json:"steps_per_generation"`
	MaxGenerations          int      `json:"max_generations"`
	SelectionCondition      string   `json:"selection_condition"`
	MaxEntityCount          int      `json:"max_entity_count"`
	BrainSize               int      `json:"brain_size"`
	MaxInternalNeurons      int      `json:"max_internal_neurons"`
	FreshMinds              int      `json:"fresh_minds"`
	GeneMutationProbability float64  `json:"gene_mutation_probability"`
	Activation              string   `json:"activation"`
	Sensors                 []string `json:"sensors"`
	Actuators               []string `json:"actuators"`
	Workers                 int      `json:"workers"`
}

type RunArtifacts struct {
	Settings     RunSettings                   `json:"settings"`
	Generations  []model.GenerationDiagnostics `json:"generations"`
	Lineage      []model.LineageRecord         `json:"lineage"`
	FinalGenomes []model.GenomeRecord          `json:"final_genomes"`
}

type RunIndexEntry struct {
	RunID              string  `json:"run_id"`
	Name               string  `json:"name"`
	PopulationSize     int     `json:"population_size"`
	Generations        int     `json:"generations"`
	Seed               int64   `json:"seed"`
	Workers            int     `json:"workers"`
	SelectionCondition string  `json:"selection_condition"`
	FinalSurvivalRate  float64 `json:"final_survival_rate"`
	StopReason         string  `json:"stop_reason"`
	CreatedAtUTC       string  `json:"created_at_utc"`
}

// WriteRunSettings creates the run directory and writes settings.json.
func WriteRunSettings(baseDir string, settings RunSettings) (string, error) {
	if settings.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}
	runDir := filepath.Join(baseDir, settings.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, settingsFile), settings); err != nil {
		return "", err
	}
	return runDir, nil
}

func ReadRunSettings(baseDir, runID string) (RunSettings, bool, error) {
	var settings RunSettings
	ok, err := readJSON(filepath.Join(baseDir, runID, settingsFile), &settings)
	return settings, ok, err
}

// AppendGenerationData appends one generation record to simulation_data.json.
func AppendGenerationData(runDir string, diagnostics model.GenerationDiagnostics) error {
	path := filepath.Join(runDir, simulationDataFile)
	var existing []model.GenerationDiagnostics
	if _, err := readJSON(path, &existing); err != nil {
		return err
	}
	existing = append(existing, diagnostics)
	return writeJSON(path, existing)
}

func ReadGenerationData(baseDir, runID string) ([]model.GenerationDiagnostics, bool, error) {
	var diagnostics []model.GenerationDiagnostics
	ok, err := readJSON(filepath.Join(baseDir, runID, simulationDataFile), &diagnostics)
	return diagnostics, ok, err
}

// WriteRunArtifacts writes the complete artifact set of a finished run,
// replacing anything appended while it ran.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	runDir, err := WriteRunSettings(baseDir, artifacts.Settings)
	if err != nil {
		return "", err
	}
	generations := artifacts.Generations
	if generations == nil {
		generations = []model.GenerationDiagnostics{}
	}
	if err := writeJSON(filepath.Join(runDir, simulationDataFile), generations); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, lineageFile), artifacts.Lineage); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, finalGenomesFile), artifacts.FinalGenomes); err != nil {
		return "", err
	}
	if err := WriteSurvivalSeries(runDir, generations); err != nil {
		return "", err
	}
	return runDir, nil
}

func ReadFinalGenomes(baseDir, runID string) ([]model.GenomeRecord, bool, error) {
	var genomes []model.GenomeRecord
	ok, err := readJSON(filepath.Join(baseDir, runID, finalGenomesFile), &genomes)
	return genomes, ok, err
}

func ReadLineage(baseDir, runID string) ([]model.LineageRecord, bool, error) {
	var lineage []model.LineageRecord
	ok, err := readJSON(filepath.Join(baseDir, runID, lineageFile), &lineage)
	return lineage, ok, err
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	var entries []RunIndexEntry
	ok, err := readJSON(filepath.Join(baseDir, runIndexFile), &entries)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []RunIndexEntry{}, nil
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// WriteSurvivalSeries writes one CSV row per generation.
func WriteSurvivalSeries(runDir string, generations []model.GenerationDiagnostics) error {
	file, err := os.Create(filepath.Join(runDir, survivalSeriesFile))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"generation", "survivors", "survival_rate", "primary_survival_rate"}); err != nil {
		return err
	}
	for _, g := range generations {
		if err := writer.Write([]string{
			strconv.Itoa(g.Generation),
			strconv.Itoa(g.Survivors),
			strconv.FormatFloat(g.SurvivalRate, 'f', -1, 64),
			strconv.FormatFloat(g.PrimarySurvivalRate, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadSurvivalSeries returns the survival rate column of survival_series.csv.
func ReadSurvivalSeries(baseDir, runID string) ([]float64, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, survivalSeriesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}

	series := make([]float64, 0, 64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 3 {
			return nil, false, fmt.Errorf("survival series row must have at least 3 columns")
		}
		value, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, false, err
		}
		series = append(series, value)
	}
	return series, true, nil
}

// ExportRunArtifacts copies a run directory's files to outDir/runID.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{settingsFile, simulationDataFile, lineageFile, finalGenomesFile, survivalSeriesFile} {
		path := filepath.Join(src, file)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", err
		}
		if err := copyFile(path, filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
