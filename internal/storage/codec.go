package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"lifesim/internal/genotype"
	"lifesim/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// CurrentVersion stamps records written by this build.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

type versioned interface {
	Version() model.VersionedRecord
}

func EncodeGenome(g model.GenomeRecord) ([]byte, error) {
	if len(g.Genes) == 0 {
		return nil, fmt.Errorf("genome %s: %w", g.ID, genotype.ErrEmptyGenome)
	}
	return json.Marshal(g)
}

// DecodeGenome rejects records from another schema and records without genes.
func DecodeGenome(data []byte) (model.GenomeRecord, error) {
	genome, err := decodeRecord[model.GenomeRecord]("genome", data)
	if err != nil {
		return model.GenomeRecord{}, err
	}
	if len(genome.Genes) == 0 {
		return model.GenomeRecord{}, fmt.Errorf("genome %s: %w", genome.ID, genotype.ErrEmptyGenome)
	}
	return genome, nil
}

func EncodePopulation(p model.Population) ([]byte, error) {
	return json.Marshal(p)
}

func DecodePopulation(data []byte) (model.Population, error) {
	return decodeRecord[model.Population]("population", data)
}

func EncodeLineage(records []model.LineageRecord) ([]byte, error) {
	return json.Marshal(records)
}

func DecodeLineage(data []byte) ([]model.LineageRecord, error) {
	return decodeRecords[model.LineageRecord]("lineage", data)
}

// Generation diagnostics carry no version stamp; they are rewritten whole on
// every generation.
func EncodeGenerationDiagnostics(diagnostics []model.GenerationDiagnostics) ([]byte, error) {
	return json.Marshal(diagnostics)
}

func DecodeGenerationDiagnostics(data []byte) ([]model.GenerationDiagnostics, error) {
	var diagnostics []model.GenerationDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return nil, fmt.Errorf("decode diagnostics: %w", err)
	}
	return diagnostics, nil
}

func EncodeRunSummary(s model.RunSummary) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeRunSummary(data []byte) (model.RunSummary, error) {
	return decodeRecord[model.RunSummary]("run summary", data)
}

func decodeRecord[T versioned](kind string, data []byte) (T, error) {
	var record T
	if err := json.Unmarshal(data, &record); err != nil {
		var zero T
		return zero, fmt.Errorf("decode %s: %w", kind, err)
	}
	if err := checkVersion(kind, record.Version()); err != nil {
		var zero T
		return zero, err
	}
	return record, nil
}

func decodeRecords[T versioned](kind string, data []byte) ([]T, error) {
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	for _, record := range records {
		if err := checkVersion(kind, record.Version()); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func checkVersion(kind string, v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: %s schema=%d codec=%d, want schema=%d codec=%d",
			ErrVersionMismatch, kind, v.SchemaVersion, v.CodecVersion, CurrentSchemaVersion, CurrentCodecVersion)
	}
	return nil
}
