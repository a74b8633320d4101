package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

func (v VersionedRecord) Version() VersionedRecord { return v }

// GenomeRecord is a persisted genome. Genes is the ordered gene sequence, the
// only serialized form a genome has.
type GenomeRecord struct {
	VersionedRecord
	ID         string   `json:"id"`
	RunID      string   `json:"run_id"`
	Generation int      `json:"generation"`
	Genes      []uint32 `json:"genes"`
}

type Population struct {
	VersionedRecord
	ID         string   `json:"id"`
	RunID      string   `json:"run_id"`
	Generation int      `json:"generation"`
	GenomeIDs  []string `json:"genome_ids"`
}

type LineageRecord struct {
	VersionedRecord
	GenomeID   string   `json:"genome_id"`
	Generation int      `json:"generation"`
	ParentIDs  []string `json:"parent_ids,omitempty"`
	Operation  string   `json:"operation"`
}

type GenerationDiagnostics struct {
	Generation          int            `json:"generation"`
	Population          int            `json:"population"`
	Survivors           int            `json:"survivors"`
	SurvivalRate        float64        `json:"survival_rate"`
	PrimarySurvivalRate float64        `json:"primary_survival_rate"`
	MeanLiveEdges       float64        `json:"mean_live_edges"`
	MeanRejectedGenes   float64        `json:"mean_rejected_genes"`
	MeanGenomeLength    float64        `json:"mean_genome_length"`
	Actions             map[string]int `json:"actions,omitempty"`
	NeuronUsage         map[string]int `json:"neuron_usage,omitempty"`
	SampleBrains        []string       `json:"sample_brains,omitempty"`
	ElapsedMillis       int64          `json:"elapsed_ms"`
}

type RunSummary struct {
	VersionedRecord
	RunID             string  `json:"run_id"`
	Name              string  `json:"name"`
	Seed              int64   `json:"seed"`
	Generations       int     `json:"generations"`
	StopReason        string  `json:"stop_reason"`
	FinalSurvivalRate float64 `json:"final_survival_rate"`
	BestSurvivalRate  float64 `json:"best_survival_rate"`
}
