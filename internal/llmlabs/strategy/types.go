package strategy

import "time"

// Kind identifies a concrete strategy variant. It is an explicit tag rather
// than a reflected type name so result keys stay stable across renames.
type Kind string

const (
	KindPretraining Kind = "pretraining"
	KindFineTuning  Kind = "fine-tuning"
	KindRLHF        Kind = "rlhf"
	KindRAG         Kind = "rag"
)

// TrainingResult is the outcome of one Train invocation. Failures are encoded
// here instead of being returned as errors, so an orchestrated run can collect
// a result for every declared strategy. Success and Err are mutually exclusive.
type TrainingResult struct {
	Success    bool               `json:"success"`
	ModelID    string             `json:"model_id"`
	Duration   time.Duration      `json:"duration"`
	Metrics    map[string]float64 `json:"metrics"`
	Checkpoint string             `json:"checkpoint,omitempty"`
	Err        string             `json:"error,omitempty"`
}

// Metrics is a timestamped progress snapshot appended by a strategy while it runs.
type Metrics struct {
	Strategy  Kind           `json:"strategy"`
	Timestamp time.Time      `json:"timestamp"`
	Values    map[string]any `json:"values"`
	Duration  time.Duration  `json:"duration"`
}

// TextRecord is a raw-text pretraining sample.
type TextRecord struct {
	ID   string            `json:"id"`
	Text string            `json:"text"`
	Meta map[string]string `json:"metadata,omitempty"`
}

// Pair is a prompt/response fine-tuning sample.
type Pair struct {
	Prompt   string            `json:"prompt"`
	Response string            `json:"response"`
	Meta     map[string]string `json:"metadata,omitempty"`
}

// Preference is an RLHF sample: one preferred and one rejected completion
// for the same prompt.
type Preference struct {
	Prompt   string            `json:"prompt"`
	Chosen   string            `json:"chosen"`
	Rejected string            `json:"rejected"`
	Meta     map[string]string `json:"metadata,omitempty"`
}

// Document is a RAG corpus entry. Embedding may be precomputed by the caller;
// when absent, indexing fills it with the deterministic simulation embedding.
type Document struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Meta      map[string]string `json:"metadata,omitempty"`
	Embedding []float64         `json:"embedding,omitempty"`
}
