package strategy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/llm-labs/internal/llmlabs/config"
	"github.com/spigell/llm-labs/internal/logger"
)

const queryLogPreviewLimit = 80

// Query is a retrieval request. TopK overrides the configured top-k when positive.
type Query struct {
	Text string
	TopK int
}

// Retrieval holds the retrieved documents and their similarity scores, best
// first. Scores is parallel to Documents.
type Retrieval struct {
	Documents []Document
	Scores    []float64
}

// RAG simulates retrieval-augmented generation: Train indexes the accumulated
// documents and Retrieve answers similarity queries against the index.
type RAG struct {
	tracker

	cfg    config.TrainingConfig
	ragCfg config.RAGConfig
	docs   []Document
}

// NewRAG creates a RAG strategy for the given configs.
func NewRAG(cfg config.TrainingConfig, ragCfg config.RAGConfig, logger *zap.Logger) *RAG {
	return &RAG{
		tracker: newTracker(KindRAG, cfg, logger),
		cfg:     cfg,
		ragCfg:  ragCfg,
	}
}

// AddDocuments appends documents to the corpus awaiting indexing.
func (s *RAG) AddDocuments(docs ...Document) {
	s.docs = append(s.docs, docs...)
}

// Documents returns the accumulated documents.
func (s *RAG) Documents() []Document {
	out := make([]Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// Train indexes the accumulated documents: every document without a
// caller-supplied embedding gets the deterministic simulation one. Documents
// that already carry an embedding keep it unchanged.
func (s *RAG) Train(_ context.Context) *TrainingResult {
	start := time.Now()

	if err := validate(s.cfg.Model); err != nil {
		return failure(s.cfg.Model.ModelID, start, err)
	}

	if len(s.docs) == 0 {
		return failure(s.cfg.Model.ModelID, start, &DataError{Reason: "no documents provided"})
	}

	embedded := 0
	for i := range s.docs {
		if len(s.docs[i].Embedding) != 0 {
			continue
		}
		s.docs[i].Embedding = Embed(s.docs[i].Content)
		embedded++
	}

	s.logger.Info("documents indexed",
		zap.Int("documents", len(s.docs)),
		zap.Int("embedded", embedded),
		zap.String("vector_store", string(s.ragCfg.Store)),
	)

	duration := time.Since(start)
	s.record(map[string]any{
		"documents_indexed": len(s.docs),
		"vector_store":      string(s.ragCfg.Store),
		"embedding_model":   s.ragCfg.EmbeddingModel,
		"top_k":             s.ragCfg.TopK,
	}, duration)

	return &TrainingResult{
		Success:  true,
		ModelID:  s.cfg.Model.ModelID,
		Duration: duration,
		Metrics: map[string]float64{
			"documents_indexed": float64(len(s.docs)),
		},
		Checkpoint: fmt.Sprintf("vectorstores/%s", s.ragCfg.Store),
	}
}

// Retrieve embeds the query, scores every indexed document by cosine
// similarity, drops scores below the configured threshold and returns at most
// top-k documents in non-increasing score order. An empty result is a valid
// outcome, not an error.
func (s *RAG) Retrieve(_ context.Context, q Query) (*Retrieval, error) {
	if q.Text == "" {
		return nil, fmt.Errorf("query text is required")
	}

	topK := q.TopK
	if topK <= 0 {
		topK = s.ragCfg.TopK
	}
	if topK <= 0 {
		topK = config.DefaultTopK
	}

	queryEmbedding := Embed(q.Text)

	type scored struct {
		doc   Document
		score float64
	}

	matches := make([]scored, 0, len(s.docs))
	for _, doc := range s.docs {
		if len(doc.Embedding) == 0 {
			// Not indexed yet; Train has not seen this document.
			continue
		}

		score := CosineSimilarity(queryEmbedding, doc.Embedding)
		if score < s.ragCfg.SimilarityThreshold {
			continue
		}

		matches = append(matches, scored{doc: doc, score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}

	result := &Retrieval{
		Documents: make([]Document, 0, len(matches)),
		Scores:    make([]float64, 0, len(matches)),
	}
	for _, match := range matches {
		result.Documents = append(result.Documents, match.doc)
		result.Scores = append(result.Scores, match.score)
	}

	s.logger.Debug("retrieval finished",
		zap.String("query_preview", logger.TruncateForLog(q.Text, queryLogPreviewLimit)),
		zap.Int("top_k", topK),
		zap.Int("matched", len(result.Documents)),
	)

	return result, nil
}
