package config

// Provider identifies the backing model provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderLocal     Provider = "local"
)

// CredentialEnv returns the environment variable holding the provider API key.
// Local models need no credential, so the returned name is empty.
func (p Provider) CredentialEnv() string {
	switch p {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "CLAUDE_API_KEY"
	default:
		return ""
	}
}

// VectorStore identifies the vector store backing a RAG strategy.
type VectorStore string

const (
	VectorStorePinecone VectorStore = "pinecone"
	VectorStoreWeaviate VectorStore = "weaviate"
	VectorStoreMilvus   VectorStore = "milvus"
	VectorStoreLocal    VectorStore = "local"
)

// ModelConfig identifies a backing model and its generation parameters.
// It is immutable once built; strategies read it but never write back.
type ModelConfig struct {
	Provider    Provider
	ModelID     string
	APIKey      string
	Endpoint    string
	Temperature float64
	MaxTokens   int
}

// TrainingConfig wraps a ModelConfig with generic training parameters.
type TrainingConfig struct {
	Model           ModelConfig
	LearningRate    float64
	BatchSize       int
	Epochs          int
	ValidationSplit float64
	Seed            int64
}

// FineTuningConfig extends TrainingConfig with parameter-efficient adapter settings.
type FineTuningConfig struct {
	TrainingConfig
	LoraRank      int
	LoraAlpha     int
	TargetModules []string
	UseQLoRA      bool
}

// RLHFConfig extends TrainingConfig with reward-model and policy-optimization settings.
type RLHFConfig struct {
	TrainingConfig
	RewardModelPath string
	PPOEpochs       int
	ClipRatio       float64
}

// RAGConfig configures document indexing and similarity retrieval.
type RAGConfig struct {
	Store               VectorStore
	EmbeddingModel      string
	TopK                int
	SimilarityThreshold float64
}
