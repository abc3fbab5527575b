// Package dataset loads strategy training data from plain JSON files, one
// array per file. It exists for the CLI; library callers usually feed
// strategies directly.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spigell/llm-labs/internal/llmlabs/strategy"
)

// TextRecords loads raw-text pretraining records from the given file.
func TextRecords(path string) ([]strategy.TextRecord, error) {
	return load[strategy.TextRecord](path, "text records")
}

// Pairs loads prompt/response fine-tuning pairs from the given file.
func Pairs(path string) ([]strategy.Pair, error) {
	return load[strategy.Pair](path, "training pairs")
}

// Preferences loads RLHF preference examples from the given file.
func Preferences(path string) ([]strategy.Preference, error) {
	return load[strategy.Preference](path, "preference examples")
}

// Documents loads RAG documents from the given file.
func Documents(path string) ([]strategy.Document, error) {
	return load[strategy.Document](path, "documents")
}

func load[T any](path, kind string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s file: %w", kind, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s file: %w", kind, err)
	}

	if stat.Size() == 0 {
		return nil, nil
	}

	var items []T
	if err := json.NewDecoder(file).Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding %s from %q: %w", kind, path, err)
	}

	return items, nil
}
