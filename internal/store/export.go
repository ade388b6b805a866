package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pbaille/fefe/internal/domain"
)

const (
	// PromptSeparator ends every prompt in the training export
	PromptSeparator = "\n\n###\n\n"
	// CompletionEnd terminates every completion in the training export
	CompletionEnd = "<<END>>"
)

// TrainingRecord is one line of the fine-tuning export
type TrainingRecord struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// NewTrainingRecord pairs an article's tags with its body
func NewTrainingRecord(a domain.Article) TrainingRecord {
	return TrainingRecord{
		Prompt:     a.Tags.String() + PromptSeparator,
		Completion: " " + a.Body + CompletionEnd,
	}
}

// WriteTrainingJSONL writes one prompt/completion object per line
func WriteTrainingJSONL(w io.Writer, articles []domain.Article) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)

	for _, a := range articles {
		if err := enc.Encode(NewTrainingRecord(a)); err != nil {
			return fmt.Errorf("encode %s: %w", a.ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush export: %w", err)
	}
	return nil
}
