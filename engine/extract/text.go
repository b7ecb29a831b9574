package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MatchwiseAI/matchwise-mvp/engine/domain"
)

// TextExtractor converts a binary document into plain text. PDF and
// other rich formats are handled by an external extraction service
// behind this interface.
type TextExtractor interface {
	ExtractText(ctx context.Context, doc []byte) (string, error)
}

// PlainText is the trivial TextExtractor for documents that are already
// text.
type PlainText struct{}

// ExtractText returns the document bytes as a string. Empty or
// non-UTF-8 input is an extraction error.
func (PlainText) ExtractText(_ context.Context, doc []byte) (string, error) {
	text := strings.TrimSpace(string(doc))
	if text == "" {
		return "", domain.ErrEmptyInput
	}
	if !utf8.ValidString(text) {
		return "", fmt.Errorf("extract text: document is not valid UTF-8")
	}
	return text, nil
}
