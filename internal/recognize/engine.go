package recognize

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"
)

// Result is the output of one recognition pass. Confidence is a 0-100
// score; an unreadable document yields an empty text body and a zero
// score, not an error.
type Result struct {
	Text       string
	Confidence float64
}

// Engine turns a stored document into text. An error return means the
// backend itself is unavailable and the unit should be retried; content
// problems degrade to a zero-confidence Result instead.
type Engine interface {
	Recognize(ctx context.Context, fileURI string) (Result, error)
}

// PlainTextEngine reads documents as UTF-8 text. It stands in for an OCR
// backend in deployments whose intake is already textual.
type PlainTextEngine struct{}

func NewPlainTextEngine() PlainTextEngine { return PlainTextEngine{} }

func (PlainTextEngine) Recognize(ctx context.Context, fileURI string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	data, err := os.ReadFile(fileURI)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return Result{}, nil
		}
		return Result{}, err
	}
	text := strings.TrimSpace(string(data))
	if text == "" || !utf8.ValidString(text) {
		return Result{}, nil
	}
	return Result{Text: text, Confidence: 100}, nil
}
