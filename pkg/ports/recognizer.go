package ports

import (
	"context"

	"github.com/parleyio/parley/pkg/domain"
)

// Recognizer is the opaque intent classifier consumed by the turn driver.
// Implementations are external collaborators; the engine only reads the
// label, confidence and slot values it returns.
type Recognizer interface {
	Recognize(ctx context.Context, text string) (*domain.Recognition, error)
}

// RecognizerFunc adapts a function to the Recognizer interface.
type RecognizerFunc func(ctx context.Context, text string) (*domain.Recognition, error)

func (f RecognizerFunc) Recognize(ctx context.Context, text string) (*domain.Recognition, error) {
	return f(ctx, text)
}
