package ports

import (
	"context"

	"github.com/parleyio/parley/pkg/domain"
)

// CredentialProvider is the opaque token acquisition collaborator.
//
// AcquireToken either returns a token immediately, domain.ErrAuthPending
// when the credential will arrive as an external event on a later turn, or
// domain.ErrAuthFailed when the user cannot be authenticated.
type CredentialProvider interface {
	AcquireToken(ctx context.Context, conversationID string) (*domain.Token, error)

	// SignOut revokes the user's credentials with every connected provider.
	// Used by the Handoff interruption before the stack is cleared.
	SignOut(ctx context.Context, conversationID string) error
}
