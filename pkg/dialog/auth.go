package dialog

import (
	"context"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/parleyio/parley/pkg/domain"
	"github.com/parleyio/parley/pkg/ports"
)

// Auth models token acquisition as a dialog: it either completes
// synchronously with a token, or suspends until the credential arrives as an
// externally-delivered tokens/response event. Authentication failure
// completes with a nil value; callers treat that like any other
// could-not-collect slot.
type Auth struct {
	id       string
	provider ports.CredentialProvider
	prompt   string
}

// NewAuth builds an auth dialog around a credential provider. The prompt
// text is shown when the user must complete sign-in out of band.
func NewAuth(id string, provider ports.CredentialProvider, prompt string) *Auth {
	return &Auth{id: id, provider: provider, prompt: prompt}
}

// ID implements Dialog.
func (a *Auth) ID() string { return a.id }

// Begin implements Dialog.
func (a *Auth) Begin(ctx context.Context, dc *Context, options map[string]any) (domain.TurnResult, error) {
	token, err := a.provider.AcquireToken(ctx, dc.ConversationID())
	switch {
	case err == nil:
		return dc.End(ctx, token)

	case errors.Is(err, domain.ErrAuthPending):
		dc.Send(domain.Activity{
			Type: domain.ActivityMessage,
			Text: a.prompt,
			Attachments: []domain.Attachment{
				{ContentType: "application/vnd.parley.signin", Content: a.id},
			},
		})
		return domain.Waiting(), nil

	case errors.Is(err, domain.ErrAuthFailed):
		dc.Logger().Warn("authentication failed", "dialog", a.id, "conversation", dc.ConversationID())
		return dc.End(ctx, nil)

	default:
		return domain.TurnResult{Status: domain.StatusEmpty},
			fmt.Errorf("auth %s: acquire token: %w", a.id, err)
	}
}

// Continue implements Dialog: waits for the tokens/response event.
func (a *Auth) Continue(ctx context.Context, dc *Context) (domain.TurnResult, error) {
	activity := dc.Scratch().Activity
	if activity.Type == domain.ActivityEvent && activity.Name == domain.EventTokenResponse {
		var token domain.Token
		if err := mapstructure.Decode(activity.Value, &token); err != nil {
			return domain.TurnResult{Status: domain.StatusEmpty},
				fmt.Errorf("auth %s: decode token event: %w", a.id, err)
		}
		return dc.End(ctx, &token)
	}

	// Anything else while waiting for the credential just re-asks.
	dc.SendText(a.prompt)
	return domain.Waiting(), nil
}

// Resume implements Dialog.
func (a *Auth) Resume(ctx context.Context, dc *Context, result domain.TurnResult) (domain.TurnResult, error) {
	dc.SendText(a.prompt)
	return domain.Waiting(), nil
}

// Reprompt implements Dialog.
func (a *Auth) Reprompt(ctx context.Context, dc *Context) error {
	dc.SendText(a.prompt)
	return nil
}
