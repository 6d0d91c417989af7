package ports

import "context"

// StateStore defines async key-value persistence with optimistic-concurrency
// writes. Keys are namespaced by record kind (see ConversationKey/UserKey).
//
// Etag semantics: Get returns the etag of the stored value. Put with the
// empty etag asserts the key does not exist yet; Put with a non-empty etag
// asserts the stored etag still matches. Either assertion failing returns
// domain.ErrConflict and persists nothing (all-or-nothing).
type StateStore interface {
	// Get retrieves the value and etag for a key.
	// Returns domain.ErrRecordNotFound if the key does not exist.
	Get(ctx context.Context, key string) (value []byte, etag string, err error)

	// Put conditionally writes the value and returns the new etag.
	Put(ctx context.Context, key string, value []byte, etag string) (newEtag string, err error)

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ConversationKey namespaces a conversation record key.
func ConversationKey(conversationID string) string {
	return "conversation:" + conversationID
}

// UserKey namespaces a user record key.
func UserKey(userID string) string {
	return "user:" + userID
}
