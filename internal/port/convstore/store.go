// Package convstore defines the conversation store port. The store's
// lifecycle is an explicit policy: per-user state lives for the whole
// process, is created lazily, and is never evicted or persisted.
package convstore

import "github.com/harukisa/taskmate/internal/domain/conversation"

// Store provides serialized access to per-user conversation state.
type Store interface {
	// Update runs fn with the user's state under that user's lock, creating
	// the state on first use. Turns for the same user are therefore processed
	// one at a time; different users proceed concurrently.
	Update(userID string, fn func(st *conversation.State))
}
