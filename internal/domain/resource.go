package domain

import "time"

// KnowledgeBase is a shareable collection of documents. It is
// source-restricted when at least one of its source bindings enforces its own
// access list outside the application's role model.
type KnowledgeBase struct {
	ID          int64
	Name        string
	Description string
	IsPublic    bool
	CreatedAt   time.Time
}

// SourceBinding references an externally access-controlled data source (e.g.
// a synced folder) that backs part of a knowledge base.
type SourceBinding struct {
	ID               int64
	KnowledgeBaseID  int64
	SourceType       string // e.g. "drive", "confluence", "upload"
	ExternalID       string // identifier at the source provider
	Name             string
	URL              string
	AccessControlled bool
	GrantURL         *string // deep link to the external grant-access flow
}

// File is a document that may be attached to a knowledge base. Files synced
// from an external source carry the binding they arrived through; native
// uploads have none and follow the application's own permission model.
type File struct {
	ID              int64
	Name            string
	SourceBindingID *int64
	CreatedAt       time.Time
}

// SourceRestricted reports whether any binding in the set enforces an
// external access list.
func SourceRestricted(bindings []SourceBinding) bool {
	for _, b := range bindings {
		if b.AccessControlled {
			return true
		}
	}
	return false
}

// RestrictedBindings filters the set down to access-controlled bindings.
func RestrictedBindings(bindings []SourceBinding) []SourceBinding {
	var out []SourceBinding
	for _, b := range bindings {
		if b.AccessControlled {
			out = append(out, b)
		}
	}
	return out
}
