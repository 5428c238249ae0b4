package domain

// BlockedSource describes one source binding a user is missing access to.
type BlockedSource struct {
	BindingID  int64
	SourceType string
	Name       string
	URL        string
	GrantURL   *string
}

// Recommendation is per-blocked-user guidance: one entry per distinct source
// type the user is missing, carrying a grant-access deep link when the source
// exposes one.
type Recommendation struct {
	UserID     int64
	Email      string
	SourceType string
	GrantURL   *string
}

// ShareValidationResult classifies a principal set against a knowledge base's
// source bindings.
type ShareValidationResult struct {
	CanShare           bool
	SourceRestricted   bool
	CanShareToUsers    []User
	CannotShareToUsers []User
	// BlockingResources maps a blocked user's ID to the bindings they lack
	// access to. Partial access is recorded per-source even though it counts
	// as no access for CanShare.
	BlockingResources map[int64][]BlockedSource
	Recommendations   []Recommendation
}

// GroupMembershipConflict describes one knowledge base a group is granted on
// that a membership candidate lacks source access for.
type GroupMembershipConflict struct {
	KnowledgeBaseID   int64
	KnowledgeBaseName string
	MissingSources    []BlockedSource
	// OthersMissing lists current members of the group that are already
	// missing access to the same knowledge base.
	OthersMissing []User
}

// FileAdditionConflict reports the effect of attaching new files to a
// knowledge base, before the addition is performed.
type FileAdditionConflict struct {
	// Public is true when the knowledge base carries no external access
	// restriction and the new files introduce none.
	Public bool
	// BecomesRestricted is true when the addition introduces the first
	// access-controlled binding.
	BecomesRestricted bool
	// BlockedUsers are already-granted users who lack access to a binding
	// the new files would introduce.
	BlockedUsers      []User
	BlockingResources map[int64][]BlockedSource
}
