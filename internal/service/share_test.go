package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbhub/internal/domain"
)

func TestValidateFileAddition_UnrestrictedStaysPublic(t *testing.T) {
	f := newFixture(t, nil)
	kb := f.mustKB(t, "handbook", true)
	b := f.mustBinding(t, kb.ID, "gdrive", "folder-pub", false)

	file, err := f.kbs.CreateFile(context.Background(), &domain.File{
		Name: "notes.md", SourceBindingID: &b.ID,
	})
	require.NoError(t, err)

	conflict, err := f.shares.ValidateFileAddition(context.Background(), kb.ID, []int64{file.ID})
	require.NoError(t, err)

	assert.True(t, conflict.Public)
	assert.False(t, conflict.BecomesRestricted)
	assert.Empty(t, conflict.BlockedUsers)
}

func TestValidateFileAddition_RestrictedFileBlocksGrantedUsers(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.mustUser(t, "alice@example.com", domain.RoleUser)
	bob := f.mustUser(t, "bob@example.com", domain.RoleUser)
	kb := f.mustKB(t, "handbook", true)
	require.NoError(t, f.kbs.GrantUser(context.Background(), kb.ID, alice.ID))
	require.NoError(t, f.kbs.GrantUser(context.Background(), kb.ID, bob.ID))

	other := f.mustKB(t, "finance", false)
	restricted := f.mustBinding(t, other.ID, "sharepoint", "site-finance", true)
	f.source.Grant("site-finance", alice.Email)

	file, err := f.kbs.CreateFile(context.Background(), &domain.File{
		Name: "q3.xlsx", SourceBindingID: &restricted.ID,
	})
	require.NoError(t, err)

	conflict, err := f.shares.ValidateFileAddition(context.Background(), kb.ID, []int64{file.ID})
	require.NoError(t, err)

	assert.False(t, conflict.Public)
	assert.True(t, conflict.BecomesRestricted)
	require.Len(t, conflict.BlockedUsers, 1)
	assert.Equal(t, bob.ID, conflict.BlockedUsers[0].ID)
	require.Len(t, conflict.BlockingResources[bob.ID], 1)
	assert.Equal(t, restricted.ID, conflict.BlockingResources[bob.ID][0].BindingID)
}

func TestValidateFileAddition_IncludesGroupGrantedMembers(t *testing.T) {
	f := newFixture(t, nil)
	carol := f.mustUser(t, "carol@example.com", domain.RoleUser)
	g := f.mustGroup(t, "team", carol)
	kb := f.mustKB(t, "handbook", false)
	require.NoError(t, f.kbs.GrantGroup(context.Background(), kb.ID, g.ID))

	other := f.mustKB(t, "src", false)
	restricted := f.mustBinding(t, other.ID, "gdrive", "folder-r", true)

	file, err := f.kbs.CreateFile(context.Background(), &domain.File{
		Name: "doc.md", SourceBindingID: &restricted.ID,
	})
	require.NoError(t, err)

	conflict, err := f.shares.ValidateFileAddition(context.Background(), kb.ID, []int64{file.ID})
	require.NoError(t, err)

	require.Len(t, conflict.BlockedUsers, 1)
	assert.Equal(t, carol.ID, conflict.BlockedUsers[0].ID)
}

func TestValidateFileAddition_MissingFile(t *testing.T) {
	f := newFixture(t, nil)
	kb := f.mustKB(t, "kb", true)

	_, err := f.shares.ValidateFileAddition(context.Background(), kb.ID, []int64{4242})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestValidateFileAddition_EmptyFileSet(t *testing.T) {
	f := newFixture(t, nil)
	kb := f.mustKB(t, "kb", true)

	_, err := f.shares.ValidateFileAddition(context.Background(), kb.ID, nil)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestDetectMembershipConflicts(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.mustUser(t, "alice@example.com", domain.RoleUser)
	bob := f.mustUser(t, "bob@example.com", domain.RoleUser)
	dave := f.mustUser(t, "dave@example.com", domain.RoleUser)
	g := f.mustGroup(t, "analysts", alice, bob)

	kb := f.mustKB(t, "finance", false)
	f.mustBinding(t, kb.ID, "sharepoint", "site-finance", true)
	require.NoError(t, f.kbs.GrantGroup(context.Background(), kb.ID, g.ID))

	f.source.Grant("site-finance", alice.Email)
	// bob (existing member) and dave (candidate) both lack access.

	conflicts, err := f.shares.DetectMembershipConflicts(context.Background(), g.ID, dave.ID)
	require.NoError(t, err)

	require.Len(t, conflicts, 1)
	assert.Equal(t, kb.ID, conflicts[0].KnowledgeBaseID)
	assert.Equal(t, "finance", conflicts[0].KnowledgeBaseName)
	require.Len(t, conflicts[0].MissingSources, 1)
	require.Len(t, conflicts[0].OthersMissing, 1)
	assert.Equal(t, bob.ID, conflicts[0].OthersMissing[0].ID)
}

func TestDetectMembershipConflicts_CandidateHasAccess(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.mustUser(t, "alice@example.com", domain.RoleUser)
	dave := f.mustUser(t, "dave@example.com", domain.RoleUser)
	g := f.mustGroup(t, "analysts", alice)

	kb := f.mustKB(t, "finance", false)
	f.mustBinding(t, kb.ID, "sharepoint", "site-finance", true)
	require.NoError(t, f.kbs.GrantGroup(context.Background(), kb.ID, g.ID))

	f.source.Grant("site-finance", alice.Email)
	f.source.Grant("site-finance", dave.Email)

	conflicts, err := f.shares.DetectMembershipConflicts(context.Background(), g.ID, dave.ID)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestDetectMembershipConflicts_SkipsUnrestrictedKBs(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.mustUser(t, "alice@example.com", domain.RoleUser)
	dave := f.mustUser(t, "dave@example.com", domain.RoleUser)
	g := f.mustGroup(t, "team", alice)

	kb := f.mustKB(t, "open", true)
	f.mustBinding(t, kb.ID, "gdrive", "folder-open", false)
	require.NoError(t, f.kbs.GrantGroup(context.Background(), kb.ID, g.ID))

	conflicts, err := f.shares.DetectMembershipConflicts(context.Background(), g.ID, dave.ID)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestUsersReadyForAccess(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.mustUser(t, "alice@example.com", domain.RoleUser)
	bob := f.mustUser(t, "bob@example.com", domain.RoleUser)
	kb := f.mustKB(t, "finance", false)
	f.mustBinding(t, kb.ID, "sharepoint", "site-finance", true)

	f.source.Grant("site-finance", alice.Email)

	res, err := f.shares.UsersReadyForAccess(context.Background(), kb.ID)
	require.NoError(t, err)

	require.Len(t, res.CanShareToUsers, 1)
	assert.Equal(t, alice.ID, res.CanShareToUsers[0].ID)
	require.Len(t, res.CannotShareToUsers, 1)
	assert.Equal(t, bob.ID, res.CannotShareToUsers[0].ID)
}
