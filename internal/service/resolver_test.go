package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbhub/internal/domain"
	"kbhub/internal/policy"
)

func TestResolve_NoRestrictedBindingsAlwaysShareable(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.mustUser(t, "alice@example.com", domain.RoleUser)
	bob := f.mustUser(t, "bob@example.com", domain.RoleUser)
	kb := f.mustKB(t, "handbook", true)
	f.mustBinding(t, kb.ID, "gdrive", "folder-pub", false)

	res, err := f.resolver.Resolve(context.Background(), kb.ID, []int64{alice.ID, bob.ID}, nil)
	require.NoError(t, err)

	assert.True(t, res.CanShare)
	assert.False(t, res.SourceRestricted)
	assert.Len(t, res.CanShareToUsers, 2)
	assert.Empty(t, res.CannotShareToUsers)
	assert.Empty(t, res.Recommendations)
}

func TestResolve_PartitionsUsersBySourceAccess(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.mustUser(t, "alice@example.com", domain.RoleUser)
	bob := f.mustUser(t, "bob@example.com", domain.RoleUser)
	kb := f.mustKB(t, "finance", false)
	b := f.mustBinding(t, kb.ID, "sharepoint", "site-finance", true)

	f.source.Grant("site-finance", alice.Email)

	res, err := f.resolver.Resolve(context.Background(), kb.ID, []int64{alice.ID, bob.ID}, nil)
	require.NoError(t, err)

	assert.False(t, res.CanShare)
	assert.True(t, res.SourceRestricted)
	require.Len(t, res.CanShareToUsers, 1)
	assert.Equal(t, alice.ID, res.CanShareToUsers[0].ID)
	require.Len(t, res.CannotShareToUsers, 1)
	assert.Equal(t, bob.ID, res.CannotShareToUsers[0].ID)

	missing := res.BlockingResources[bob.ID]
	require.Len(t, missing, 1)
	assert.Equal(t, b.ID, missing[0].BindingID)
	assert.Equal(t, "sharepoint", missing[0].SourceType)

	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, bob.ID, res.Recommendations[0].UserID)
	assert.Equal(t, "sharepoint", res.Recommendations[0].SourceType)
}

func TestResolve_AndAcrossBindings(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.mustUser(t, "alice@example.com", domain.RoleUser)
	kb := f.mustKB(t, "mixed", false)
	f.mustBinding(t, kb.ID, "gdrive", "folder-a", true)
	f.mustBinding(t, kb.ID, "sharepoint", "site-b", true)

	// Access to one of two restricted bindings is not enough.
	f.source.Grant("folder-a", alice.Email)

	res, err := f.resolver.Resolve(context.Background(), kb.ID, []int64{alice.ID}, nil)
	require.NoError(t, err)

	assert.False(t, res.CanShare)
	require.Len(t, res.CannotShareToUsers, 1)
	missing := res.BlockingResources[alice.ID]
	require.Len(t, missing, 1)
	assert.Equal(t, "site-b", missing[0].Name)
}

func TestResolve_PessimisticGroupRule(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.mustUser(t, "alice@example.com", domain.RoleUser)
	bob := f.mustUser(t, "bob@example.com", domain.RoleUser)
	g := f.mustGroup(t, "analysts", alice, bob)
	kb := f.mustKB(t, "reports", false)
	f.mustBinding(t, kb.ID, "gdrive", "folder-reports", true)

	f.source.Grant("folder-reports", alice.Email)

	// Bob blocks the whole group.
	res, err := f.resolver.Resolve(context.Background(), kb.ID, nil, []int64{g.ID})
	require.NoError(t, err)
	assert.False(t, res.CanShare)
	require.Len(t, res.CannotShareToUsers, 1)
	assert.Equal(t, bob.ID, res.CannotShareToUsers[0].ID)

	// Once every member has access the group clears.
	f.source.Grant("folder-reports", bob.Email)
	res, err = f.resolver.Resolve(context.Background(), kb.ID, nil, []int64{g.ID})
	require.NoError(t, err)
	assert.True(t, res.CanShare)
	assert.Len(t, res.CanShareToUsers, 2)
}

func TestResolve_AdminBypassesSourceChecks(t *testing.T) {
	f := newFixture(t, nil)
	root := f.mustUser(t, "root@example.com", domain.RoleAdmin)
	kb := f.mustKB(t, "restricted", false)
	f.mustBinding(t, kb.ID, "gdrive", "folder-x", true)

	// No ACL entry for the admin anywhere.
	res, err := f.resolver.Resolve(context.Background(), kb.ID, []int64{root.ID}, nil)
	require.NoError(t, err)

	assert.True(t, res.CanShare)
	require.Len(t, res.CanShareToUsers, 1)
	assert.Equal(t, root.ID, res.CanShareToUsers[0].ID)
}

func TestResolve_SourceUnavailableFailsClosed(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.mustUser(t, "alice@example.com", domain.RoleUser)
	kb := f.mustKB(t, "flaky", false)
	f.mustBinding(t, kb.ID, "sharepoint", "site-down", true)

	f.source.Grant("site-down", alice.Email)
	f.source.SetUnavailable("site-down", true)

	res, err := f.resolver.Resolve(context.Background(), kb.ID, []int64{alice.ID}, nil)
	require.Error(t, err)
	assert.Nil(t, res)

	var unavailable *domain.SourceUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "sharepoint", unavailable.Source)
}

func TestResolve_EmptyPrincipalSet(t *testing.T) {
	f := newFixture(t, nil)
	kb := f.mustKB(t, "empty", true)

	_, err := f.resolver.Resolve(context.Background(), kb.ID, nil, nil)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestResolve_UnknownPrincipalsAndResources(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.mustUser(t, "alice@example.com", domain.RoleUser)
	kb := f.mustKB(t, "kb", true)

	var nf *domain.NotFoundError

	_, err := f.resolver.Resolve(context.Background(), 9999, []int64{alice.ID}, nil)
	require.ErrorAs(t, err, &nf)

	_, err = f.resolver.Resolve(context.Background(), kb.ID, []int64{alice.ID, 9999}, nil)
	require.ErrorAs(t, err, &nf)

	_, err = f.resolver.Resolve(context.Background(), kb.ID, nil, []int64{9999})
	require.ErrorAs(t, err, &nf)
}

func TestResolve_SharingFeatureDisabled(t *testing.T) {
	f := newFixture(t, map[policy.Feature]bool{policy.FeatureSharing: false})
	alice := f.mustUser(t, "alice@example.com", domain.RoleUser)
	kb := f.mustKB(t, "kb", true)

	_, err := f.resolver.Resolve(context.Background(), kb.ID, []int64{alice.ID}, nil)
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)
}

func TestRecommendations_OnePerSourceType(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.mustUser(t, "alice@example.com", domain.RoleUser)
	kb := f.mustKB(t, "kb", false)
	f.mustBinding(t, kb.ID, "gdrive", "folder-a", true)
	f.mustBinding(t, kb.ID, "gdrive", "folder-b", true)
	f.mustBinding(t, kb.ID, "sharepoint", "site-a", true)

	res, err := f.resolver.Resolve(context.Background(), kb.ID, []int64{alice.ID}, nil)
	require.NoError(t, err)

	assert.Len(t, res.BlockingResources[alice.ID], 3)
	assert.Len(t, res.Recommendations, 2)
}
