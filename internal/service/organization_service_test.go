package service

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavelens/gradient/internal/dto"
	"github.com/wavelens/gradient/internal/repository"
	"github.com/wavelens/gradient/pkg/responses"
)

func newOrgService(t *testing.T) *OrganizationService {
	return NewOrganizationService(repository.NewOrganizationRepository(newTestDB(t)))
}

func createOrg(t *testing.T, svc *OrganizationService, name string) {
	t.Helper()
	_, err := svc.Create(uuid.NewString(), &dto.CreateOrganizationRequest{Name: name})
	require.NoError(t, err)
}

func TestOrganizationCreateAndGet(t *testing.T) {
	svc := newOrgService(t)
	userID := uuid.NewString()

	org, err := svc.Create(userID, &dto.CreateOrganizationRequest{
		Name:        "acme",
		DisplayName: "Acme Corp",
	})
	require.NoError(t, err)
	assert.Equal(t, userID, org.CreatedBy)

	got, err := svc.Get("acme")
	require.NoError(t, err)
	assert.Equal(t, org.ID, got.ID)

	_, err = svc.Create(userID, &dto.CreateOrganizationRequest{Name: "acme"})
	assert.True(t, responses.IsConflict(err))

	_, err = svc.Create(userID, &dto.CreateOrganizationRequest{Name: "Bad Name"})
	assert.Error(t, err)
}

func TestOrganizationSSHKeyIsIdempotent(t *testing.T) {
	svc := newOrgService(t)
	createOrg(t, svc, "acme")

	first, err := svc.GetOrCreateSSHKey("acme")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.PublicKey, "ssh-ed25519 "))

	// A second fetch returns the same key, not a fresh one.
	second, err := svc.GetOrCreateSSHKey("acme")
	require.NoError(t, err)
	assert.Equal(t, first.PublicKey, second.PublicKey)
}

func TestOrganizationSSHKeyRotation(t *testing.T) {
	svc := newOrgService(t)
	createOrg(t, svc, "acme")

	first, err := svc.GetOrCreateSSHKey("acme")
	require.NoError(t, err)

	rotated, err := svc.RotateSSHKey("acme")
	require.NoError(t, err)
	assert.NotEqual(t, first.PublicKey, rotated.PublicKey)

	got, err := svc.GetOrCreateSSHKey("acme")
	require.NoError(t, err)
	assert.Equal(t, rotated.PublicKey, got.PublicKey)
}

func TestOrganizationSSHKeyRemoval(t *testing.T) {
	svc := newOrgService(t)
	createOrg(t, svc, "acme")

	// Removing before a key exists is a not-found.
	err := svc.RemoveSSHKey("acme")
	assert.ErrorIs(t, err, responses.ErrRecordNotFound)

	first, err := svc.GetOrCreateSSHKey("acme")
	require.NoError(t, err)
	require.NoError(t, svc.RemoveSSHKey("acme"))

	// The next fetch generates a brand new keypair.
	fresh, err := svc.GetOrCreateSSHKey("acme")
	require.NoError(t, err)
	assert.NotEqual(t, first.PublicKey, fresh.PublicKey)
}
