package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sengketa/internal/domain"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default("admin-1")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"admin-1"}, cfg.Roles.Admin)
	assert.Equal(t, "fs", cfg.Documents.Driver)
	assert.Equal(t, []string{"application/pdf"}, cfg.Documents.AllowedTypes)
	assert.Equal(t, "/v0", cfg.Server.BasePath)
}

func TestRejectsIdentityInTwoRoles(t *testing.T) {
	_, err := FromYAML([]byte(`
roles:
  admin: [alice]
  adjudicator: [alice]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alice")
}

func TestS3DriverRequiresBucket(t *testing.T) {
	_, err := FromYAML([]byte(`
documents:
  driver: s3
`))
	require.Error(t, err)

	cfg, err := FromYAML([]byte(`
documents:
  driver: s3
  s3:
    bucket: docs
    endpoint: http://localhost:9000
    path_style: true
`))
	require.NoError(t, err)
	assert.True(t, cfg.Documents.S3.PathStyle)
}

func TestS3CredentialsComeInPairs(t *testing.T) {
	_, err := FromYAML([]byte(`
documents:
  driver: s3
  s3:
    bucket: docs
    access_key_id: minio
`))
	require.Error(t, err)
}

func TestUnknownDriverRejected(t *testing.T) {
	_, err := FromYAML([]byte("documents:\n  driver: ipfs\n"))
	require.Error(t, err)
}

func TestWebhookURLRequired(t *testing.T) {
	_, err := FromYAML([]byte("webhooks:\n  - events: [case.received]\n"))
	require.Error(t, err)
}

func TestAssignmentsOrder(t *testing.T) {
	roles := RolesConfig{Admin: []string{"a"}, Convener: []string{"p"}, Adjudicator: []string{"m"}}
	got := roles.Assignments()
	require.Len(t, got, 3)
	assert.Equal(t, domain.RoleAdmin, got[0].Role)
	assert.Equal(t, domain.RoleConvener, got[1].Role)
	assert.Equal(t, domain.RoleAdjudicator, got[2].Role)
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "sengketa.yml"), []byte(GenerateDefault("root")), 0o644))
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"root"}, cfg.Roles.Admin)
}

func TestGenerateDefaultQuotesAdmin(t *testing.T) {
	for _, admin := range []string{"ops, root", "root]", "dept: hukum", `say "hi"`} {
		cfg, err := FromYAML([]byte(GenerateDefault(admin)))
		require.NoError(t, err, admin)
		assert.Equal(t, []string{admin}, cfg.Roles.Admin)
	}
}
