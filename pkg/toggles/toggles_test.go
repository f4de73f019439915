package toggles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/ssogate/pkg/sso"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toggles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
idp_session_expiry:
  default: false
  enabled_groups: [7, 42]
`), 0644))

	src, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, sso.ExpiryModeIdPDeclared, src.ExpiryMode(7))
	assert.Equal(t, sso.ExpiryModeIdPDeclared, src.ExpiryMode(42))
	assert.Equal(t, sso.ExpiryModeRolling, src.ExpiryMode(9))
}

func TestLoad_DefaultOn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toggles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
idp_session_expiry:
  default: true
`), 0644))

	src, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, sso.ExpiryModeIdPDeclared, src.ExpiryMode(1234))
}

func TestLoad_MissingFile(t *testing.T) {
	src, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, sso.ExpiryModeRolling, src.ExpiryMode(7))
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toggles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`{not yaml`), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestStatic(t *testing.T) {
	src := Static(false, 7)
	assert.Equal(t, sso.ExpiryModeIdPDeclared, src.ExpiryMode(7))
	assert.Equal(t, sso.ExpiryModeRolling, src.ExpiryMode(8))
}

func TestReloadPicksUpChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toggles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
idp_session_expiry:
  enabled_groups: [7]
`), 0644))

	src, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sso.ExpiryModeIdPDeclared, src.ExpiryMode(7))

	require.NoError(t, os.WriteFile(path, []byte(`
idp_session_expiry:
  enabled_groups: [9]
`), 0644))
	require.NoError(t, src.reload())

	assert.Equal(t, sso.ExpiryModeRolling, src.ExpiryMode(7))
	assert.Equal(t, sso.ExpiryModeIdPDeclared, src.ExpiryMode(9))
}
