package security

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-iotgate/config"
	gatetls "github.com/dep2p/go-iotgate/internal/core/security/tls"
)

func TestNewIdentity_Plaintext(t *testing.T) {
	cfg := config.DefaultSecurityConfig()
	cfg.EnableTLS = false

	ident, err := NewIdentity("gw", cfg)
	require.NoError(t, err)
	assert.False(t, ident.Enabled())
	assert.Nil(t, ident.Server)
	assert.Nil(t, ident.Client)
	assert.NotNil(t, ident.Trust)
	assert.Empty(t, ident.Fingerprint())

	_, err = ident.Leaf()
	assert.ErrorIs(t, err, ErrTLSDisabled)
}

func TestNewIdentity_EmptyID(t *testing.T) {
	_, err := NewIdentity("", config.DefaultSecurityConfig())
	assert.ErrorIs(t, err, ErrEmptyIdentity)
}

func TestNewIdentity_PersistsCertificate(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultSecurityConfig()
	cfg.CertFile = filepath.Join(dir, "gw.crt")
	cfg.KeyFile = filepath.Join(dir, "gw.key")

	first, err := NewIdentity("gw", cfg)
	require.NoError(t, err)
	require.True(t, first.Enabled())
	assert.NotNil(t, first.Server)
	assert.NotNil(t, first.Client)

	leaf, err := first.Leaf()
	require.NoError(t, err)
	assert.Equal(t, "gw", gatetls.IdentityOf(leaf))

	// 再次构建时加载同一证书
	second, err := NewIdentity("gw", cfg)
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
}

func TestNewIdentity_TrustedCerts(t *testing.T) {
	dir := t.TempDir()
	peerCert, err := gatetls.GenerateCertificate("lamp")
	require.NoError(t, err)
	certFile := filepath.Join(dir, "lamp.crt")
	require.NoError(t, gatetls.SaveCertificate(peerCert, certFile, filepath.Join(dir, "lamp.key")))

	cfg := config.DefaultSecurityConfig()
	cfg.TrustedCerts = map[string]string{"OBJ@lamp": certFile}

	ident, err := NewIdentity("gw", cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"OBJ@lamp"}, ident.Trust.Labels())

	cfg.TrustedCerts = map[string]string{"OBJ@ghost": filepath.Join(dir, "missing.crt")}
	_, err = NewIdentity("gw", cfg)
	assert.Error(t, err)
}

func TestModule(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Identity.ID = "gw-test"

	var ident *Identity
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module,
		fx.Populate(&ident),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, ident)
	assert.Equal(t, "gw-test", ident.ID)
	assert.True(t, ident.Enabled())
}
