package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-iotgate/config"
	"github.com/dep2p/go-iotgate/internal/core/peer"
)

func TestBehavioursFrom(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Framing.Delimiter = "\n"
	cfg.Heartbeat.Enabled = false
	cfg.Heartbeat.Interval = config.Duration(3 * time.Second)
	cfg.Bye.Message = "ciao"
	cfg.Reconnect.Delay = config.Duration(2 * time.Second)
	cfg.Transport.WriteTimeout = config.Duration(4 * time.Second)

	b := BehavioursFrom(cfg)
	assert.Equal(t, "\n", b.Framing.Delimiter)
	assert.Equal(t, cfg.Framing.Charset, b.Framing.Charset)
	assert.False(t, b.Heartbeat.Enabled)
	assert.True(t, b.Heartbeat.Respond)
	assert.Equal(t, 3*time.Second, b.Heartbeat.Interval)
	assert.Equal(t, "ciao", b.Bye.Message)
	assert.True(t, b.Reconnect.Enabled)
	assert.Equal(t, 2*time.Second, b.Reconnect.Delay)
	assert.Equal(t, 4*time.Second, b.WriteTimeout)
}

func TestProvider_Defaults(t *testing.T) {
	p := NewProvider(nil)
	assert.Equal(t, config.DefaultGatewayID, p.LocalID())
	assert.Equal(t, config.DefaultTransportConfig(), p.GetTransport())
	assert.True(t, p.GetSecurity().EnableTLS)
	assert.Equal(t, 1024, p.GetBroker().PermissionCacheSize)
	assert.True(t, p.GetMetrics().Enabled)

	f := p.LogFile()
	assert.Empty(t, f.Path)
	assert.Equal(t, 100, f.MaxSizeMB)
}

func TestValidate_PortConflicts(t *testing.T) {
	cfg := config.NewConfig()
	require.NoError(t, Validate(cfg))

	// 服务端口占用了对象端口的证书共享端口
	cfg.Transport.ServiceListen = "0.0.0.0:7001"
	err := Validate(cfg)
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "transport.service_listen", verrs[0].Field)

	cfg.Security.CertSharing.Enabled = false
	assert.NoError(t, Validate(cfg))

	cfg.Transport.ServiceListen = cfg.Transport.ObjectListen
	assert.Error(t, Validate(cfg))

	// 端口 0 由系统分配，不参与冲突检查
	cfg = config.NewConfig()
	cfg.Transport.ObjectListen = "127.0.0.1:0"
	cfg.Transport.ServiceListen = "127.0.0.1:0"
	assert.NoError(t, Validate(cfg))
}

func TestValidate_TrustedLabels(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Security.TrustedCerts = map[string]string{"lamp": "/tmp/lamp.crt"}
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "security.trusted_certs")

	cfg.Security.TrustedCerts = map[string]string{"OBJ@lamp": "/tmp/lamp.crt"}
	assert.NoError(t, Validate(cfg))
}

func TestModule(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Bye.Message = "farewell"

	var (
		provider *Provider
		b        peer.Behaviours
	)
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module,
		fx.Populate(&provider, &b),
	)
	app.RequireStart()
	defer app.RequireStop()

	assert.Same(t, cfg, provider.GetConfig())
	assert.Equal(t, "farewell", b.Bye.Message)
}
