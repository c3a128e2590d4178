package certsharing

import (
	"bytes"
	"context"
	"crypto/x509"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-iotgate/internal/core/liveness"
	"github.com/dep2p/go-iotgate/internal/core/peer"
	"github.com/dep2p/go-iotgate/internal/core/recovery"
	gatetls "github.com/dep2p/go-iotgate/internal/core/security/tls"
	"github.com/dep2p/go-iotgate/internal/core/security/truststore"
	"github.com/dep2p/go-iotgate/pkg/types"
)

func TestSharingAddress(t *testing.T) {
	addr, err := SharingAddress("127.0.0.1:7000", DefaultPortOffset)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7001", addr)

	addr, err = SharingAddress("[::1]:80", 10)
	require.NoError(t, err)
	assert.Equal(t, "[::1]:90", addr)

	_, err = SharingAddress("127.0.0.1:65535", 1)
	assert.ErrorIs(t, err, ErrInvalidPort)

	_, err = SharingAddress("no-port", 1)
	assert.Error(t, err)
}

func TestAccumulator_DelimiterCollision(t *testing.T) {
	cert, err := gatetls.GenerateCertificate("obj-1")
	require.NoError(t, err)
	der := cert.Certificate[0]

	// 取 DER 中间的一段作为分隔符，模拟载荷与分隔符碰撞
	delim := der[len(der)/2 : len(der)/2+2]
	parts := bytes.Split(der, delim)
	require.Greater(t, len(parts), 1)

	acc := newAccumulator(delim)
	var got *x509.Certificate
	for i, part := range parts {
		c, err := acc.add(string(part))
		require.NoError(t, err)
		if i < len(parts)-1 {
			assert.Nil(t, c)
		} else {
			got = c
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, "obj-1", got.Subject.CommonName)
}

func TestAccumulator_TooLarge(t *testing.T) {
	acc := newAccumulator([]byte("<<EOM>>"))
	_, err := acc.add(string(make([]byte, maxPayload+1)))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestConfigValidation(t *testing.T) {
	_, err := NewClient(ClientConfig{Store: truststore.New()})
	assert.ErrorIs(t, err, ErrNoCertificate)

	cert, err := gatetls.GenerateCertificate("x")
	require.NoError(t, err)
	_, err = NewServer(ServerConfig{Cert: cert})
	assert.ErrorIs(t, err, ErrNoTrustStore)
}

func quiet() peer.Behaviours {
	b := peer.DefaultBehaviours()
	b.Heartbeat = liveness.HeartbeatSettings{Enabled: false, Respond: true}
	b.Reconnect = recovery.ReconnectSettings{Enabled: false}
	return b
}

func TestShare_ThenMutualTLS(t *testing.T) {
	gwCert, err := gatetls.GenerateCertificate("gw")
	require.NoError(t, err)
	objCert, err := gatetls.GenerateCertificate("obj-1")
	require.NoError(t, err)

	gwStore := truststore.New()
	objStore := truststore.New()

	trusted := make(chan string, 1)
	srv, err := NewServer(ServerConfig{
		LocalID: "gw",
		Proto:   "obj",
		Address: "127.0.0.1:0",
		Cert:    gwCert,
		Store:   gwStore,
		OnTrusted: func(label string, _ *x509.Certificate) {
			trusted <- label
		},
	})
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	defer srv.Stop()

	cli, err := NewClient(ClientConfig{
		LocalID: "obj-1",
		Proto:   "obj",
		Address: srv.Addr().String(),
		Cert:    objCert,
		Store:   objStore,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	remote, err := cli.Share(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gw", remote.Subject.CommonName)

	select {
	case label := <-trusted:
		assert.Equal(t, types.TrustLabel("obj", "obj-1"), label)
	case <-time.After(3 * time.Second):
		t.Fatal("服务端未信任客户端证书")
	}
	_, ok := objStore.Get(types.TrustLabel("obj", "gw"))
	assert.True(t, ok)
	_, ok = gwStore.Get(types.TrustLabel("obj", "obj-1"))
	assert.True(t, ok)

	// 握手之后，数据链路使用双向认证配置
	serverTLS, err := gatetls.NewConfigBuilder(gwCert, gwStore).BuildServerConfig()
	require.NoError(t, err)
	ln, err := peer.Listen(context.Background(), peer.ListenerConfig{
		LocalID:    "gw",
		Proto:      "obj",
		Address:    "127.0.0.1:0",
		TLS:        serverTLS,
		Behaviours: quiet(),
	}, nil)
	require.NoError(t, err)
	defer ln.Close()

	clientTLS, err := gatetls.NewConfigBuilder(objCert, objStore).BuildClientConfig()
	require.NoError(t, err)
	p := peer.NewClient(peer.Config{
		LocalID:    "obj-1",
		RemoteID:   "gw",
		Proto:      "obj",
		Address:    ln.Addr().String(),
		TLS:        clientTLS,
		Behaviours: quiet(),
	}, nil)
	st, err := p.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.StateConnected, st)
	defer p.Disconnect()

	require.Eventually(t, func() bool { return ln.Len() == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, "obj-1", ln.Peers()[0].RemoteID())
	require.NotNil(t, p.PeerCertificate())
	assert.Equal(t, "gw", p.PeerCertificate().Subject.CommonName)
}

func TestDataLinkRejectedWithoutSharing(t *testing.T) {
	gwCert, err := gatetls.GenerateCertificate("gw")
	require.NoError(t, err)
	objCert, err := gatetls.GenerateCertificate("obj-1")
	require.NoError(t, err)

	serverTLS, err := gatetls.NewConfigBuilder(gwCert, truststore.New()).BuildServerConfig()
	require.NoError(t, err)
	ln, err := peer.Listen(context.Background(), peer.ListenerConfig{
		Address:    "127.0.0.1:0",
		TLS:        serverTLS,
		Behaviours: quiet(),
	}, nil)
	require.NoError(t, err)
	defer ln.Close()

	clientTLS, err := gatetls.NewConfigBuilder(objCert, truststore.New()).BuildClientConfig()
	require.NoError(t, err)
	p := peer.NewClient(peer.Config{
		Address:    ln.Addr().String(),
		TLS:        clientTLS,
		Behaviours: quiet(),
	}, nil)

	st, err := p.Connect(context.Background())
	require.ErrorIs(t, err, peer.ErrConnectFailed)
	assert.Equal(t, types.StateDisconnected, st)
}
