package security

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-iotgate/config"
	gatetls "github.com/dep2p/go-iotgate/internal/core/security/tls"
	"github.com/dep2p/go-iotgate/pkg/types"
)

func testIdentity(t *testing.T, id string) *Identity {
	t.Helper()
	ident, err := NewIdentity(id, config.DefaultSecurityConfig())
	require.NoError(t, err)
	return ident
}

func trust(t *testing.T, in *Identity, proto string, other *Identity) {
	t.Helper()
	leaf, err := other.Leaf()
	require.NoError(t, err)
	require.NoError(t, in.Trust.Add(types.TrustLabel(proto, other.ID), leaf))
}

// handshake 在本地回环上执行一次双向 TLS 握手
func handshake(t *testing.T, server, client *Identity) (serverState, clientState tls.ConnectionState, err error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		state tls.ConnectionState
		err   error
	}
	serverCh := make(chan result, 1)

	go func() {
		raw, err := ln.Accept()
		if err != nil {
			serverCh <- result{err: err}
			return
		}
		defer raw.Close()
		c := tls.Server(raw, server.Server)
		err = c.HandshakeContext(ctx)
		if err == nil {
			// 读取一个字节，确认链路可用
			_, err = c.Read(make([]byte, 1))
		}
		serverCh <- result{c.ConnectionState(), err}
	}()

	raw, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer raw.Close()
	c := tls.Client(raw, client.Client)
	clientErr := c.HandshakeContext(ctx)
	if clientErr == nil {
		_, clientErr = c.Write([]byte{1})
	}

	s := <-serverCh
	if s.err != nil {
		return s.state, c.ConnectionState(), fmt.Errorf("server handshake: %w", s.err)
	}
	if clientErr != nil {
		return s.state, c.ConnectionState(), fmt.Errorf("client handshake: %w", clientErr)
	}
	return s.state, c.ConnectionState(), nil
}

func TestTLSHandshake_MutualTrust(t *testing.T) {
	gw := testIdentity(t, "gw")
	lamp := testIdentity(t, "lamp")
	trust(t, gw, "OBJ", lamp)
	trust(t, lamp, "GW", gw)

	serverState, clientState, err := handshake(t, gw, lamp)
	require.NoError(t, err)

	remote, err := gatetls.PeerCertificate(serverState)
	require.NoError(t, err)
	assert.Equal(t, "lamp", gatetls.IdentityOf(remote))

	remote, err = gatetls.PeerCertificate(clientState)
	require.NoError(t, err)
	assert.Equal(t, "gw", gatetls.IdentityOf(remote))
}

func TestTLSHandshake_UntrustedClient(t *testing.T) {
	gw := testIdentity(t, "gw")
	lamp := testIdentity(t, "lamp")
	trust(t, lamp, "GW", gw)

	_, _, err := handshake(t, gw, lamp)
	assert.Error(t, err)
}

func TestTLSHandshake_TrustAddedLater(t *testing.T) {
	gw := testIdentity(t, "gw")
	lamp := testIdentity(t, "lamp")
	trust(t, lamp, "GW", gw)

	_, _, err := handshake(t, gw, lamp)
	require.Error(t, err)

	// 配置引用同一信任库，追加后无需重建
	trust(t, gw, "OBJ", lamp)
	_, _, err = handshake(t, gw, lamp)
	assert.NoError(t, err)
}
