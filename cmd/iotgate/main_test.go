package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gatetls "github.com/dep2p/go-iotgate/internal/core/security/tls"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "iotgate")
}

func TestGenCertCommand(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "lamp.crt")
	keyFile := filepath.Join(dir, "lamp.key")

	out, err := execute(t, "gen-cert", "--id", "lamp", "--cert", certFile, "--key", keyFile)
	require.NoError(t, err)
	assert.Contains(t, out, "指纹")

	cert, err := gatetls.LoadCertificate(certFile, keyFile)
	require.NoError(t, err)
	require.NotEmpty(t, cert.Certificate)

	_, err = execute(t, "gen-cert", "--id", "lamp", "--cert", certFile, "--key", keyFile)
	assert.Error(t, err, "不覆盖已有证书")
}

func TestShareCertCommand_RequiresAddress(t *testing.T) {
	_, err := execute(t, "share-cert", "--id", "lamp", "--address", "", "--out", "")
	assert.Error(t, err)
}

func TestRunOptions(t *testing.T) {
	require.NoError(t, runCmd.Flags().Set("id", "edge"))
	require.NoError(t, runCmd.Flags().Set("no-tls", "true"))
	defer func() {
		_ = runCmd.Flags().Set("id", "gateway")
		_ = runCmd.Flags().Set("no-tls", "false")
	}()

	opts, err := runOptions(runCmd)
	require.NoError(t, err)
	// 基础配置 + id + no-tls
	assert.Len(t, opts, 3)
}
