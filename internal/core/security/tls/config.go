package tls

import (
	"crypto/tls"
	"crypto/x509"

	"github.com/dep2p/go-iotgate/internal/core/security/truststore"
)

// ConfigBuilder TLS 配置构建器
type ConfigBuilder struct {
	cert       *tls.Certificate
	store      *truststore.Store
	minVersion uint16
}

// NewConfigBuilder 创建配置构建器
func NewConfigBuilder(cert *tls.Certificate, store *truststore.Store) *ConfigBuilder {
	return &ConfigBuilder{
		cert:       cert,
		store:      store,
		minVersion: tls.VersionTLS13,
	}
}

// WithMinVersion 设置最低 TLS 版本
func (b *ConfigBuilder) WithMinVersion(version uint16) *ConfigBuilder {
	b.minVersion = version
	return b
}

// ============================================================================
//                              双向认证配置
// ============================================================================

// BuildClientConfig 构建数据链路的客户端配置
//
// 服务端叶子证书必须存在于信任库中。
func (b *ConfigBuilder) BuildClientConfig() (*tls.Config, error) {
	if err := b.check(true); err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{*b.cert},
		MinVersion:   b.minVersion,
		// 自签名证书，改由信任库验证
		InsecureSkipVerify:    true, //nolint:gosec // 使用 VerifyPeerCertificate 进行自定义验证
		VerifyPeerCertificate: b.store.VerifyPeerCertificate,
	}, nil
}

// BuildServerConfig 构建数据链路的服务端配置
//
// 要求客户端出示证书，且叶子证书必须存在于信任库中。
func (b *ConfigBuilder) BuildServerConfig() (*tls.Config, error) {
	if err := b.check(true); err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates:          []tls.Certificate{*b.cert},
		MinVersion:            b.minVersion,
		ClientAuth:            tls.RequireAnyClientCert,
		VerifyPeerCertificate: b.store.VerifyPeerCertificate,
	}, nil
}

// ============================================================================
//                              首次信任配置
// ============================================================================

// BuildFirstUseClientConfig 构建证书共享握手的客户端配置
//
// 接受任意服务端证书；仅用于交换证书，不得承载业务数据。
func (b *ConfigBuilder) BuildFirstUseClientConfig() (*tls.Config, error) {
	if err := b.check(false); err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates:          []tls.Certificate{*b.cert},
		MinVersion:            b.minVersion,
		InsecureSkipVerify:    true, //nolint:gosec // 首次信任
		VerifyPeerCertificate: acceptAny,
	}, nil
}

// BuildFirstUseServerConfig 构建证书共享握手的服务端配置
//
// 要求客户端出示证书以获得其身份标识，但不校验信任。
func (b *ConfigBuilder) BuildFirstUseServerConfig() (*tls.Config, error) {
	if err := b.check(false); err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates:          []tls.Certificate{*b.cert},
		MinVersion:            b.minVersion,
		ClientAuth:            tls.RequireAnyClientCert,
		VerifyPeerCertificate: acceptAny,
	}, nil
}

func acceptAny(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		return ErrNoPeerCertificate
	}
	return nil
}

func (b *ConfigBuilder) check(needStore bool) error {
	if b.cert == nil || len(b.cert.Certificate) == 0 {
		return ErrNoCertificate
	}
	if needStore && b.store == nil {
		return ErrNoTrustStore
	}
	return nil
}

// PeerCertificate 返回握手完成后对端的叶子证书
func PeerCertificate(state tls.ConnectionState) (*x509.Certificate, error) {
	if len(state.PeerCertificates) == 0 {
		return nil, ErrNoPeerCertificate
	}
	return state.PeerCertificates[0], nil
}
