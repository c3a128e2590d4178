package tls

import "errors"

// TLS 相关错误
var (
	// ErrNoCertificate 未配置本端证书
	ErrNoCertificate = errors.New("tls: no local certificate configured")

	// ErrNoTrustStore 未配置信任库
	ErrNoTrustStore = errors.New("tls: no trust store configured")

	// ErrEmptyIdentity 身份标识为空
	ErrEmptyIdentity = errors.New("tls: empty identity")

	// ErrNoPeerCertificate 对端未提供证书
	ErrNoPeerCertificate = errors.New("tls: peer presented no certificate")
)
