package certsharing

import "errors"

var (
	// ErrNoCertificate 未配置本端证书
	ErrNoCertificate = errors.New("certsharing: no local certificate")

	// ErrNoTrustStore 未配置信任库
	ErrNoTrustStore = errors.New("certsharing: no trust store")

	// ErrNoRemoteCertificate 远端关闭连接前未发送证书
	ErrNoRemoteCertificate = errors.New("certsharing: remote closed without sending a certificate")

	// ErrPayloadTooLarge 累积的证书载荷超过上限
	ErrPayloadTooLarge = errors.New("certsharing: certificate payload too large")

	// ErrInvalidPort 端口偏移后越界
	ErrInvalidPort = errors.New("certsharing: port out of range")
)
