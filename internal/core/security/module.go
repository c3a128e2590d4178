package security

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"sort"

	"go.uber.org/fx"

	"github.com/dep2p/go-iotgate/config"
	gatetls "github.com/dep2p/go-iotgate/internal/core/security/tls"
	"github.com/dep2p/go-iotgate/internal/core/security/truststore"
	"github.com/dep2p/go-iotgate/internal/util/logger"
)

var log = logger.Logger("security")

// ============================================================================
//                              Identity
// ============================================================================

// Identity 本端安全材料
type Identity struct {
	// ID 本端标识，即证书 CommonName
	ID string

	// Cert 本端证书，关闭 TLS 时为 nil
	Cert *tls.Certificate

	// Trust 信任库，始终非 nil
	Trust *truststore.Store

	// Server 数据链路服务端配置，关闭 TLS 时为 nil
	Server *tls.Config

	// Client 数据链路客户端配置，关闭 TLS 时为 nil
	Client *tls.Config
}

// NewIdentity 按安全配置构建本端身份
func NewIdentity(id string, cfg config.SecurityConfig) (*Identity, error) {
	if id == "" {
		return nil, ErrEmptyIdentity
	}

	store := truststore.New()
	labels := make([]string, 0, len(cfg.TrustedCerts))
	for label := range cfg.TrustedCerts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if err := store.AddPEMFile(label, cfg.TrustedCerts[label]); err != nil {
			return nil, fmt.Errorf("加载受信证书 %s 失败: %w", label, err)
		}
	}

	ident := &Identity{ID: id, Trust: store}
	if !cfg.EnableTLS {
		log.Warn("未启用 TLS，链路使用明文")
		return ident, nil
	}

	cert, err := gatetls.LoadOrGenerate(id, cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	builder := gatetls.NewConfigBuilder(cert, store)
	if ident.Server, err = builder.BuildServerConfig(); err != nil {
		return nil, err
	}
	if ident.Client, err = builder.BuildClientConfig(); err != nil {
		return nil, err
	}
	ident.Cert = cert

	log.Info("本端身份已就绪",
		"id", id,
		"fingerprint", ident.Fingerprint(),
		"trusted", store.Len())
	return ident, nil
}

// Enabled 是否启用 TLS
func (i *Identity) Enabled() bool {
	return i.Cert != nil
}

// Leaf 返回本端叶子证书
func (i *Identity) Leaf() (*x509.Certificate, error) {
	if i.Cert == nil {
		return nil, ErrTLSDisabled
	}
	if i.Cert.Leaf != nil {
		return i.Cert.Leaf, nil
	}
	return x509.ParseCertificate(i.Cert.Certificate[0])
}

// Fingerprint 返回本端证书指纹，关闭 TLS 时为空
func (i *Identity) Fingerprint() string {
	if i.Cert == nil || len(i.Cert.Certificate) == 0 {
		return ""
	}
	return truststore.FingerprintDER(i.Cert.Certificate[0])
}

// ============================================================================
//                              Fx 模块
// ============================================================================

// Params Security 依赖参数
type Params struct {
	fx.In

	Lifecycle  fx.Lifecycle
	UnifiedCfg *config.Config `optional:"true"`
}

// Module 是 security 的 Fx 模块
var Module = fx.Module("security",
	fx.Provide(NewFromParams),
)

// NewFromParams 从统一配置构建本端身份
func NewFromParams(p Params) (*Identity, error) {
	cfg := config.NewConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg
	}

	ident, err := NewIdentity(cfg.Identity.ID, cfg.Security)
	if err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			log.Info("安全模块停止", "trusted", ident.Trust.Len())
			return nil
		},
	})
	return ident, nil
}
