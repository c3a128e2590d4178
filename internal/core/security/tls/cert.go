package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"time"
)

// certValidity 自签名证书有效期
const certValidity = 10 * 365 * 24 * time.Hour

// GenerateCertificate 生成自签名证书
//
// CommonName 为本端标识，证书同时可用于客户端与服务端认证。
func GenerateCertificate(identity string) (*tls.Certificate, error) {
	if identity == "" {
		return nil, ErrEmptyIdentity
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("生成私钥失败: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 127))
	if err != nil {
		return nil, fmt.Errorf("生成序列号失败: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"go-iotgate"},
			CommonName:   identity,
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(certValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("创建证书失败: %w", err)
	}

	leaf, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("解析证书失败: %w", err)
	}

	return &tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  key,
		Leaf:        leaf,
	}, nil
}

// LoadCertificate 从 PEM 文件加载证书与私钥
func LoadCertificate(certFile, keyFile string) (*tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("加载证书和私钥失败: %w", err)
	}

	if len(cert.Certificate) > 0 && cert.Leaf == nil {
		cert.Leaf, err = x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("解析 Leaf 证书失败: %w", err)
		}
	}
	return &cert, nil
}

// SaveCertificate 将证书与私钥写入 PEM 文件
func SaveCertificate(cert *tls.Certificate, certFile, keyFile string) error {
	if cert == nil || len(cert.Certificate) == 0 {
		return ErrNoCertificate
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(cert.PrivateKey)
	if err != nil {
		return fmt.Errorf("编码私钥失败: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Certificate[0]})
	if err := os.WriteFile(certFile, certPEM, 0o644); err != nil {
		return fmt.Errorf("写入证书文件失败: %w", err)
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		return fmt.Errorf("写入私钥文件失败: %w", err)
	}
	return nil
}

// LoadOrGenerate 文件存在时加载，否则生成并保存
func LoadOrGenerate(identity, certFile, keyFile string) (*tls.Certificate, error) {
	if certFile == "" || keyFile == "" {
		return GenerateCertificate(identity)
	}
	if _, err := os.Stat(certFile); err == nil {
		return LoadCertificate(certFile, keyFile)
	}

	cert, err := GenerateCertificate(identity)
	if err != nil {
		return nil, err
	}
	if err := SaveCertificate(cert, certFile, keyFile); err != nil {
		return nil, err
	}
	return cert, nil
}

// IdentityOf 返回证书携带的身份标识（CommonName）
func IdentityOf(cert *x509.Certificate) string {
	if cert == nil {
		return ""
	}
	return cert.Subject.CommonName
}
