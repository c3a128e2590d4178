// Package truststore 提供运行时可变的证书信任库
//
// 信任库是 label -> 证书 的线程安全映射，支持两种构造方式：
//   - New: 空库，运行时通过证书共享握手逐步添加
//   - NewFromCertificates: 静态部署，从固定集合构造
//
// TLS 握手验证当且仅当对端证书与某个条目字节一致时成功。
package truststore

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/minio/sha256-simd"
	"github.com/mr-tron/base58"

	"github.com/dep2p/go-iotgate/internal/util/logger"
)

var log = logger.Logger("security/truststore")

var (
	// ErrNoCertificate 对端未提供证书
	ErrNoCertificate = errors.New("truststore: no certificate provided")

	// ErrUntrusted 证书不在信任库中
	ErrUntrusted = errors.New("truststore: certificate not trusted")

	// ErrEmptyLabel 标签为空
	ErrEmptyLabel = errors.New("truststore: empty label")
)

// Store 证书信任库
type Store struct {
	mu      sync.RWMutex
	entries map[string]*x509.Certificate
}

// New 创建空信任库
func New() *Store {
	return &Store{entries: make(map[string]*x509.Certificate)}
}

// NewFromCertificates 从固定集合创建信任库
func NewFromCertificates(certs map[string]*x509.Certificate) (*Store, error) {
	s := New()
	for label, cert := range certs {
		if err := s.Add(label, cert); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add 添加或替换条目
func (s *Store) Add(label string, cert *x509.Certificate) error {
	if label == "" {
		return ErrEmptyLabel
	}
	if cert == nil {
		return ErrNoCertificate
	}

	s.mu.Lock()
	_, replaced := s.entries[label]
	s.entries[label] = cert
	s.mu.Unlock()

	log.Info("信任证书已添加", "label", label, "fingerprint", Fingerprint(cert), "replaced", replaced)
	return nil
}

// AddDER 解析 DER 证书后添加
func (s *Store) AddDER(label string, der []byte) (*x509.Certificate, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("解析证书失败: %w", err)
	}
	if err := s.Add(label, cert); err != nil {
		return nil, err
	}
	return cert, nil
}

// AddPEMFile 从 PEM 文件加载首个证书后添加
func (s *Store) AddPEMFile(label, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取证书文件失败: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return fmt.Errorf("证书文件 %s 不包含 CERTIFICATE 块", path)
	}
	_, err = s.AddDER(label, block.Bytes)
	return err
}

// Remove 删除条目，返回是否存在
func (s *Store) Remove(label string) bool {
	s.mu.Lock()
	_, ok := s.entries[label]
	delete(s.entries, label)
	s.mu.Unlock()

	if ok {
		log.Info("信任证书已移除", "label", label)
	}
	return ok
}

// Get 按标签查询证书
func (s *Store) Get(label string) (*x509.Certificate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cert, ok := s.entries[label]
	return cert, ok
}

// Labels 返回排序后的全部标签
func (s *Store) Labels() []string {
	s.mu.RLock()
	labels := make([]string, 0, len(s.entries))
	for label := range s.entries {
		labels = append(labels, label)
	}
	s.mu.RUnlock()

	sort.Strings(labels)
	return labels
}

// Len 返回条目数
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Match 返回与 DER 证书字节一致的条目标签
func (s *Store) Match(der []byte) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for label, cert := range s.entries {
		if bytes.Equal(cert.Raw, der) {
			return label, true
		}
	}
	return "", false
}

// Contains 证书是否受信任
func (s *Store) Contains(cert *x509.Certificate) bool {
	if cert == nil {
		return false
	}
	_, ok := s.Match(cert.Raw)
	return ok
}

// VerifyPeerCertificate 可直接用作 tls.Config.VerifyPeerCertificate
//
// 仅检查叶子证书是否在信任库中，不做链验证。
func (s *Store) VerifyPeerCertificate(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		return ErrNoCertificate
	}
	if _, ok := s.Match(rawCerts[0]); !ok {
		return fmt.Errorf("%w: %s", ErrUntrusted, FingerprintDER(rawCerts[0]))
	}
	return nil
}

// Fingerprint 返回证书指纹（SHA-256 的 base58 编码）
func Fingerprint(cert *x509.Certificate) string {
	if cert == nil {
		return ""
	}
	return FingerprintDER(cert.Raw)
}

// FingerprintDER 返回 DER 字节的指纹
func FingerprintDER(der []byte) string {
	sum := sha256.Sum256(der)
	return base58.Encode(sum[:])
}
