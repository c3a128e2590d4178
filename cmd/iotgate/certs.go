package main

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-iotgate/internal/core/security/certsharing"
	gatetls "github.com/dep2p/go-iotgate/internal/core/security/tls"
	"github.com/dep2p/go-iotgate/internal/core/security/truststore"
)

// ============================================================================
//                              gen-cert
// ============================================================================

var genCertFlags struct {
	id   string
	cert string
	key  string
}

var genCertCmd = &cobra.Command{
	Use:   "gen-cert",
	Short: "生成自签名身份证书",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if genCertFlags.id == "" {
			return errors.New("--id 不能为空")
		}
		if _, err := os.Stat(genCertFlags.cert); err == nil {
			return fmt.Errorf("证书文件已存在: %s", genCertFlags.cert)
		}

		cert, err := gatetls.GenerateCertificate(genCertFlags.id)
		if err != nil {
			return err
		}
		if err := gatetls.SaveCertificate(cert, genCertFlags.cert, genCertFlags.key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "已生成 %s 的证书: %s\n指纹: %s\n",
			genCertFlags.id, genCertFlags.cert, truststore.FingerprintDER(cert.Certificate[0]))
		return nil
	},
}

// ============================================================================
//                              share-cert
// ============================================================================

var shareCertFlags struct {
	id      string
	cert    string
	key     string
	proto   string
	address string
	offset  int
	out     string
	timeout time.Duration
}

var shareCertCmd = &cobra.Command{
	Use:   "share-cert",
	Short: "与远端网关交换证书",
	Long: `连接远端数据端口对应的证书共享端口（数据端口 + offset），
发送本端证书并接收远端证书，远端证书以 PEM 格式写入 --out。`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := shareCertFlags
		if f.address == "" || f.out == "" {
			return errors.New("--address 与 --out 不能为空")
		}

		cert, err := gatetls.LoadOrGenerate(f.id, f.cert, f.key)
		if err != nil {
			return err
		}
		addr, err := certsharing.SharingAddress(f.address, f.offset)
		if err != nil {
			return err
		}

		client, err := certsharing.NewClient(certsharing.ClientConfig{
			LocalID:     f.id,
			Proto:       f.proto,
			Address:     addr,
			Cert:        cert,
			Store:       truststore.New(),
			DialTimeout: f.timeout,
		})
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout+certsharing.DefaultExchangeTimeout)
		defer cancel()
		remote, err := client.Share(ctx)
		if err != nil {
			return err
		}
		if err := writeCertPEM(f.out, remote); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "已接收 %s 的证书: %s\n指纹: %s\n",
			gatetls.IdentityOf(remote), f.out, truststore.Fingerprint(remote))
		return nil
	},
}

func writeCertPEM(path string, cert *x509.Certificate) error {
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	return os.WriteFile(path, data, 0o644)
}

func init() {
	g := genCertCmd.Flags()
	g.StringVar(&genCertFlags.id, "id", "", "证书身份（CommonName）")
	g.StringVar(&genCertFlags.cert, "cert", "cert.pem", "证书输出路径")
	g.StringVar(&genCertFlags.key, "key", "key.pem", "私钥输出路径")
	rootCmd.AddCommand(genCertCmd)

	s := shareCertCmd.Flags()
	s.StringVar(&shareCertFlags.id, "id", "", "本端标识")
	s.StringVar(&shareCertFlags.cert, "cert", "", "本端证书（不存在时生成）")
	s.StringVar(&shareCertFlags.key, "key", "", "本端私钥")
	s.StringVar(&shareCertFlags.proto, "proto", "OBJ", "链路协议标签")
	s.StringVar(&shareCertFlags.address, "address", "", "远端数据端口地址 host:port")
	s.IntVar(&shareCertFlags.offset, "offset", certsharing.DefaultPortOffset, "证书共享端口偏移")
	s.StringVar(&shareCertFlags.out, "out", "", "远端证书 PEM 输出路径")
	s.DurationVar(&shareCertFlags.timeout, "timeout", 10*time.Second, "拨号超时")
	_ = shareCertCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(shareCertCmd)
}
