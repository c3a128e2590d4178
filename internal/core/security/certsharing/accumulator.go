package certsharing

import (
	"crypto/x509"
	"net"
	"strconv"
	"strings"
)

// DefaultPortOffset 握手端口相对数据端口的偏移
const DefaultPortOffset = 1

// maxPayload 单个证书载荷的上限
const maxPayload = 64 * 1024

// SharingAddress 由数据地址推导握手地址
func SharingAddress(dataAddr string, offset int) (string, error) {
	host, portStr, err := net.SplitHostPort(dataAddr)
	if err != nil {
		return "", err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", err
	}
	port += offset
	if port <= 0 || port > 65535 {
		return "", ErrInvalidPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// accumulator 拼接被分隔符切开的证书载荷
//
// DER 字节中可能恰好出现分隔符，接收方按原分隔符重新拼接各帧，
// 直到整体能解析为证书。
type accumulator struct {
	delim  string
	frames []string
	size   int
}

func newAccumulator(delim []byte) *accumulator {
	return &accumulator{delim: string(delim)}
}

// add 追加一帧，返回解析成功的证书
func (a *accumulator) add(frame string) (*x509.Certificate, error) {
	a.frames = append(a.frames, frame)
	a.size += len(frame) + len(a.delim)
	if a.size > maxPayload {
		return nil, ErrPayloadTooLarge
	}

	der := []byte(strings.Join(a.frames, a.delim))
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		// 尚不完整，等待下一帧
		return nil, nil
	}
	a.frames = nil
	a.size = 0
	return cert, nil
}
