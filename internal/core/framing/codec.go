// Package framing 实现基于分隔符的消息分帧
//
// 每条消息按配置的字符集编码，后接分隔符字节序列。
// 默认分隔符是多字符标记而非单个换行，避免与载荷内容冲突。
package framing

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

const (
	// DefaultDelimiter 默认分隔符
	DefaultDelimiter = "<<EOM>>"

	// DefaultCharset 默认字符集
	DefaultCharset = "UTF-8"

	// DefaultMaxFrameSize 默认单帧最大字节数
	DefaultMaxFrameSize = 1 << 20
)

var (
	// ErrEmptyDelimiter 分隔符为空
	ErrEmptyDelimiter = errors.New("framing: empty delimiter")

	// ErrUnsupportedCharset 不支持的字符集
	ErrUnsupportedCharset = errors.New("framing: unsupported charset")

	// ErrDelimiterInPayload 载荷包含分隔符
	ErrDelimiterInPayload = errors.New("framing: payload contains delimiter")
)

// ============================================================================
//                              Codec - 编解码器
// ============================================================================

// Codec 分帧编解码器
//
// 不可变，可在多个连接间共享。
type Codec struct {
	charset      string
	enc          encoding.Encoding // nil 表示 UTF-8 直通
	delim        []byte
	maxFrameSize int
}

// NewCodec 创建编解码器
func NewCodec(delimiter, charset string) (*Codec, error) {
	return NewCodecWithLimit(delimiter, charset, DefaultMaxFrameSize)
}

// NewCodecWithLimit 创建指定单帧上限的编解码器
func NewCodecWithLimit(delimiter, charset string, maxFrameSize int) (*Codec, error) {
	if delimiter == "" {
		return nil, ErrEmptyDelimiter
	}
	if charset == "" {
		charset = DefaultCharset
	}
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}

	c := &Codec{charset: charset, maxFrameSize: maxFrameSize}
	if !isUTF8(charset) {
		enc, err := ianaindex.IANA.Encoding(charset)
		if err != nil || enc == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedCharset, charset)
		}
		c.enc = enc
	}

	delim, err := c.encodeString(delimiter)
	if err != nil {
		return nil, fmt.Errorf("编码分隔符失败: %w", err)
	}
	c.delim = delim
	return c, nil
}

func isUTF8(charset string) bool {
	switch strings.ToLower(charset) {
	case "utf-8", "utf8":
		return true
	}
	return false
}

// Charset 返回字符集名称
func (c *Codec) Charset() string {
	return c.charset
}

// Delimiter 返回编码后的分隔符
func (c *Codec) Delimiter() []byte {
	return c.delim
}

func (c *Codec) encodeString(s string) ([]byte, error) {
	if c.enc == nil {
		return []byte(s), nil
	}
	return c.enc.NewEncoder().Bytes([]byte(s))
}

// Encode 编码消息并追加分隔符
func (c *Codec) Encode(msg string) ([]byte, error) {
	body, err := c.encodeString(msg)
	if err != nil {
		return nil, fmt.Errorf("编码消息失败: %w", err)
	}
	if bytes.Contains(body, c.delim) {
		return nil, ErrDelimiterInPayload
	}
	return c.frame(body), nil
}

// EncodeRaw 为原始字节追加分隔符，不做字符集转换
//
// 用于证书等二进制载荷；载荷中出现分隔符时由接收方拼接恢复。
func (c *Codec) EncodeRaw(b []byte) []byte {
	return c.frame(b)
}

func (c *Codec) frame(body []byte) []byte {
	out := make([]byte, 0, len(body)+len(c.delim))
	out = append(out, body...)
	return append(out, c.delim...)
}

// Decode 将一帧解码为字符串
func (c *Codec) Decode(frame []byte) (string, error) {
	if c.enc == nil {
		return string(frame), nil
	}
	out, err := c.enc.NewDecoder().Bytes(frame)
	if err != nil {
		return "", fmt.Errorf("解码消息失败: %w", err)
	}
	return string(out), nil
}

// ============================================================================
//                              Reader - 帧读取器
// ============================================================================

// Reader 从字节流中按分隔符切分帧
type Reader struct {
	sc *bufio.Scanner
}

// NewReader 创建帧读取器
func (c *Codec) NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), c.maxFrameSize+len(c.delim))
	sc.Split(splitOn(c.delim))
	return &Reader{sc: sc}
}

// Next 返回下一帧（不含分隔符）
//
// 流正常结束返回 io.EOF；结束时残留未终止的数据返回 io.ErrUnexpectedEOF。
func (r *Reader) Next() ([]byte, error) {
	if r.sc.Scan() {
		tok := r.sc.Bytes()
		out := make([]byte, len(tok))
		copy(out, tok)
		return out, nil
	}
	if err := r.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func splitOn(delim []byte) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if i := bytes.Index(data, delim); i >= 0 {
			return i + len(delim), data[:i], nil
		}
		if atEOF && len(data) > 0 {
			return 0, nil, io.ErrUnexpectedEOF
		}
		return 0, nil, nil
	}
}
