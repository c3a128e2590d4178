package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/dep2p/go-iotgate/config"
)

// ValidationError 配置校验错误
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("配置错误 [%s]: %s", e.Field, e.Message)
}

// ValidationErrors 多个配置校验错误
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors 是否有错误
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator 配置校验器
type Validator struct {
	errors ValidationErrors
}

// NewValidator 创建校验器
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

// Errors 返回所有错误
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

// Validate 校验配置
//
// 先执行各子配置自身的校验，再检查跨模块组合。
func Validate(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	v := NewValidator()
	v.validatePorts(cfg.Transport, cfg.Security.CertSharing)
	v.validateTLSFiles(cfg.Security)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

// validatePorts 对象端口、服务端口及其证书共享端口两两不同（端口 0 除外）
func (v *Validator) validatePorts(t config.TransportConfig, cs config.CertSharingConfig) {
	type binding struct {
		field string
		port  int
	}
	var bindings []binding
	add := func(field, addr string) {
		_, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			v.addError(field, err.Error())
			return
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			v.addError(field, fmt.Sprintf("端口无效: %q", portStr))
			return
		}
		bindings = append(bindings, binding{field, port})
		if cs.Enabled && port != 0 {
			bindings = append(bindings, binding{field + "+cert_sharing", port + cs.PortOffset})
		}
	}
	add("transport.object_listen", t.ObjectListen)
	add("transport.service_listen", t.ServiceListen)

	for i := 0; i < len(bindings); i++ {
		if bindings[i].port == 0 {
			continue
		}
		if bindings[i].port < 0 || bindings[i].port > 65535 {
			v.addError(bindings[i].field, fmt.Sprintf("端口越界: %d", bindings[i].port))
			continue
		}
		for j := i + 1; j < len(bindings); j++ {
			if bindings[i].port == bindings[j].port {
				v.addError(bindings[j].field, fmt.Sprintf("端口 %d 与 %s 冲突", bindings[j].port, bindings[i].field))
			}
		}
	}
}

// validateTLSFiles 受信证书标签必须形如 <proto>@<id>
func (v *Validator) validateTLSFiles(s config.SecurityConfig) {
	for label := range s.TrustedCerts {
		proto, id, ok := strings.Cut(label, "@")
		if !ok || proto == "" || id == "" {
			v.addError("security.trusted_certs", fmt.Sprintf("标签 %q 应为 <proto>@<id>", label))
		}
	}
}
