package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"sync"
	"time"

	"github.com/dep2p/go-iotgate/internal/broker"
	"github.com/dep2p/go-iotgate/internal/core/metrics"
	"github.com/dep2p/go-iotgate/internal/core/security"
	"github.com/dep2p/go-iotgate/internal/gateway"
	"github.com/dep2p/go-iotgate/internal/util/logger"
)

var log = logger.Logger("introspect")

// DefaultAddr 默认监听地址
const DefaultAddr = "127.0.0.1:6060"

// ============================================================================
//                              配置
// ============================================================================

// Config 服务配置
//
// 除 Addr 外的数据源均可为 nil，对应的报告段落将被省略。
type Config struct {
	// Addr 监听地址，默认 "127.0.0.1:6060"
	Addr string

	// LocalID 本端标识
	LocalID string

	// Gateway 网关，提供监听地址与链路数
	Gateway *gateway.Gateway

	// Broker 消息代理，提供注册表
	Broker *broker.Broker

	// Collector 指标收集器
	Collector *metrics.Collector

	// Identity 本端安全材料
	Identity *security.Identity
}

// ============================================================================
//                              Server
// ============================================================================

// Server 本地自省 HTTP 服务
type Server struct {
	config Config

	server   *http.Server
	listener net.Listener

	running   bool
	startTime time.Time

	mu sync.Mutex
}

// New 创建自省服务
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{config: cfg}
}

// Handler 返回自省路由，未启动监听时也可直接挂载
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/introspect", s.getOnly(s.handleIntrospect))
	mux.HandleFunc("/debug/introspect/registry", s.getOnly(s.handleRegistry))
	mux.HandleFunc("/debug/introspect/connections", s.getOnly(s.handleConnections))
	mux.HandleFunc("/debug/introspect/metrics", s.getOnly(s.handleMetrics))
	mux.HandleFunc("/debug/introspect/trust", s.getOnly(s.handleTrust))
	mux.HandleFunc("/debug/introspect/runtime", s.getOnly(s.handleRuntime))

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.HandleFunc("/health", s.getOnly(s.handleHealth))
	return mux
}

// Start 启动服务
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("自省服务异常退出", "error", err)
		}
	}()

	s.running = true
	s.startTime = time.Now()
	log.Info("自省服务已启动", "addr", listener.Addr().String())
	return nil
}

// Stop 停止服务
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.Error("关闭自省服务失败", "error", err)
		return err
	}

	s.running = false
	log.Info("自省服务已停止")
	return nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

func (s *Server) uptime() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startTime.IsZero() {
		return ""
	}
	return time.Since(s.startTime).Truncate(time.Millisecond).String()
}

// ============================================================================
//                              响应结构
// ============================================================================

// Report 完整诊断响应
type Report struct {
	Timestamp   time.Time       `json:"timestamp"`
	Uptime      string          `json:"uptime,omitempty"`
	LocalID     string          `json:"local_id,omitempty"`
	Registry    *RegistryInfo   `json:"registry,omitempty"`
	Connections *ConnectionInfo `json:"connections,omitempty"`
	Metrics     *MetricsInfo    `json:"metrics,omitempty"`
	Trust       *TrustInfo      `json:"trust,omitempty"`
	Runtime     *RuntimeInfo    `json:"runtime"`
}

// RegistryInfo 注册表信息
type RegistryInfo struct {
	Objects  []string `json:"objects"`
	Dormant  []string `json:"dormant"`
	Services []string `json:"services"`
}

// ConnectionInfo 链路信息
type ConnectionInfo struct {
	ObjectAddr  string   `json:"object_addr,omitempty"`
	ServiceAddr string   `json:"service_addr,omitempty"`
	SharingAddr []string `json:"sharing_addrs,omitempty"`
	Objects     int      `json:"objects"`
	Services    int      `json:"services"`
}

// MetricsInfo 指标快照
type MetricsInfo struct {
	Connected       map[string]int `json:"connected"`
	Endpoints       map[string]int `json:"endpoints"`
	Delivered       uint64         `json:"delivered"`
	Rejected        uint64         `json:"rejected"`
	TrustAdded      uint64         `json:"trust_added"`
	RoutedPerSecond float64        `json:"routed_per_second"`
}

// TrustInfo 信任状态
type TrustInfo struct {
	TLS         bool     `json:"tls"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Trusted     []string `json:"trusted"`
}

// RuntimeInfo 运行时信息
type RuntimeInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc"`
	MemSys       uint64 `json:"mem_sys"`
	NumGC        uint32 `json:"num_gc"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime,omitempty"`
}

// ============================================================================
//                              HTTP 处理器
// ============================================================================

func (s *Server) getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

// Collect 汇总当前诊断报告
func (s *Server) Collect() Report {
	return Report{
		Timestamp:   time.Now(),
		Uptime:      s.uptime(),
		LocalID:     s.config.LocalID,
		Registry:    s.collectRegistry(),
		Connections: s.collectConnections(),
		Metrics:     s.collectMetrics(),
		Trust:       s.collectTrust(),
		Runtime:     collectRuntime(),
	}
}

func (s *Server) handleIntrospect(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.Collect())
}

func (s *Server) handleRegistry(w http.ResponseWriter, _ *http.Request) {
	writeSection(w, s.collectRegistry(), "Registry info not available")
}

func (s *Server) handleConnections(w http.ResponseWriter, _ *http.Request) {
	writeSection(w, s.collectConnections(), "Connection info not available")
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeSection(w, s.collectMetrics(), "Metrics not available")
}

func (s *Server) handleTrust(w http.ResponseWriter, _ *http.Request) {
	writeSection(w, s.collectTrust(), "Trust info not available")
}

func (s *Server) handleRuntime(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, collectRuntime())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    s.uptime(),
	}
	if s.config.Gateway == nil || s.config.Gateway.ObjectAddr() == nil {
		health.Status = "degraded"
	}
	writeJSON(w, health)
}

// ============================================================================
//                              数据收集
// ============================================================================

func (s *Server) collectRegistry() *RegistryInfo {
	b := s.config.Broker
	if b == nil {
		return nil
	}
	return &RegistryInfo{
		Objects:  b.Objects(),
		Dormant:  b.DormantObjects(),
		Services: b.Services(),
	}
}

func (s *Server) collectConnections() *ConnectionInfo {
	g := s.config.Gateway
	if g == nil {
		return nil
	}
	info := &ConnectionInfo{}
	if a := g.ObjectAddr(); a != nil {
		info.ObjectAddr = a.String()
	}
	if a := g.ServiceAddr(); a != nil {
		info.ServiceAddr = a.String()
	}
	for _, a := range g.SharingAddrs() {
		info.SharingAddr = append(info.SharingAddr, a.String())
	}
	info.Objects, info.Services = g.Connections()
	return info
}

func (s *Server) collectMetrics() *MetricsInfo {
	c := s.config.Collector
	if c == nil {
		return nil
	}
	snap := c.Snapshot()
	endpoints := make(map[string]int, len(snap.Endpoints))
	for kind, n := range snap.Endpoints {
		endpoints[kind.String()] = n
	}
	return &MetricsInfo{
		Connected:       snap.Connected,
		Endpoints:       endpoints,
		Delivered:       snap.Delivered,
		Rejected:        snap.Rejected,
		TrustAdded:      snap.TrustAdded,
		RoutedPerSecond: snap.RoutedPerSecond,
	}
}

func (s *Server) collectTrust() *TrustInfo {
	id := s.config.Identity
	if id == nil {
		return nil
	}
	return &TrustInfo{
		TLS:         id.Enabled(),
		Fingerprint: id.Fingerprint(),
		Trusted:     id.Trust.Labels(),
	}
}

func collectRuntime() *RuntimeInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &RuntimeInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

// ============================================================================
//                              辅助方法
// ============================================================================

func writeSection[T any](w http.ResponseWriter, data *T, unavailable string) {
	if data == nil {
		http.Error(w, unavailable, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, data)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		log.Error("JSON 编码失败", "error", err)
	}
}
