package recovery

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"
)

// DefaultReconnectDelay 默认重连延迟
const DefaultReconnectDelay = 10 * time.Second

// ReconnectSettings 自动重连配置
type ReconnectSettings struct {
	// Enabled 是否启用自动重连
	Enabled bool

	// Delay 两次尝试之间的延迟
	Delay time.Duration
}

// DefaultReconnectSettings 返回默认配置
func DefaultReconnectSettings() ReconnectSettings {
	return ReconnectSettings{Enabled: true, Delay: DefaultReconnectDelay}
}

// ============================================================================
//                              Scheduler 实现
// ============================================================================

// Scheduler 单个连接的重连调度器
//
// 同一时刻最多只有一个待执行的重试。
type Scheduler struct {
	clock    clock.Clock
	settings func() ReconnectSettings

	mu       sync.Mutex
	timer    *clock.Timer
	gen      uint64
	attempts int

	failureLog rate.Sometimes
}

// NewScheduler 创建调度器
func NewScheduler(clk clock.Clock, settings func() ReconnectSettings) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		clock:      clk,
		settings:   settings,
		failureLog: rate.Sometimes{First: 3, Interval: 30 * time.Second},
	}
}

// Enabled 当前配置是否启用重连
func (s *Scheduler) Enabled() bool {
	return s.settings().Enabled
}

// Delay 返回当前配置的延迟
func (s *Scheduler) Delay() time.Duration {
	d := s.settings().Delay
	if d <= 0 {
		d = DefaultReconnectDelay
	}
	return d
}

// Schedule 在当前延迟后执行 fn，替换任何待执行的重试
//
// 未启用重连时不安排并返回 false。
func (s *Scheduler) Schedule(fn func()) bool {
	if !s.Enabled() {
		return false
	}
	delay := s.Delay()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	s.attempts++
	gen := s.gen
	s.timer = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()
		fn()
	})

	log.Debug("已安排重连", "attempt", s.attempts, "delay", delay)
	return true
}

// Cancel 取消待执行的重试，返回是否存在待执行的重试
func (s *Scheduler) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	if s.timer == nil {
		return false
	}
	s.timer.Stop()
	s.timer = nil
	return true
}

// Pending 是否存在待执行的重试
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Attempts 返回自上次 Reset 以来安排的重试次数
func (s *Scheduler) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Reset 连接成功后清零计数
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.attempts = 0
	s.mu.Unlock()
}

// ReportFailure 记录一次重连失败，日志按频率限流
func (s *Scheduler) ReportFailure(remote string, err error) {
	attempts := s.Attempts()
	s.failureLog.Do(func() {
		log.Warn("重连失败", "remote", remote, "attempts", attempts, "err", err)
	})
}
