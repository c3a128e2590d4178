// Package connstate 实现单条链路的连接状态机
//
// 状态转换：
//
//	Disconnected --connect--> Connecting --established--> Connected
//	Connecting --unreachable--> WaitingForRemote --retry--> Connecting
//	Connecting --connect_failed--> Disconnected
//	Connected --disconnect|remote_closed|transport_error--> Disconnecting --closed--> Disconnected
//	Connecting|WaitingForRemote --disconnect--> Disconnecting
//
// 任何 (状态, 事件) 组合的结果都是确定的：要么是上表中的目标状态，
// 要么返回 *TransitionError 且状态保持不变。
//
// 状态变化与 ConnectionStats 的更新在同一把锁内完成。
package connstate
