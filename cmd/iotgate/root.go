package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-iotgate/internal/util/logger"
)

var log = logger.Logger("cmd")

var (
	// 全局参数
	cfgFile  string
	logLevel string
)

// rootCmd iotgate 根命令
var rootCmd = &cobra.Command{
	Use:   "iotgate",
	Short: "物联网对象与服务之间的消息网关",
	Long: `iotgate 在对象端口与服务端口上接受长连接，按对象的权限规则
在设备（对象）与消费方（服务）之间路由消息。`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径（JSON 或 YAML）")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别，格式同 IOTGATE_LOG_LEVEL")
}
