package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	iotgate "github.com/dep2p/go-iotgate"
	"github.com/dep2p/go-iotgate/config"
)

var runFlags struct {
	id            string
	objectListen  string
	serviceListen string
	dataDir       string
	seedFile      string
	metricsAddr   string
	introspect    string
	logFile       string
	noTLS         bool
	heartbeat     time.Duration
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "启动网关并运行到收到中断信号",
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := runOptions(cmd)
		if err != nil {
			return err
		}
		gw, err := iotgate.New(opts...)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := gw.Start(ctx); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", iotgate.VersionInfo())
		fmt.Fprintf(out, "对象端口: %s\n", gw.ObjectAddr())
		fmt.Fprintf(out, "服务端口: %s\n", gw.ServiceAddr())
		if fp := gw.Fingerprint(); fp != "" {
			fmt.Fprintf(out, "证书指纹: %s\n", fp)
		}
		for _, a := range gw.SharingAddrs() {
			fmt.Fprintf(out, "证书共享: %s\n", a)
		}

		<-ctx.Done()
		log.Info("收到退出信号")
		return gw.Stop(context.Background())
	},
}

// runOptions 将命令行参数转换为网关选项，仅覆盖显式设置的参数
func runOptions(cmd *cobra.Command) ([]iotgate.Option, error) {
	var opts []iotgate.Option
	if cfgFile != "" {
		opts = append(opts, iotgate.WithConfigFile(cfgFile))
	} else {
		opts = append(opts, iotgate.WithConfig(config.NewConfig()))
	}

	f := cmd.Flags()
	if f.Changed("id") {
		opts = append(opts, iotgate.WithID(runFlags.id))
	}
	if f.Changed("object-listen") || f.Changed("service-listen") {
		opts = append(opts, iotgate.WithListen(runFlags.objectListen, runFlags.serviceListen))
	}
	if f.Changed("data-dir") {
		opts = append(opts, iotgate.WithDataDir(runFlags.dataDir))
	}
	if f.Changed("seed") {
		opts = append(opts, iotgate.WithSeedFile(runFlags.seedFile))
	}
	if f.Changed("metrics-addr") {
		opts = append(opts, iotgate.WithMetricsAddr(runFlags.metricsAddr))
	}
	if f.Changed("introspect") {
		opts = append(opts, iotgate.WithIntrospect(runFlags.introspect))
	}
	if f.Changed("log-file") {
		opts = append(opts, iotgate.WithLogFile(runFlags.logFile))
	}
	if f.Changed("no-tls") {
		opts = append(opts, iotgate.WithTLS(!runFlags.noTLS))
	}
	if f.Changed("heartbeat") {
		opts = append(opts, iotgate.WithHeartbeat(runFlags.heartbeat))
	}
	if logLevel != "" {
		opts = append(opts, iotgate.WithLogLevel(logLevel))
	}
	return opts, nil
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.id, "id", config.DefaultGatewayID, "网关标识")
	f.StringVar(&runFlags.objectListen, "object-listen", "0.0.0.0:7000", "对象端口监听地址")
	f.StringVar(&runFlags.serviceListen, "service-listen", "0.0.0.0:7100", "服务端口监听地址")
	f.StringVar(&runFlags.dataDir, "data-dir", "", "数据目录（为空使用内存存储）")
	f.StringVar(&runFlags.seedFile, "seed", "", "启动时导入的 YAML 种子文件")
	f.StringVar(&runFlags.metricsAddr, "metrics-addr", "", "Prometheus 指标监听地址")
	f.StringVar(&runFlags.introspect, "introspect", "127.0.0.1:6060", "本地自省服务监听地址")
	f.StringVar(&runFlags.logFile, "log-file", "", "日志文件路径")
	f.BoolVar(&runFlags.noTLS, "no-tls", false, "关闭链路 TLS 与证书共享")
	f.DurationVar(&runFlags.heartbeat, "heartbeat", 30*time.Second, "心跳间隔，0 关闭主动探测")
	rootCmd.AddCommand(runCmd)
}
