package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	iotgate "github.com/dep2p/go-iotgate"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s/%s %s\n",
			iotgate.VersionInfo(), runtime.GOOS, runtime.GOARCH, runtime.Version())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
