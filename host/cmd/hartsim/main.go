// Command hartsim runs the multi-hart UART demo on a simulated PolarFire
// SoC, with each UART line attached to a serial device, the terminal, or an
// interactive shell.
package main

import (
	"flag"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	coreDebug  bool

	rootCmd = &cobra.Command{
		Use:          "hartsim",
		Short:        "Simulate interrupt-driven UART transport across harts",
		Long:         "Run the PolarFire SoC MMUART interrupt demo on a hosted model of harts, UARTs and the interrupt controller.",
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Machine config JSON. Default: five-hart PolarFire SoC layout")
	rootCmd.PersistentFlags().BoolVar(&coreDebug, "core-debug", false, "Log transport debug messages")
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(runCmd, shellCmd)
}

func main() {
	defer glog.Flush()
	if err := rootCmd.Execute(); err != nil {
		glog.Errorf("hartsim: %v", err)
		glog.Flush()
		os.Exit(1)
	}
}
