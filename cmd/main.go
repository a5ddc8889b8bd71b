package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"motion-logger/utils"
)

var Version = "dev"

var (
	configPath string
	logFile    string
	logLevel   string

	cfg *utils.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "motion-logger",
		Short:         "Motion-Logger - activity-labelled motion sensor recorder",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = utils.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if logFile != "" {
				cfg.Log.File = logFile
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			utils.InitLogger(utils.ParseLogLevel(cfg.Log.Level), cfg.Log.File)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/motion.yaml", "path to motion.yaml")
	rootCmd.PersistentFlags().StringVar(&logFile, "log", "", "optional log file path (stdout is always included)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(recordCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(configCmd())

	err := rootCmd.Execute()
	utils.L().Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func banner(mode string) {
	utils.L().Info("═══════════════════════════════════════════════════")
	utils.L().Info("  Motion-Logger  ·  %s", mode)
	utils.L().Info("  GOMAXPROCS=%d  ·  PID=%d", runtime.GOMAXPROCS(0), os.Getpid())
	utils.L().Info("═══════════════════════════════════════════════════")
}
