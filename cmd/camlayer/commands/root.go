package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "camlayer",
		Short: "CamLayer - Floating camera overlay for screen sharing",
		Long: `CamLayer puts your webcam on screen as a rounded floating thumbnail
that stays on top of your windows, and can flip to filling its main
window as a background.

Features:
  • V4L2 capture with GStreamer fallback
  • GPU-composited rounded-corner overlay
  • Toggle between thumbnail and background mode
  • REST API and WebSocket events for hotkey integration
  • MJPEG preview stream for remote monitoring`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/camlayer/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "bridge server port (default is 8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("device", "", "capture device path (default is /dev/video0)")

	// Bind flags to viper
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("camera.device", rootCmd.PersistentFlags().Lookup("device"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}
