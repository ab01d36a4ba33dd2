package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bnema/wayportal/internal/config"
)

var (
	// Version is set during build
	Version = "0.1.0-dev"

	rootCmd = &cobra.Command{
		Use:   "wayportal",
		Short: "Wayportal - remote desktop portal backend for Wayland",
		Long: `Wayportal is a backend for the org.freedesktop.impl.portal.RemoteDesktop
interface. It mediates between remote-desktop clients and the compositor:
clients create a session, declare the devices and screens they want,
and stream input events through a rate-limited, capability-checked
pipeline into the selected compositor backend.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Init()
		},
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backendsCmd)
}
