package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/wayportal/internal/backend"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List compositor backends and their availability",
	Long: `List every registered compositor backend in discovery priority order,
with its availability probe result and capability descriptor. The first
available backend is the one the service would bind.`,
	RunE: runBackends,
}

func runBackends(cmd *cobra.Command, args []string) error {
	fmt.Printf("display server: %s (%s)\n", backend.DetectDisplayServer(), backend.CompositorName())
	if path, ok := backend.FindEISSocket(); ok {
		fmt.Printf("EIS socket: %s\n", path)
	}
	fmt.Println()

	picked := false
	for _, p := range backend.DefaultProviders() {
		available := p.IsAvailable()
		marker := " "
		if available && !picked {
			marker = "*"
			picked = true
		}
		caps := p.Capabilities()
		fmt.Printf("%s %-10s %s\n", marker, p.ID(), p.Name())
		fmt.Printf("    available: %v\n", available)
		fmt.Printf("    inject: keyboard=%v pointer=%v touch=%v\n",
			caps.CanInjectKeyboard, caps.CanInjectPointer, caps.CanInjectTouch)
		fmt.Printf("    capture: screen=%v window=%v\n",
			caps.CanCaptureScreen, caps.CanCaptureWindow)
	}

	if !picked {
		fmt.Println("no backend available")
	}
	return nil
}
