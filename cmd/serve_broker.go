package cmd

import (
	"github.com/spf13/cobra"

	"github.com/gestionclick24-cpu/captive/pkg/cmd/server"
)

// serveBrokerCmd represents the serve broker command
var serveBrokerCmd = &cobra.Command{
	Use:   "broker",
	Short: "Serve the hotspot access broker instance",
	Run:   server.RunServeBroker(c),
}

func init() {
	serveCmd.AddCommand(serveBrokerCmd)
}
