package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var (
	cfgFile string
	role    string
	port    int
)

var rootCmd = &cobra.Command{
	Use:   "agent",
	Short: "A2A customer support agents",
	Long:  "Runs the customer support agent or one of the product, shipping and billing specialists it delegates to over the A2A protocol.",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("agent v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to agent configuration file (defaults only when empty)")

	serveCmd.Flags().StringVar(&role, "role", "", "agent role: support, product, shipping or billing")
	serveCmd.Flags().IntVar(&port, "port", 0, "override listen port")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
