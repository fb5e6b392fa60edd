package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "teledrop",
		Short:        "Telegram file receiver with a web dashboard",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "path to config file (overrides CONFIG_PATH)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(loginCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// configPath resolves the config file location: flag first, then env.
func configPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path
	}
	return os.Getenv("CONFIG_PATH")
}
