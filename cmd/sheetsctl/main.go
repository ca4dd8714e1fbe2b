// Command sheetsctl administers the sheetsdb metadata database.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sheetsctl",
		Short: "Administer the sheetsdb metadata database",
		Long: `sheetsctl seeds projects into the sheetsdb metadata database
and prints the schema the service migrates.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newSeedCmd(), newSchemaCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
