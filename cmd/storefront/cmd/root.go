package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront is a small in-memory web shop",
	Long: `A minimal e-commerce storefront: product catalog, session cart,
checkout form, login/registration and an admin panel for adding products.
All state is kept in memory.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
