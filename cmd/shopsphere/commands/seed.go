package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"shopsphere/internal/database"
	"shopsphere/internal/repository"
	"shopsphere/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo catalog",
	Long: `Insert demo categories, brands, products and shipping options.
Records that already exist (matched by slug) are left untouched, so the
command can be re-run safely.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if _, err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}

		res, err := seed.Run(ctx, repository.NewStore(pool), logger)
		if err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created %d categories, %d brands, %d products, %d shipping options\n",
			res.Categories, res.Brands, res.Products, res.ShippingOptions)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
