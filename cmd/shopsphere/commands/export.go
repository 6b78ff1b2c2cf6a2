package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shopsphere/internal/assets"
	"shopsphere/internal/export"
	"shopsphere/internal/repository"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export-catalog",
	Short: "Write all products to an xlsx file",
	Long: `Write every product, including hidden ones, to a single "Products" sheet.

Examples:
  shopsphere export-catalog                     # writes products.xlsx
  shopsphere export-catalog -o /tmp/catalog.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		repo := repository.NewStore(pool).Products()
		products, err := repo.GetAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to load products: %w", err)
		}
		for i := range products {
			if products[i].Images, err = repo.ListImages(ctx, products[i].ID); err != nil {
				return fmt.Errorf("failed to load images for product %d: %w", products[i].ID, err)
			}
		}

		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOutput, err)
		}

		resolver := assets.Resolver{CloudinaryCloud: cfg.CloudinaryCloud, LocalBaseURL: cfg.AssetBaseURL}
		if err := export.Products(f, products, resolver); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", exportOutput, err)
		}

		logger.Info("catalog exported", "file", exportOutput, "products", len(products))
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d products to %s\n", len(products), exportOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "products.xlsx", "Output file")
}
