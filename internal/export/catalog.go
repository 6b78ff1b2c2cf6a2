// Package export writes the product catalog to an xlsx workbook.
package export

import (
	"fmt"
	"io"

	"github.com/tealeg/xlsx"

	"shopsphere/internal/assets"
	"shopsphere/internal/models"
)

const SheetName = "Products"

var Headers = []string{
	"ID", "Name", "Slug", "SKU", "Type", "Price", "ComparePrice",
	"Stock", "Available", "CategoryID", "BrandID", "PrimaryImage",
	"CreatedAt", "UpdatedAt",
}

// Products writes one row per product under a header row. Money columns are
// written as fixed two-decimal strings so no precision is lost to floats.
func Products(w io.Writer, products []models.Product, resolver assets.Resolver) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range Headers {
		header.AddCell().SetString(h)
	}

	for _, p := range products {
		row := sheet.AddRow()

		row.AddCell().SetInt(p.ID)
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Slug)
		row.AddCell().SetString(p.SKU)
		row.AddCell().SetString(string(p.ProductType))
		row.AddCell().SetString(p.Price.StringFixed(2))
		if p.ComparePrice.Valid {
			row.AddCell().SetString(p.ComparePrice.Decimal.StringFixed(2))
		} else {
			row.AddCell()
		}
		row.AddCell().SetInt(p.Stock)
		row.AddCell().SetBool(p.IsAvailable)
		addOptionalInt(row, p.CategoryID)
		addOptionalInt(row, p.BrandID)

		image := ""
		if primary := models.PrimaryImage(p.Images); primary != nil {
			image = resolver.URL(primary.Image)
		}
		row.AddCell().SetString(image)

		row.AddCell().SetString(p.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetString(p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func addOptionalInt(row *xlsx.Row, v *int) {
	cell := row.AddCell()
	if v != nil {
		cell.SetInt(*v)
	}
}
