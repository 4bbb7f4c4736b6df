package report

import (
	"bytes"
	"fmt"
	"io"

	"genfity-analytics-service/internal/analytics"

	"github.com/gocarina/gocsv"
)

type abcRow struct {
	Rank           int     `csv:"rank"`
	ProductID      string  `csv:"product_id"`
	Name           string  `csv:"name"`
	Category       string  `csv:"category"`
	UnitsSold      float64 `csv:"units_sold"`
	Revenue        float64 `csv:"revenue"`
	SharePercent   float64 `csv:"share_percent"`
	Classification string  `csv:"classification"`
}

// WriteABCCSV writes the ABC ranking in revenue order.
func WriteABCCSV(w io.Writer, products []analytics.ProductStat) error {
	rows := make([]*abcRow, 0, len(products))
	for i, product := range products {
		rows = append(rows, &abcRow{
			Rank:           i + 1,
			ProductID:      product.ID,
			Name:           product.Name,
			Category:       product.Category,
			UnitsSold:      product.UnitsSold,
			Revenue:        product.Revenue,
			SharePercent:   product.Share,
			Classification: string(product.Classification),
		})
	}
	if len(rows) == 0 {
		// gocsv writes nothing for an empty slice; keep the header.
		_, err := io.WriteString(w, "rank,product_id,name,category,units_sold,revenue,share_percent,classification\n")
		return err
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("marshal abc csv: %w", err)
	}
	return nil
}

func ABCCSV(products []analytics.ProductStat) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteABCCSV(&buf, products); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
