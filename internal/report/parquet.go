package report

import (
	"fmt"
	"os"
	"path/filepath"

	"genfity-analytics-service/internal/analytics"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// ProductFact is one ABC row flattened for warehouse loads.
type ProductFact struct {
	Period         string  `parquet:"name=period, type=BYTE_ARRAY, convertedtype=UTF8"`
	StartDate      int64   `parquet:"name=start_date, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	EndDate        int64   `parquet:"name=end_date, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Rank           int32   `parquet:"name=rank, type=INT32"`
	ProductID      string  `parquet:"name=product_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Name           string  `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Category       string  `parquet:"name=category, type=BYTE_ARRAY, convertedtype=UTF8"`
	UnitsSold      float64 `parquet:"name=units_sold, type=DOUBLE"`
	Revenue        float64 `parquet:"name=revenue, type=DOUBLE"`
	SharePercent   float64 `parquet:"name=share_percent, type=DOUBLE"`
	Classification string  `parquet:"name=classification, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func ProductFacts(m analytics.MetricsResult) []ProductFact {
	out := make([]ProductFact, 0, len(m.ABCProducts))
	for i, product := range m.ABCProducts {
		out = append(out, ProductFact{
			Period:         string(m.Period),
			StartDate:      m.StartDate.UnixMilli(),
			EndDate:        m.EndDate.UnixMilli(),
			Rank:           int32(i + 1),
			ProductID:      product.ID,
			Name:           product.Name,
			Category:       product.Category,
			UnitsSold:      product.UnitsSold,
			Revenue:        product.Revenue,
			SharePercent:   product.Share,
			Classification: string(product.Classification),
		})
	}
	return out
}

// WriteParquetFile writes the product facts of m to path.
func WriteParquetFile(path string, m analytics.MetricsResult) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create local file writer: %w", err)
	}

	pw, err := writer.NewParquetWriter(fw, new(ProductFact), 4)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, fact := range ProductFacts(m) {
		if err := pw.Write(fact); err != nil {
			_ = fw.Close()
			return fmt.Errorf("write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return fmt.Errorf("finish parquet file: %w", err)
	}
	return fw.Close()
}

// Parquet renders the product facts into memory through a scratch file.
func Parquet(m analytics.MetricsResult) ([]byte, error) {
	dir, err := os.MkdirTemp("", "analytics-parquet-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "products.parquet")
	if err := WriteParquetFile(path, m); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}
