package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"genfity-analytics-service/internal/analytics"

	"github.com/phpdave11/gofpdf"
)

// PDFOptions labels the dashboard report.
type PDFOptions struct {
	Title    string
	Merchant string
	Location *time.Location
}

func formatBRL(value float64) string {
	s := fmt.Sprintf("%.2f", value)
	return "R$ " + strings.Replace(s, ".", ",", 1)
}

// RenderPDF lays out the metrics as a one-page A4 dashboard summary.
func RenderPDF(m analytics.MetricsResult, opts PDFOptions) ([]byte, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	title := opts.Title
	if title == "" {
		title = "Relatório de desempenho"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(12, 12, 12)
	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, tr(title), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	if opts.Merchant != "" {
		pdf.CellFormat(0, 5, tr(opts.Merchant), "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Período: %s (%s a %s)",
		m.Period,
		m.StartDate.In(loc).Format("02/01/2006"),
		m.EndDate.In(loc).Format("02/01/2006"),
	)), "", 1, "C", false, 0, "")

	section := func(name string) {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, tr(name), "B", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
	}
	line := func(label, value string) {
		pdf.CellFormat(70, 5, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, tr(value), "", 1, "L", false, 0, "")
	}

	section("Resumo")
	line("Faturamento", formatBRL(m.TotalRevenue))
	line("Pedidos", fmt.Sprint(m.TotalCount))
	line("Ticket médio", formatBRL(m.AvgTicket))
	line("Itens por pedido", fmt.Sprintf("%.2f", m.AvgItemsPerOrder))
	line("Descontos", formatBRL(m.TotalDiscounts))
	line("Cancelados", fmt.Sprint(m.CancelledCount))
	line("Canais", fmt.Sprintf("Delivery %d / Mesas %d / Balcão %d",
		m.ChannelBreakdown.Delivery, m.ChannelBreakdown.Tables, m.ChannelBreakdown.POS))

	section("Operação")
	line("Aceite médio", fmt.Sprintf("%d min", m.AvgAcceptance))
	line("Preparo médio", fmt.Sprintf("%d min", m.AvgPrep))
	line("Entrega média", fmt.Sprintf("%d min", m.AvgDelivery))
	line("Qualidade", fmt.Sprintf("%d (no prazo %d%%, cancelamentos %.2f%%)",
		m.QualityMetrics.Score, m.QualityMetrics.OnTimeRate, m.QualityMetrics.ComplaintRate))
	line("Despacho", fmt.Sprintf("< 10 min: %d / > 20 min: %d",
		m.DispatchPerformance.Under10, m.DispatchPerformance.Over20))
	line("Entregadores", fmt.Sprintf("%d ativos, %d no limite",
		m.BagAlerts.ActiveDrivers, m.BagAlerts.DriversAtLimit))

	section("Funil")
	for _, stage := range m.FunnelData {
		line(stage.Name, fmt.Sprint(stage.Value))
	}

	section("Ticket por canal")
	for _, channel := range m.ChannelComparison {
		line(channel.Name, formatBRL(channel.Ticket))
	}

	if len(m.ABCProducts) > 0 {
		section("Curva ABC")
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(10, 5, "#", "", 0, "L", false, 0, "")
		pdf.CellFormat(90, 5, "Produto", "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 5, "Unid.", "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 5, "Receita", "", 0, "R", false, 0, "")
		pdf.CellFormat(0, 5, "Classe", "", 1, "C", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for i, product := range m.ABCProducts {
			if i == 15 {
				pdf.CellFormat(0, 5, tr(fmt.Sprintf("... e mais %d produtos", len(m.ABCProducts)-i)), "", 1, "L", false, 0, "")
				break
			}
			pdf.CellFormat(10, 5, fmt.Sprint(i+1), "", 0, "L", false, 0, "")
			pdf.CellFormat(90, 5, tr(product.Name), "", 0, "L", false, 0, "")
			pdf.CellFormat(25, 5, fmt.Sprintf("%g", product.UnitsSold), "", 0, "R", false, 0, "")
			pdf.CellFormat(35, 5, formatBRL(product.Revenue), "", 0, "R", false, 0, "")
			pdf.CellFormat(0, 5, string(product.Classification), "", 1, "C", false, 0, "")
		}
	}

	if len(m.CategoryEfficiency) > 0 {
		section("Categorias mais rápidas")
		for _, category := range m.CategoryEfficiency {
			line(category.Name, fmt.Sprintf("%d min", category.AvgTime))
		}
	}

	if len(m.TopNeighborhoods) > 0 {
		section("Bairros")
		for _, n := range m.TopNeighborhoods {
			line(n.Name, formatBRL(n.Value))
		}
	}

	if len(m.Insights) > 0 {
		section("Insights")
		for _, insight := range m.Insights {
			pdf.MultiCell(0, 4, tr(fmt.Sprintf("[%s] %s", insight.Type, insight.Message)), "", "L", false)
		}
	}

	pdf.Ln(3)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 4, tr("Gerado em "+m.GeneratedAt.In(loc).Format("02/01/2006 15:04")), "", 1, "R", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return out.Bytes(), nil
}
