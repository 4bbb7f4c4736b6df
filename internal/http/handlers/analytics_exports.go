package handlers

import (
	"fmt"
	"net/http"

	"genfity-analytics-service/internal/report"
	"genfity-analytics-service/pkg/response"
)

func exportFilename(merchantID int64, kind string, date string, ext string) string {
	return fmt.Sprintf("analytics-%d-%s-%s.%s", merchantID, kind, date, ext)
}

func (h *Handler) MerchantAnalyticsABCCSV(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := requireMerchant(w, r)
	if !ok {
		return
	}
	q, ok := h.bindQuery(w, r)
	if !ok {
		return
	}
	result, ok := h.loadMetrics(w, r, merchantID, q)
	if !ok {
		return
	}

	body, err := report.ABCCSV(result.ABCProducts)
	if err != nil {
		h.internalError(w, r, "abc csv export failed", err)
		return
	}
	date := result.EndDate.Format("2006-01-02")
	response.Attachment(w, "text/csv; charset=utf-8", exportFilename(merchantID, "abc", date, "csv"), body)
}

func (h *Handler) MerchantAnalyticsReportPDF(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := requireMerchant(w, r)
	if !ok {
		return
	}
	q, ok := h.bindQuery(w, r)
	if !ok {
		return
	}
	result, ok := h.loadMetrics(w, r, merchantID, q)
	if !ok {
		return
	}

	body, err := report.RenderPDF(result, report.PDFOptions{
		Merchant: fmt.Sprintf("Loja #%d", merchantID),
		Location: h.Analytics.Engine().Location(),
	})
	if err != nil {
		h.internalError(w, r, "pdf report export failed", err)
		return
	}
	date := result.EndDate.Format("2006-01-02")
	response.Attachment(w, "application/pdf", exportFilename(merchantID, "report", date, "pdf"), body)
}
