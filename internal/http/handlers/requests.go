package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"genfity-analytics-service/internal/analytics"
	"genfity-analytics-service/internal/finance"
	"genfity-analytics-service/pkg/response"

	"github.com/go-playground/validator/v10"
)

type analyticsQueryRequest struct {
	Period    string `query:"period" validate:"omitempty,period"`
	StartDate string `query:"startDate" validate:"required_with=EndDate,omitempty,datetime=2006-01-02"`
	EndDate   string `query:"endDate" validate:"required_with=StartDate,omitempty,datetime=2006-01-02"`
}

func (req analyticsQueryRequest) toQuery() analytics.Query {
	period, _ := analytics.ParsePeriod(req.Period)
	q := analytics.Query{Period: period}
	if req.StartDate != "" && req.EndDate != "" {
		q.CustomRange = &analytics.CustomRange{Start: req.StartDate, End: req.EndDate}
		// Explicit dates without a label mean a custom window.
		if strings.TrimSpace(req.Period) == "" {
			q.Period = analytics.PeriodCustom
		}
	}
	return q
}

type computeRequest struct {
	Orders      []analytics.Order      `json:"orders" validate:"max=100000"`
	Period      string                 `json:"period" validate:"omitempty,period"`
	CustomRange *analytics.CustomRange `json:"customRange"`
}

func (req computeRequest) toQuery() analytics.Query {
	period, _ := analytics.ParsePeriod(req.Period)
	return analytics.Query{Period: period, CustomRange: req.CustomRange}
}

type quoteRequest struct {
	Subtotal        float64 `json:"subtotal" validate:"gte=0"`
	ServiceFee      float64 `json:"serviceFee" validate:"gte=0"`
	ServiceFeeType  string  `json:"serviceFeeType" validate:"omitempty,feetype"`
	CoverCharge     float64 `json:"coverCharge" validate:"gte=0"`
	CoverChargeType string  `json:"coverChargeType" validate:"omitempty,feetype"`
	Discount        float64 `json:"discount" validate:"gte=0"`
	DiscountType    string  `json:"discountType" validate:"omitempty,feetype"`
	LoyaltyPoints   float64 `json:"loyaltyPoints" validate:"gte=0"`
}

func (req quoteRequest) toInput() finance.QuoteInput {
	return finance.QuoteInput{
		Subtotal:        req.Subtotal,
		ServiceFee:      req.ServiceFee,
		ServiceFeeType:  finance.ParseFeeType(req.ServiceFeeType),
		CoverCharge:     req.CoverCharge,
		CoverChargeType: finance.ParseFeeType(req.CoverChargeType),
		Discount:        req.Discount,
		DiscountType:    finance.ParseFeeType(req.DiscountType),
		LoyaltyPoints:   req.LoyaltyPoints,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Use json/query tag names for field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	_ = v.RegisterValidation("period", func(fl validator.FieldLevel) bool {
		_, ok := analytics.ParsePeriod(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("feetype", func(fl validator.FieldLevel) bool {
		switch strings.ToUpper(strings.TrimSpace(fl.Field().String())) {
		case "PERCENT", "PERCENTAGE", "%", "FIXED", "FIXED_AMOUNT", "BRL":
			return true
		}
		return false
	})
	return v
}

func readAnalyticsQuery(r *http.Request) analyticsQueryRequest {
	values := r.URL.Query()
	return analyticsQueryRequest{
		Period:    strings.TrimSpace(values.Get("period")),
		StartDate: strings.TrimSpace(values.Get("startDate")),
		EndDate:   strings.TrimSpace(values.Get("endDate")),
	}
}

// bindQuery validates the analytics query string, writing a 400 on failure.
func (h *Handler) bindQuery(w http.ResponseWriter, r *http.Request) (analytics.Query, bool) {
	req := readAnalyticsQuery(r)
	if err := h.Validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return analytics.Query{}, false
	}
	if req.StartDate != "" && req.EndDate != "" && req.StartDate > req.EndDate {
		response.Validation(w, "Request validation failed", []response.ValidationDetail{
			{Field: "startDate", Message: "Must not be after endDate"},
		})
		return analytics.Query{}, false
	}
	return req.toQuery(), true
}

func writeValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	details := make([]response.ValidationDetail, 0, len(validationErrors))
	for _, e := range validationErrors {
		details = append(details, response.ValidationDetail{
			Field:   e.Field(),
			Message: validationMessage(e),
		})
	}
	response.Validation(w, "Request validation failed", details)
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_with":
		return "This field is required"
	case "datetime":
		return "Must be a date formatted as " + e.Param()
	case "period":
		return "Unknown period"
	case "feetype":
		return "Must be PERCENT or FIXED"
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "max":
		return "Must contain at most " + e.Param() + " items"
	default:
		return "Invalid value"
	}
}
