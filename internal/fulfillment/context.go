package fulfillment

import (
	"time"

	"fulfillment-workers/internal/models"
)

const dash = "-"

func formatDateOrDash(t *time.Time) string {
	if t == nil {
		return dash
	}
	return t.Format("2006-01-02")
}

func orDash(s string) string {
	if s == "" {
		return dash
	}
	return s
}

func choose(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

// agencyContext renders the agency confirmation email.
func agencyContext(app *models.Application, u *models.UtilityApplication) map[string]interface{} {
	return map[string]interface{}{
		"agencyName":               app.Agency.Name,
		"personInCharge":           app.Agency.RepresentativeAccount().DisplayName(),
		"applicantName":            app.Applicant.FullName(),
		"electricStartDate":        formatDateOrDash(u.ElectricStartDate),
		"gasStartDate":             formatDateOrDash(u.GasStartDate),
		"gasStartTime":             orDash(u.GasStartTimeCode),
		"withWaterSupply":          choose(u.WithWaterSupply, "電気利用開始日と同じ", "申込無し"),
		"hasWifiApplication":       choose(app.Wifi != nil, "申込対応済み", "申込無し"),
		"hasCreditCardApplication": choose(app.CreditCard != nil, "ご案内済み", "申込無し"),
	}
}

// customerContext renders the customer confirmation email. Date parts are
// calendar values, so January renders as month 1.
func customerContext(app *models.Application, u *models.UtilityApplication) map[string]interface{} {
	ctx := map[string]interface{}{
		"applicantName":     app.Applicant.FullName(),
		"electricStartDate": formatDateOrDash(u.ElectricStartDate),
		"gasStartDate":      formatDateOrDash(u.GasStartDate),
		"gasStartTime":      orDash(u.GasStartTimeCode),
		"withWaterSupply":   u.WithWaterSupply,
	}
	addDateParts(ctx, "electricStartDate", u.ElectricStartDate)
	addDateParts(ctx, "gasStartDate", u.GasStartDate)
	return ctx
}

func addDateParts(ctx map[string]interface{}, prefix string, t *time.Time) {
	if t == nil {
		ctx[prefix+"Year"] = dash
		ctx[prefix+"Month"] = dash
		ctx[prefix+"Day"] = dash
		return
	}
	ctx[prefix+"Year"] = t.Year()
	ctx[prefix+"Month"] = int(t.Month())
	ctx[prefix+"Day"] = t.Day()
}
