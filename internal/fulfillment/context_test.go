package fulfillment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fulfillment-workers/internal/models"
)

func TestAgencyContext(t *testing.T) {
	app := newApplication()
	app.CreditCard = &models.CreditCardApplication{ApplicationID: 12}

	ctx := agencyContext(app, app.Utility)

	assert.Equal(t, "Tokyo Agency", ctx["agencyName"])
	assert.Equal(t, "Suzuki Taro", ctx["personInCharge"])
	assert.Equal(t, "An Nguyen", ctx["applicantName"])
	assert.Equal(t, "2024-03-05", ctx["electricStartDate"])
	assert.Equal(t, "-", ctx["gasStartDate"])
	assert.Equal(t, "-", ctx["gasStartTime"])
	assert.Equal(t, "電気利用開始日と同じ", ctx["withWaterSupply"])
	assert.Equal(t, "申込対応済み", ctx["hasWifiApplication"])
	assert.Equal(t, "ご案内済み", ctx["hasCreditCardApplication"])
}

func TestAgencyContext_Absent(t *testing.T) {
	app := newApplication()
	app.Wifi = nil
	app.Agency.Accounts = nil
	app.Utility.ElectricStartDate = nil
	app.Utility.WithWaterSupply = false
	app.Utility.GasStartTimeCode = "1pm-3pm"

	ctx := agencyContext(app, app.Utility)

	assert.Equal(t, "", ctx["personInCharge"])
	assert.Equal(t, "-", ctx["electricStartDate"])
	assert.Equal(t, "1pm-3pm", ctx["gasStartTime"])
	assert.Equal(t, "申込無し", ctx["withWaterSupply"])
	assert.Equal(t, "申込無し", ctx["hasWifiApplication"])
	assert.Equal(t, "申込無し", ctx["hasCreditCardApplication"])
}

func TestAgencyContext_RepresentativeFallback(t *testing.T) {
	app := newApplication()
	app.Agency.Accounts = []models.AgencyAccount{
		{ID: 4, FirstName: "Jiro"},
		{ID: 5, FirstName: "Saburo", LastName: "Kato"},
	}

	assert.Equal(t, "Jiro", agencyContext(app, app.Utility)["personInCharge"])
}

func TestCustomerContext_JanuaryRendersMonthOne(t *testing.T) {
	app := newApplication()
	app.Utility.ElectricStartDate = date(2025, 1, 9)
	app.Utility.GasStartDate = nil

	ctx := customerContext(app, app.Utility)

	assert.Equal(t, "2025-01-09", ctx["electricStartDate"])
	assert.Equal(t, 2025, ctx["electricStartDateYear"])
	assert.Equal(t, 1, ctx["electricStartDateMonth"])
	assert.Equal(t, 9, ctx["electricStartDateDay"])
	assert.Equal(t, "-", ctx["gasStartDate"])
	assert.Equal(t, "-", ctx["gasStartDateYear"])
	assert.Equal(t, "-", ctx["gasStartDateMonth"])
	assert.Equal(t, "-", ctx["gasStartDateDay"])
	assert.Equal(t, true, ctx["withWaterSupply"])
}
