package fulfillment

import (
	"context"
	"errors"
	"time"

	"fulfillment-workers/internal/common/automation"
	apperrors "fulfillment-workers/internal/common/errors"
	"fulfillment-workers/internal/common/mail"
	"fulfillment-workers/internal/common/salesforce"
	"fulfillment-workers/internal/models"
)

type fakeLoader struct {
	app *models.Application
	err error
}

func (f *fakeLoader) Load(_ context.Context, id int64) (*models.Application, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.app == nil || f.app.ID != id {
		return nil, apperrors.NewApplicationNotFoundError(id)
	}
	return f.app, nil
}

// fakeStatuses applies transitions to the loaded application so re-runs see them.
type fakeStatuses struct {
	app         *models.Application
	utilityLog  []models.UtilityStatus
	wifiLog     []models.WifiStatus
	failUtility map[models.UtilityStatus]error
	failWifi    map[models.WifiStatus]error
}

func (f *fakeStatuses) SetUtilityStatus(_ context.Context, _ int64, status models.UtilityStatus) error {
	if err := f.failUtility[status]; err != nil {
		return err
	}
	if !models.CanTransitionUtility(f.app.Utility.Status, status) {
		return apperrors.NewInvalidStatusTransitionError("utility", string(status))
	}
	f.app.Utility.Status = status
	f.utilityLog = append(f.utilityLog, status)
	return nil
}

func (f *fakeStatuses) SetWifiStatus(_ context.Context, _ int64, status models.WifiStatus) error {
	if err := f.failWifi[status]; err != nil {
		return err
	}
	if !models.CanTransitionWifi(f.app.Wifi.Status, status) {
		return apperrors.NewInvalidStatusTransitionError("wifi", string(status))
	}
	f.app.Wifi.Status = status
	f.wifiLog = append(f.wifiLog, status)
	return nil
}

type fakeNotifier struct {
	sent   []mail.Message
	failOn map[string]error
}

func (f *fakeNotifier) Send(_ context.Context, msg mail.Message) error {
	f.sent = append(f.sent, msg)
	if err := f.failOn[msg.Template]; err != nil {
		return apperrors.NewEmailSendingFailedError(msg.Template, err)
	}
	return nil
}

func (f *fakeNotifier) templates() []string {
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.Template
	}
	return out
}

type fakeAutomation struct {
	terms      automation.Result
	termsErr   error
	form       automation.Result
	formErr    error
	termsCalls int
	formCalls  int
	lastParams automation.FormParams
}

func (f *fakeAutomation) SendTermsAgreement(_ context.Context, _ string) (automation.Result, error) {
	f.termsCalls++
	return f.terms, f.termsErr
}

func (f *fakeAutomation) SubmitForm(_ context.Context, params automation.FormParams) (automation.Result, error) {
	f.formCalls++
	f.lastParams = params
	return f.form, f.formErr
}

type fakeLeads struct {
	leadID    string
	createErr error
	updateErr error
	created   []salesforce.LeadRecord
	updated   map[string]salesforce.LeadVisa
}

func (f *fakeLeads) CreateLead(_ context.Context, lead salesforce.LeadRecord) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, lead)
	return f.leadID, nil
}

func (f *fakeLeads) UpdateLead(_ context.Context, leadID string, visa salesforce.LeadVisa) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.updated == nil {
		f.updated = map[string]salesforce.LeadVisa{}
	}
	f.updated[leadID] = visa
	return nil
}

type fakeFiles struct {
	frontErr error
	backErr  error
}

func (f *fakeFiles) UploadResidenceCardFront(_ context.Context, key, leadID string) (string, error) {
	if f.frontErr != nil {
		return "", f.frontErr
	}
	return "Home_Internet_User_Registration/" + leadID + "/residence_front_1", nil
}

func (f *fakeFiles) UploadResidenceCardBack(_ context.Context, key, leadID string) (string, error) {
	if f.backErr != nil {
		return "", f.backErr
	}
	return "Home_Internet_User_Registration/" + leadID + "/residence_left_1", nil
}

type fakeLocker struct {
	err error
}

func (f *fakeLocker) Acquire(_ context.Context, _ int64) (func(context.Context) error, error) {
	if f.err != nil {
		return nil, f.err
	}
	return func(context.Context) error { return nil }, nil
}

var errBoom = errors.New("boom")

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func success() automation.Result {
	return automation.Result{Outcome: automation.OutcomeSuccess}
}

// newApplication returns an application with both tracks pending.
func newApplication() *models.Application {
	return &models.Application{
		ID: 12,
		Agency: models.Agency{
			ID:    3,
			Name:  "Tokyo Agency",
			Email: "agency@example.com",
			Accounts: []models.AgencyAccount{
				{ID: 1, FirstName: "Hanako", LastName: "Sato"},
				{ID: 2, FirstName: "Taro", LastName: "Suzuki", IsRepresentative: true},
			},
		},
		Applicant: models.Applicant{
			ID:                  9,
			FirstName:           "An",
			LastName:            "Nguyen",
			Birthdate:           date(1995, 4, 1),
			Nationality:         "VN",
			Email:               "an@example.com",
			PhoneNumber:         "090-1234-5678",
			DesiredLanguageCode: "vietnamese",
			Address: models.Address{
				PostalCode:    "1500001",
				Prefecture:    "東京都",
				City:          "渋谷区",
				AddressDetail: "神南1-1-1",
			},
		},
		Utility: &models.UtilityApplication{
			ApplicationID:     12,
			UtilityTypeCode:   models.UtilityTypeBoth,
			ElectricStartDate: date(2024, 3, 5),
			WithWaterSupply:   true,
			Status:            models.UtilityStatusNotHandle,
		},
		Wifi: &models.WifiApplication{
			ApplicationID: 12,
			VisaFrontURL:  "visa/front.jpg",
			VisaBackURL:   "visa/back.jpg",
			VisaName:      "Nguyen An",
			Status:        models.WifiStatusNotHandle,
		},
	}
}
