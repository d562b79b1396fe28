package fulfillment

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fulfillment-workers/internal/common/automation"
	apperrors "fulfillment-workers/internal/common/errors"
	"fulfillment-workers/internal/common/lock"
	"fulfillment-workers/internal/common/logger"
	"fulfillment-workers/internal/common/mail"
	"fulfillment-workers/internal/models"
)

type harness struct {
	app        *models.Application
	statuses   *fakeStatuses
	notifier   *fakeNotifier
	automation *fakeAutomation
	leads      *fakeLeads
	files      *fakeFiles
	settings   Settings
	guard      *lock.Guard
}

func newHarness(app *models.Application) *harness {
	return &harness{
		app:        app,
		statuses:   &fakeStatuses{app: app},
		notifier:   &fakeNotifier{},
		automation: &fakeAutomation{terms: success(), form: success()},
		leads:      &fakeLeads{leadID: "00Q5g00000ABCDE"},
		files:      &fakeFiles{},
		settings: Settings{
			AdminEmail:        "admin@example.com",
			ITSEmail:          "its@example.com",
			AbortOnTrackError: true,
		},
	}
}

func (h *harness) coordinator(t *testing.T) *Coordinator {
	return NewCoordinator(Dependencies{
		Applications: &fakeLoader{app: h.app},
		Statuses:     h.statuses,
		Notifier:     h.notifier,
		Automation:   h.automation,
		Leads:        h.leads,
		Files:        h.files,
		Guard:        h.guard,
	}, h.settings, logger.NewTestLogger(t))
}

func (h *harness) run(t *testing.T) (*RunReport, error) {
	return h.coordinator(t).RunFulfillment(context.Background(), h.app.ID)
}

// ==========================
// Coordinator
// ==========================

func TestRun_UtilityHappyPath(t *testing.T) {
	app := newApplication()
	app.Wifi = nil
	h := newHarness(app)

	report, err := h.run(t)
	require.NoError(t, err)

	assert.Equal(t, models.UtilityStatusApplicationFormCompleted, app.Utility.Status)
	assert.Equal(t, []string{
		mail.TemplateNewApplicationCreated,
		mail.TemplateApplicationReceivedToAgency,
		mail.TemplateApplicationReceivedToCustomer,
	}, h.notifier.templates())

	out, ok := report.Outcome(TrackUtility)
	require.True(t, ok)
	assert.Equal(t, ResultCompleted, out.Result)
	assert.Equal(t, "completed", report.Summary())

	admin := h.notifier.sent[0]
	assert.Equal(t, "admin@example.com", admin.To)
	assert.Equal(t, "新規の申し込みがあります。", admin.Subject)
	assert.Equal(t, int64(12), admin.Context["applicationId"])

	agency := h.notifier.sent[1]
	assert.Equal(t, "agency@example.com", agency.To)
	assert.Equal(t, "【GTN】GTN電気ガスセットアップサービスのお申込みを承りました", agency.Subject)
	assert.Equal(t, []string{"admin@example.com"}, agency.Bcc)

	customer := h.notifier.sent[2]
	assert.Equal(t, "an@example.com", customer.To)
	assert.Empty(t, customer.Subject)
	assert.Equal(t, "vietnamese", customer.Locale)
	assert.Equal(t, []string{"admin@example.com"}, customer.Bcc)
	require.Len(t, customer.Attachments, 1)
	assert.Equal(t, "file.png", customer.Attachments[0].Filename)
}

func TestRun_TermsAgreementFailure(t *testing.T) {
	app := newApplication()
	app.Wifi = nil
	h := newHarness(app)
	h.automation.terms = automation.Result{
		Outcome:  automation.OutcomeFailedWithEvidence,
		Evidence: base64.StdEncoding.EncodeToString([]byte("png-bytes")),
	}

	report, err := h.run(t)
	require.NoError(t, err, "a refused agreement is a business outcome")

	assert.Equal(t, models.UtilityStatusAgreementEmailSentFailed, app.Utility.Status)
	assert.Equal(t, 0, h.automation.formCalls)
	assert.Equal(t, []string{mail.TemplateNewApplicationCreated, mail.TemplateFailedHinataoAgreement}, h.notifier.templates())

	failure := h.notifier.sent[1]
	assert.Equal(t, "admin@example.com", failure.To)
	assert.Equal(t, "ヒナタオの規約同意メールの送信に失敗しました。", failure.Subject)
	assert.Equal(t, true, failure.Context["hasEvidence"])
	require.Len(t, failure.Attachments, 1)
	assert.Equal(t, "evidence.png", failure.Attachments[0].Filename)
	assert.Equal(t, []byte("png-bytes"), failure.Attachments[0].Content)

	out, _ := report.Outcome(TrackUtility)
	assert.Equal(t, ResultTermsAgreementFailed, out.Result)
	assert.Equal(t, "business_failure", report.Summary())
}

func TestRun_FormSubmissionFailure(t *testing.T) {
	app := newApplication()
	app.Wifi = nil
	h := newHarness(app)
	h.automation.form = automation.Result{Outcome: automation.OutcomeFailedWithoutEvidence}

	report, err := h.run(t)
	require.NoError(t, err)

	assert.Equal(t, []models.UtilityStatus{
		models.UtilityStatusAgreementEmailSentNotAgreed,
		models.UtilityStatusApplicationFormFailed,
	}, h.statuses.utilityLog)
	assert.Equal(t, []string{mail.TemplateNewApplicationCreated, mail.TemplateFailedHinataoForm}, h.notifier.templates())
	assert.Equal(t, false, h.notifier.sent[1].Context["hasEvidence"])
	assert.Empty(t, h.notifier.sent[1].Attachments)

	out, _ := report.Outcome(TrackUtility)
	assert.Equal(t, ResultFormSubmissionFailed, out.Result)
	assert.Equal(t, []string{"electric", "gas", "water"}, h.automation.lastParams.DesiredContacts)
}

func TestRun_AutomationRefusalStillRunsWifi(t *testing.T) {
	tests := []struct {
		name       string
		refuse     func(h *harness)
		wantResult string
	}{
		{
			name:       "terms agreement refused",
			refuse:     func(h *harness) { h.automation.terms = automation.Result{Outcome: automation.OutcomeFailedWithoutEvidence} },
			wantResult: ResultTermsAgreementFailed,
		},
		{
			name:       "form submission refused",
			refuse:     func(h *harness) { h.automation.form = automation.Result{Outcome: automation.OutcomeFailedWithoutEvidence} },
			wantResult: ResultFormSubmissionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(newApplication())
			require.True(t, h.settings.AbortOnTrackError)
			tt.refuse(h)

			report, err := h.run(t)
			require.NoError(t, err)

			utility, _ := report.Outcome(TrackUtility)
			assert.Equal(t, tt.wantResult, utility.Result)
			require.Len(t, h.leads.created, 1)
			assert.Equal(t, models.WifiStatusApplicationFormCompleted, h.app.Wifi.Status)
			assert.Equal(t, "business_failure", report.Summary())
		})
	}
}

func TestRun_IdempotentForHandledTracks(t *testing.T) {
	app := newApplication()
	app.Wifi = nil
	h := newHarness(app)

	_, err := h.run(t)
	require.NoError(t, err)
	require.Equal(t, 1, h.automation.termsCalls)

	h.notifier.sent = nil
	report, err := h.run(t)
	require.NoError(t, err)

	assert.Equal(t, 1, h.automation.termsCalls)
	assert.Equal(t, 1, h.automation.formCalls)
	assert.Equal(t, []string{mail.TemplateNewApplicationCreated}, h.notifier.templates())
	assert.Empty(t, report.Tracks)
}

func TestRun_NotFoundHasNoSideEffects(t *testing.T) {
	h := newHarness(newApplication())
	c := h.coordinator(t)

	_, err := c.RunFulfillment(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeApplicationNotFound))
	assert.Empty(t, h.notifier.sent)
	assert.Equal(t, 0, h.automation.termsCalls)
	assert.Empty(t, h.leads.created)
}

func TestRun_AdminNotificationFailureAborts(t *testing.T) {
	h := newHarness(newApplication())
	h.notifier.failOn = map[string]error{mail.TemplateNewApplicationCreated: errBoom}

	_, err := h.run(t)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmailSendingFailed))
	assert.Equal(t, 0, h.automation.termsCalls)
	assert.Empty(t, h.leads.created)
}

func TestRun_ConfirmationFailure(t *testing.T) {
	tests := []struct {
		name    string
		failing string
		message string
	}{
		{"agency", mail.TemplateApplicationReceivedToAgency, "代理店への申し込み受付メールの送信に失敗しました。"},
		{"customer", mail.TemplateApplicationReceivedToCustomer, "お客様への申し込み受付メールの送信に失敗しました。"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(newApplication())
			h.notifier.failOn = map[string]error{tt.failing: errBoom}

			report, err := h.run(t)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmailSendingFailed))

			last := h.notifier.sent[len(h.notifier.sent)-1]
			assert.Equal(t, mail.TemplateFailedNotificationEmail, last.Template)
			assert.Equal(t, "電気ガスの申し込み受付メールの送信に失敗しました。", last.Subject)
			assert.Equal(t, tt.message, last.Context["message"])

			// abort policy: wifi never ran
			_, reached := report.Outcome(TrackWifi)
			assert.False(t, reached)
			assert.Empty(t, h.leads.created)
			assert.Equal(t, models.UtilityStatusApplicationFormCompleted, h.app.Utility.Status)
		})
	}
}

func TestRun_ContinuePolicyRunsWifiAfterUtilityError(t *testing.T) {
	h := newHarness(newApplication())
	h.settings.AbortOnTrackError = false
	h.automation.termsErr = apperrors.NewUnrecognizedAutomationResponseError(automation.OperationTermsAgreement, "")
	h.files.backErr = apperrors.NewFileTransferFailedError("img/visa/back.jpg", errBoom)

	report, err := h.run(t)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnrecognizedAutomationResponse))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeFileTransferFailed))

	assert.Equal(t, models.UtilityStatusNotHandle, h.app.Utility.Status)
	assert.Equal(t, models.WifiStatusApplicationFormFailed, h.app.Wifi.Status)
	assert.Len(t, report.Tracks, 2)
	assert.Equal(t, ResultFailed, report.Summary())
}

func TestRun_WifiHappyPath(t *testing.T) {
	app := newApplication()
	app.Utility = nil
	h := newHarness(app)

	report, err := h.run(t)
	require.NoError(t, err)

	assert.Equal(t, models.WifiStatusApplicationFormCompleted, app.Wifi.Status)
	require.Len(t, h.leads.created, 1)
	assert.Equal(t, "NGUYEN AN", h.leads.created[0].IdentityCardName)
	assert.Equal(t, "Home_Internet_User_Registration/00Q5g00000ABCDE/residence_front_1", h.leads.updated["00Q5g00000ABCDE"].IdentityCardImage1)
	assert.Equal(t, "Home_Internet_User_Registration/00Q5g00000ABCDE/residence_left_1", h.leads.updated["00Q5g00000ABCDE"].IdentityCardImage2)

	out, _ := report.Outcome(TrackWifi)
	assert.Equal(t, "00Q5g00000ABCDE", out.LeadID)
	vars := report.Variables()
	assert.Equal(t, "00Q5g00000ABCDE", vars["wifiLeadId"])
	assert.Equal(t, "completed", vars["fulfillmentOutcome"])
}

func TestRun_WifiFailureAfterLeadCreation(t *testing.T) {
	app := newApplication()
	app.Utility = nil
	h := newHarness(app)
	h.leads.updateErr = apperrors.NewCRMRequestFailedError("updating lead", errBoom)

	report, err := h.run(t)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCRMRequestFailed))

	assert.Equal(t, models.WifiStatusApplicationFormFailed, app.Wifi.Status)
	assert.Len(t, h.leads.created, 1, "created lead is kept")

	failure := h.notifier.sent[len(h.notifier.sent)-1]
	assert.Equal(t, "its@example.com", failure.To)
	assert.Equal(t, "Wifi申込の自動化に失敗しました。", failure.Subject)
	assert.Equal(t, "ログを確認して修正箇所をアフィリエイトチームに報告してください。", failure.Context["message"])

	out, _ := report.Outcome(TrackWifi)
	assert.Equal(t, "00Q5g00000ABCDE", out.LeadID)
}

func TestRun_LockedByAnotherRun(t *testing.T) {
	h := newHarness(newApplication())
	h.guard = lock.NewGuard(&fakeLocker{err: apperrors.NewApplicationLockedError(12)}, logger.NewNoOpLogger())

	report, err := h.run(t)
	assert.Nil(t, report)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeApplicationLocked))
	assert.Empty(t, h.notifier.sent)
}

func TestRun_WithGuard(t *testing.T) {
	h := newHarness(newApplication())
	h.guard = lock.NewGuard(&fakeLocker{}, logger.NewNoOpLogger())

	report, err := h.run(t)
	require.NoError(t, err)
	assert.Len(t, report.Tracks, 2)
}
