package fulfillment

import (
	"context"
	"encoding/base64"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"fulfillment-workers/internal/common/audit"
	"fulfillment-workers/internal/common/automation"
	"fulfillment-workers/internal/common/logger"
	"fulfillment-workers/internal/common/mail"
	"fulfillment-workers/internal/common/observability"
	"fulfillment-workers/internal/models"
)

const (
	subjectAgreementFailed    = "ヒナタオの規約同意メールの送信に失敗しました。"
	subjectFormFailed         = "ヒナタオの申し込みフォームの入力に失敗しました。"
	subjectAgencyReceived     = "【GTN】GTN電気ガスセットアップサービスのお申込みを承りました"
	subjectConfirmationFailed = "電気ガスの申し込み受付メールの送信に失敗しました。"

	messageAgencyMailFailed   = "代理店への申し込み受付メールの送信に失敗しました。"
	messageCustomerMailFailed = "お客様への申し込み受付メールの送信に失敗しました。"
)

// UtilityTrack drives the electricity and gas sign-up: terms agreement, partner
// form, then confirmation emails to the agency and the customer.
type UtilityTrack struct {
	statuses   StatusStore
	automation FormAutomation
	notifier   Notifier
	audit      audit.Recorder
	obs        *observability.Observability
	adminEmail string
	logger     logger.Logger
}

func NewUtilityTrack(statuses StatusStore, forms FormAutomation, notifier Notifier, recorder audit.Recorder, obs *observability.Observability, adminEmail string, log logger.Logger) *UtilityTrack {
	return &UtilityTrack{
		statuses:   statuses,
		automation: forms,
		notifier:   notifier,
		audit:      recorder,
		obs:        obs,
		adminEmail: adminEmail,
		logger:     log,
	}
}

// Process runs the track for an eligible utility sub-record.
func (t *UtilityTrack) Process(ctx context.Context, runID string, app *models.Application) TrackOutcome {
	ctx, span := t.obs.StartSpan(ctx, "fulfillment.utility",
		attribute.Int64("application.id", app.ID),
	)
	defer span.End()

	out := t.process(ctx, runID, app)
	span.SetAttributes(
		attribute.String("track.status", out.Status),
		attribute.String("track.result", out.Result),
	)
	if out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, out.Err.Error())
	}
	return out
}

func (t *UtilityTrack) process(ctx context.Context, runID string, app *models.Application) TrackOutcome {
	u := app.Utility
	log := t.logger.WithFields(map[string]interface{}{
		"applicationId": app.ID,
		"track":         string(TrackUtility),
	})
	out := TrackOutcome{Track: TrackUtility, Status: string(u.Status)}

	// terms agreement
	res, err := t.automation.SendTermsAgreement(ctx, app.Applicant.Email)
	if err != nil {
		log.Error("terms agreement invocation failed", map[string]interface{}{"error": err})
		return out.fail(err)
	}
	if !res.Succeeded() {
		if err := t.setStatus(ctx, runID, app.ID, models.UtilityStatusAgreementEmailSentFailed, &out); err != nil {
			return out.fail(err)
		}
		log.Warn("terms agreement refused", map[string]interface{}{"outcome": string(res.Outcome)})
		out.Result = ResultTermsAgreementFailed
		if err := t.notifyAutomationFailure(ctx, app.ID, subjectAgreementFailed, mail.TemplateFailedHinataoAgreement, res, log); err != nil {
			return out.fail(err)
		}
		return out
	}
	if err := t.setStatus(ctx, runID, app.ID, models.UtilityStatusAgreementEmailSentNotAgreed, &out); err != nil {
		return out.fail(err)
	}
	log.Info("terms agreement sent", nil)

	// partner form
	res, err = t.automation.SubmitForm(ctx, automation.BuildFormParams(app, u))
	if err != nil {
		log.Error("form submission invocation failed", map[string]interface{}{"error": err})
		return out.fail(err)
	}
	if !res.Succeeded() {
		if err := t.setStatus(ctx, runID, app.ID, models.UtilityStatusApplicationFormFailed, &out); err != nil {
			return out.fail(err)
		}
		log.Warn("form submission refused", map[string]interface{}{"outcome": string(res.Outcome)})
		out.Result = ResultFormSubmissionFailed
		if err := t.notifyAutomationFailure(ctx, app.ID, subjectFormFailed, mail.TemplateFailedHinataoForm, res, log); err != nil {
			return out.fail(err)
		}
		return out
	}
	if err := t.setStatus(ctx, runID, app.ID, models.UtilityStatusApplicationFormCompleted, &out); err != nil {
		return out.fail(err)
	}
	log.Info("application form completed", nil)

	// confirmations
	if err := t.sendConfirmation(ctx, app.ID, mail.Message{
		To:       app.Agency.Email,
		Subject:  subjectAgencyReceived,
		Template: mail.TemplateApplicationReceivedToAgency,
		Context:  agencyContext(app, u),
		Bcc:      []string{t.adminEmail},
	}, messageAgencyMailFailed, log); err != nil {
		return out.fail(err)
	}

	if err := t.sendConfirmation(ctx, app.ID, mail.Message{
		To:          app.Applicant.Email,
		Template:    mail.TemplateApplicationReceivedToCustomer,
		Context:     customerContext(app, u),
		Bcc:         []string{t.adminEmail},
		Attachments: []mail.Attachment{mail.AssetAttachment()},
		Locale:      app.Applicant.DesiredLanguageCode,
	}, messageCustomerMailFailed, log); err != nil {
		return out.fail(err)
	}

	out.Result = ResultCompleted
	return out
}

func (t *UtilityTrack) setStatus(ctx context.Context, runID string, applicationID int64, status models.UtilityStatus, out *TrackOutcome) error {
	if err := t.statuses.SetUtilityStatus(ctx, applicationID, status); err != nil {
		t.logger.Error("utility status update failed", map[string]interface{}{
			"applicationId": applicationID,
			"status":        string(status),
			"error":         err,
		})
		return err
	}
	out.Status = string(status)
	t.audit.Record(ctx, audit.Event{
		RunID:         runID,
		ApplicationID: applicationID,
		Track:         string(TrackUtility),
		Step:          "status_transition",
		Status:        string(status),
		Timestamp:     time.Now().UTC(),
	})
	return nil
}

// notifyAutomationFailure tells the admin about a refused automation step and
// attaches the screenshot when one came back.
func (t *UtilityTrack) notifyAutomationFailure(ctx context.Context, applicationID int64, subject, template string, res automation.Result, log logger.Logger) error {
	msg := mail.Message{
		To:       t.adminEmail,
		Subject:  subject,
		Template: template,
	}

	hasEvidence := false
	if res.HasEvidence() {
		img, err := base64.StdEncoding.DecodeString(res.Evidence)
		if err != nil {
			log.Warn("evidence is not valid base64, sending without it", map[string]interface{}{"error": err})
		} else {
			msg.Attachments = []mail.Attachment{{Filename: "evidence.png", Content: img}}
			hasEvidence = true
		}
	}
	msg.Context = map[string]interface{}{
		"id":          applicationID,
		"hasEvidence": hasEvidence,
	}
	return t.notifier.Send(ctx, msg)
}

// sendConfirmation sends msg and, when it fails, tells the admin which
// confirmation was lost. The original error is returned.
func (t *UtilityTrack) sendConfirmation(ctx context.Context, applicationID int64, msg mail.Message, failureMessage string, log logger.Logger) error {
	err := t.notifier.Send(ctx, msg)
	if err == nil {
		log.Info("confirmation email sent", map[string]interface{}{"template": msg.Template})
		return nil
	}

	log.Error("confirmation email failed", map[string]interface{}{
		"template": msg.Template,
		"error":    err,
	})
	if nerr := t.notifier.Send(ctx, mail.Message{
		To:       t.adminEmail,
		Subject:  subjectConfirmationFailed,
		Template: mail.TemplateFailedNotificationEmail,
		Context: map[string]interface{}{
			"applicationId": applicationID,
			"message":       failureMessage,
		},
	}); nerr != nil {
		log.Error("failure notification could not be sent", map[string]interface{}{"error": nerr})
	}
	return err
}

func (o TrackOutcome) fail(err error) TrackOutcome {
	o.Result = ResultFailed
	o.Err = err
	return o
}
