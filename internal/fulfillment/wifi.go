package fulfillment

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"fulfillment-workers/internal/common/audit"
	"fulfillment-workers/internal/common/logger"
	"fulfillment-workers/internal/common/mail"
	"fulfillment-workers/internal/common/observability"
	"fulfillment-workers/internal/common/salesforce"
	"fulfillment-workers/internal/models"
)

const (
	subjectWifiFailed = "Wifi申込の自動化に失敗しました。"
	messageWifiFailed = "ログを確認して修正箇所をアフィリエイトチームに報告してください。"
)

// WifiTrack registers the internet sign-up as a CRM lead with its identity card images.
type WifiTrack struct {
	statuses StatusStore
	leads    LeadGateway
	files    FileTransfer
	notifier Notifier
	audit    audit.Recorder
	obs      *observability.Observability
	itsEmail string
	logger   logger.Logger
}

func NewWifiTrack(statuses StatusStore, leads LeadGateway, files FileTransfer, notifier Notifier, recorder audit.Recorder, obs *observability.Observability, itsEmail string, log logger.Logger) *WifiTrack {
	return &WifiTrack{
		statuses: statuses,
		leads:    leads,
		files:    files,
		notifier: notifier,
		audit:    recorder,
		obs:      obs,
		itsEmail: itsEmail,
		logger:   log,
	}
}

func (t *WifiTrack) Process(ctx context.Context, runID string, app *models.Application) TrackOutcome {
	ctx, span := t.obs.StartSpan(ctx, "fulfillment.wifi",
		attribute.Int64("application.id", app.ID),
	)
	defer span.End()

	out := TrackOutcome{Track: TrackWifi, Status: string(app.Wifi.Status)}
	log := t.logger.WithFields(map[string]interface{}{
		"applicationId": app.ID,
		"track":         string(TrackWifi),
	})

	leadID, err := t.register(ctx, runID, app, &out, log)
	out.LeadID = leadID
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.handleFailure(ctx, runID, app.ID, leadID, &out, err, log)
		return out.fail(err)
	}

	span.SetAttributes(attribute.String("lead.id", leadID))
	out.Result = ResultCompleted
	return out
}

func (t *WifiTrack) register(ctx context.Context, runID string, app *models.Application, out *TrackOutcome, log logger.Logger) (string, error) {
	leadID, err := t.leads.CreateLead(ctx, salesforce.BuildLeadRecord(app))
	if err != nil {
		return "", err
	}
	log.Info("lead created", map[string]interface{}{"leadId": leadID})

	front, err := t.files.UploadResidenceCardFront(ctx, app.Wifi.VisaFrontURL, leadID)
	if err != nil {
		return leadID, err
	}
	back, err := t.files.UploadResidenceCardBack(ctx, app.Wifi.VisaBackURL, leadID)
	if err != nil {
		return leadID, err
	}

	if err := t.leads.UpdateLead(ctx, leadID, salesforce.LeadVisa{
		IdentityCardImage1: front,
		IdentityCardImage2: back,
	}); err != nil {
		return leadID, err
	}
	log.Info("lead updated with identity card images", map[string]interface{}{"leadId": leadID})

	if err := t.setStatus(ctx, runID, app.ID, models.WifiStatusApplicationFormCompleted, out); err != nil {
		return leadID, err
	}
	return leadID, nil
}

// handleFailure marks the track failed and alerts the ITS contact. A lead that
// was already created stays in the CRM.
func (t *WifiTrack) handleFailure(ctx context.Context, runID string, applicationID int64, leadID string, out *TrackOutcome, cause error, log logger.Logger) {
	log.Error("wifi track failed", map[string]interface{}{
		"leadId": leadID,
		"error":  cause,
	})

	if err := t.setStatus(ctx, runID, applicationID, models.WifiStatusApplicationFormFailed, out); err != nil {
		log.Error("could not mark wifi track failed", map[string]interface{}{"error": err})
	}

	if err := t.notifier.Send(ctx, mail.Message{
		To:       t.itsEmail,
		Subject:  subjectWifiFailed,
		Template: mail.TemplateFailedNotificationEmail,
		Context: map[string]interface{}{
			"applicationId": applicationID,
			"message":       messageWifiFailed,
		},
	}); err != nil {
		log.Error("wifi failure notification could not be sent", map[string]interface{}{"error": err})
	}
}

func (t *WifiTrack) setStatus(ctx context.Context, runID string, applicationID int64, status models.WifiStatus, out *TrackOutcome) error {
	if err := t.statuses.SetWifiStatus(ctx, applicationID, status); err != nil {
		return err
	}
	out.Status = string(status)
	t.audit.Record(ctx, audit.Event{
		RunID:         runID,
		ApplicationID: applicationID,
		Track:         string(TrackWifi),
		Step:          "status_transition",
		Status:        string(status),
		Timestamp:     time.Now().UTC(),
	})
	return nil
}
