package fulfillment

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"fulfillment-workers/internal/common/audit"
	"fulfillment-workers/internal/common/errors"
	"fulfillment-workers/internal/common/lock"
	"fulfillment-workers/internal/common/logger"
	"fulfillment-workers/internal/common/mail"
	"fulfillment-workers/internal/common/metrics"
	"fulfillment-workers/internal/common/observability"
	"fulfillment-workers/internal/models"
)

const subjectNewApplication = "新規の申し込みがあります。"

// Dependencies are the collaborators of a fulfillment run. Audit, Guard and
// Observability are optional.
type Dependencies struct {
	Applications  ApplicationLoader
	Statuses      StatusStore
	Notifier      Notifier
	Automation    FormAutomation
	Leads         LeadGateway
	Files         FileTransfer
	Audit         audit.Recorder
	Guard         *lock.Guard
	Observability *observability.Observability
}

type Settings struct {
	AdminEmail string
	ITSEmail   string
	// AbortOnTrackError stops the run at the first track returning an error.
	AbortOnTrackError bool
}

// Coordinator runs the fulfillment of one application: admin notification,
// then the utility track, then the wifi track.
type Coordinator struct {
	applications ApplicationLoader
	notifier     Notifier
	utility      *UtilityTrack
	wifi         *WifiTrack
	audit        audit.Recorder
	guard        *lock.Guard
	obs          *observability.Observability
	settings     Settings
	logger       logger.Logger
}

func NewCoordinator(deps Dependencies, settings Settings, log logger.Logger) *Coordinator {
	if deps.Audit == nil {
		deps.Audit = audit.NopRecorder{}
	}
	if deps.Observability == nil {
		deps.Observability = observability.NewNoop()
	}

	return &Coordinator{
		applications: deps.Applications,
		notifier:     deps.Notifier,
		utility:      NewUtilityTrack(deps.Statuses, deps.Automation, deps.Notifier, deps.Audit, deps.Observability, settings.AdminEmail, log),
		wifi:         NewWifiTrack(deps.Statuses, deps.Leads, deps.Files, deps.Notifier, deps.Audit, deps.Observability, settings.ITSEmail, log),
		audit:        deps.Audit,
		guard:        deps.Guard,
		obs:          deps.Observability,
		settings:     settings,
		logger:       log,
	}
}

// RunFulfillment processes applicationID. When a guard is configured the run
// holds the per-application lease for its whole duration.
func (c *Coordinator) RunFulfillment(ctx context.Context, applicationID int64) (*RunReport, error) {
	if c.guard == nil {
		return c.run(ctx, applicationID)
	}

	v, shared, err := c.guard.Do(ctx, applicationID, func(ctx context.Context) (interface{}, error) {
		return c.run(ctx, applicationID)
	})
	if shared {
		c.logger.Info("joined in-flight fulfillment", map[string]interface{}{"applicationId": applicationID})
	}
	if errors.HasCode(err, errors.ErrCodeApplicationLocked) {
		metrics.FulfillmentRuns.WithLabelValues("locked").Inc()
	}
	report, _ := v.(*RunReport)
	return report, err
}

func (c *Coordinator) run(ctx context.Context, applicationID int64) (report *RunReport, err error) {
	report = &RunReport{
		RunID:         uuid.NewString(),
		ApplicationID: applicationID,
		StartedAt:     time.Now().UTC(),
	}
	log := c.logger.WithFields(map[string]interface{}{
		"applicationId": applicationID,
		"runId":         report.RunID,
	})

	ctx, span := c.obs.StartSpan(ctx, "fulfillment.run",
		attribute.Int64("application.id", applicationID),
		attribute.String("run.id", report.RunID),
	)
	defer func() {
		report.FinishedAt = time.Now().UTC()
		outcome := report.Summary()
		if err != nil {
			outcome = ResultFailed
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if errors.HasCode(err, errors.ErrCodeApplicationNotFound) {
			outcome = "not_found"
		}
		span.SetAttributes(attribute.String("run.outcome", outcome))
		span.End()
		metrics.FulfillmentRuns.WithLabelValues(outcome).Inc()
		log.Info("fulfillment finished", map[string]interface{}{
			"outcome":  outcome,
			"duration": report.FinishedAt.Sub(report.StartedAt).String(),
		})
	}()

	app, err := c.applications.Load(ctx, applicationID)
	if err != nil {
		log.Warn("application could not be loaded", map[string]interface{}{"error": err})
		return report, err
	}
	c.record(ctx, report, "run_started", "")

	if err := c.notifier.Send(ctx, mail.Message{
		To:       c.settings.AdminEmail,
		Subject:  subjectNewApplication,
		Template: mail.TemplateNewApplicationCreated,
		Context:  map[string]interface{}{"applicationId": applicationID},
	}); err != nil {
		log.Error("admin notification failed, aborting run", map[string]interface{}{"error": err})
		return report, err
	}

	var trackErrs []error

	if c.shouldRun(app, TrackUtility, log) {
		out := c.utility.Process(ctx, report.RunID, app)
		c.collect(report, out, log)
		if out.Err != nil {
			trackErrs = append(trackErrs, out.Err)
			if c.settings.AbortOnTrackError {
				return report, out.Err
			}
		}
	}

	if c.shouldRun(app, TrackWifi, log) {
		out := c.wifi.Process(ctx, report.RunID, app)
		c.collect(report, out, log)
		if out.Err != nil {
			trackErrs = append(trackErrs, out.Err)
		}
	}

	c.record(ctx, report, "run_finished", report.Summary())
	switch len(trackErrs) {
	case 0:
		return report, nil
	case 1:
		return report, trackErrs[0]
	default:
		return report, stderrors.Join(trackErrs...)
	}
}

// shouldRun reports whether the track is present and still not handled,
// recording a skipped outcome otherwise.
func (c *Coordinator) shouldRun(app *models.Application, track Track, log logger.Logger) bool {
	var present, eligible bool
	var status string
	switch track {
	case TrackUtility:
		present, eligible = app.Utility != nil, app.Utility.Eligible()
		if present {
			status = string(app.Utility.Status)
		}
	case TrackWifi:
		present, eligible = app.Wifi != nil, app.Wifi.Eligible()
		if present {
			status = string(app.Wifi.Status)
		}
	}

	if !present {
		log.Debug("no sub-record, skipping track", map[string]interface{}{"track": string(track)})
		return false
	}
	if !eligible {
		log.Info("track already handled, skipping", map[string]interface{}{
			"track":  string(track),
			"status": status,
		})
		return false
	}
	return true
}

func (c *Coordinator) collect(report *RunReport, out TrackOutcome, log logger.Logger) {
	report.Tracks = append(report.Tracks, out)
	metrics.FulfillmentTrackOutcomes.WithLabelValues(string(out.Track), out.Result).Inc()

	fields := map[string]interface{}{
		"track":  string(out.Track),
		"status": out.Status,
		"result": out.Result,
	}
	if out.LeadID != "" {
		fields["leadId"] = out.LeadID
	}
	if out.Err != nil {
		fields["error"] = out.Err
		log.Error("track failed", fields)
		return
	}
	log.Info("track finished", fields)
}

func (c *Coordinator) record(ctx context.Context, report *RunReport, step, result string) {
	c.audit.Record(ctx, audit.Event{
		RunID:         report.RunID,
		ApplicationID: report.ApplicationID,
		Step:          step,
		Result:        result,
		Timestamp:     time.Now().UTC(),
	})
}
