package automation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"fulfillment-workers/internal/common/errors"
	"fulfillment-workers/internal/common/logger"
	"fulfillment-workers/internal/common/mail"
	"fulfillment-workers/internal/common/metrics"
	"fulfillment-workers/internal/common/validation"
)

const (
	OperationTermsAgreement = "send_terms_agreement"
	OperationApplyForm      = "apply_form"

	codeSuccess = 201
	codeFailed  = 400
)

type Outcome string

const (
	OutcomeSuccess               Outcome = "success"
	OutcomeFailedWithEvidence    Outcome = "failed_with_evidence"
	OutcomeFailedWithoutEvidence Outcome = "failed_without_evidence"
)

// Result is a recognized script response. Evidence is the base64 screenshot
// returned with a failure.
type Result struct {
	Outcome  Outcome
	Evidence string
}

func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

func (r Result) HasEvidence() bool {
	return r.Outcome == OutcomeFailedWithEvidence && r.Evidence != ""
}

type response struct {
	Code  int    `json:"code"`
	Image string `json:"image,omitempty"`
}

type Notifier interface {
	Send(ctx context.Context, msg mail.Message) error
}

type Alerter interface {
	PublishAlert(ctx context.Context, subject, message string) error
}

type Gateway struct {
	runner    Runner
	notifier  Notifier
	alerter   Alerter
	itsEmail  string
	validator *validation.Validator
	logger    logger.Logger
}

// NewGateway builds the automation gateway. alerter may be nil.
func NewGateway(runner Runner, notifier Notifier, alerter Alerter, itsEmail string, log logger.Logger) *Gateway {
	return &Gateway{
		runner:    runner,
		notifier:  notifier,
		alerter:   alerter,
		itsEmail:  itsEmail,
		validator: validation.NewValidator(),
		logger:    log,
	}
}

// SendTermsAgreement asks the partner site to email its terms to the applicant.
func (g *Gateway) SendTermsAgreement(ctx context.Context, email string) (Result, error) {
	return g.invoke(ctx, OperationTermsAgreement, email, "--email", email)
}

// SubmitForm fills the partner application form.
func (g *Gateway) SubmitForm(ctx context.Context, params FormParams) (Result, error) {
	if err := g.validator.Struct(params); err != nil {
		return Result{}, errors.NewValidationFailedError(err.Error())
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return Result{}, errors.NewAutomationExecutionFailedError(OperationApplyForm, err)
	}
	return g.invoke(ctx, OperationApplyForm, params.Email, "--params", base64.StdEncoding.EncodeToString(raw))
}

func (g *Gateway) invoke(ctx context.Context, operation, email string, args ...string) (Result, error) {
	stdout, err := g.runner.Run(ctx, operation, args...)
	if err != nil {
		metrics.FulfillmentAutomationInvocations.WithLabelValues(operation, "error").Inc()
		return Result{}, errors.NewAutomationExecutionFailedError(operation, err)
	}

	result, ok := decode(stdout)
	if !ok {
		metrics.FulfillmentAutomationInvocations.WithLabelValues(operation, "unrecognized").Inc()
		g.reportUnknown(ctx, operation, email, stdout)
		return Result{}, errors.NewUnrecognizedAutomationResponseError(operation, truncate(string(stdout), 512))
	}

	metrics.FulfillmentAutomationInvocations.WithLabelValues(operation, string(result.Outcome)).Inc()
	g.logger.Info("automation completed", map[string]interface{}{
		"operation": operation,
		"outcome":   string(result.Outcome),
	})
	return result, nil
}

// decode reads the base64 encoded JSON response printed by the scripts.
func decode(stdout []byte) (Result, bool) {
	trimmed := strings.TrimSpace(string(stdout))
	if trimmed == "" {
		return Result{}, false
	}

	payload, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return Result{}, false
	}

	var resp response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return Result{}, false
	}

	switch resp.Code {
	case codeSuccess:
		return Result{Outcome: OutcomeSuccess}, true
	case codeFailed:
		if resp.Image != "" {
			return Result{Outcome: OutcomeFailedWithEvidence, Evidence: resp.Image}, true
		}
		return Result{Outcome: OutcomeFailedWithoutEvidence}, true
	default:
		return Result{}, false
	}
}

// reportUnknown is best-effort: the caller always gets the unrecognized response error.
func (g *Gateway) reportUnknown(ctx context.Context, operation, email string, stdout []byte) {
	g.logger.Error("unrecognized automation response", map[string]interface{}{
		"operation": operation,
		"stdout":    truncate(string(stdout), 512),
	})

	err := g.notifier.Send(ctx, mail.Message{
		To:       g.itsEmail,
		Subject:  "unknown error occurred at playwright application",
		Template: mail.TemplateReportPlaywrightUnknownError,
		Context:  map[string]interface{}{"email": email},
	})
	if err != nil {
		g.logger.Error("failed to report unrecognized automation response", map[string]interface{}{
			"operation": operation,
			"error":     err,
		})
	}

	if g.alerter == nil {
		return
	}
	if err := g.alerter.PublishAlert(ctx,
		fmt.Sprintf("unrecognized %s response", operation),
		fmt.Sprintf("automation %s returned an unrecognized response for %s", operation, email),
	); err != nil {
		g.logger.Warn("ops alert failed", map[string]interface{}{"error": err})
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
