package fulfillment

import (
	"context"

	"fulfillment-workers/internal/common/automation"
	"fulfillment-workers/internal/common/mail"
	"fulfillment-workers/internal/common/salesforce"
	"fulfillment-workers/internal/models"
)

type ApplicationLoader interface {
	Load(ctx context.Context, applicationID int64) (*models.Application, error)
}

type StatusStore interface {
	SetUtilityStatus(ctx context.Context, applicationID int64, status models.UtilityStatus) error
	SetWifiStatus(ctx context.Context, applicationID int64, status models.WifiStatus) error
}

type Notifier interface {
	Send(ctx context.Context, msg mail.Message) error
}

type FormAutomation interface {
	SendTermsAgreement(ctx context.Context, email string) (automation.Result, error)
	SubmitForm(ctx context.Context, params automation.FormParams) (automation.Result, error)
}

type LeadGateway interface {
	CreateLead(ctx context.Context, lead salesforce.LeadRecord) (string, error)
	UpdateLead(ctx context.Context, leadID string, visa salesforce.LeadVisa) error
}

type FileTransfer interface {
	UploadResidenceCardFront(ctx context.Context, key, leadID string) (string, error)
	UploadResidenceCardBack(ctx context.Context, key, leadID string) (string, error)
}
