// internal/common/aws/ses.go
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type sesAPI interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

type SESClient struct {
	client sesAPI
}

func NewSESClient(ctx context.Context, creds Credentials) (*SESClient, error) {
	cfg, err := loadConfig(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to load ses config: %w", err)
	}
	return &SESClient{client: ses.NewFromConfig(cfg)}, nil
}

func newSESClientWithAPI(api sesAPI) *SESClient {
	return &SESClient{client: api}
}

// SendRaw hands a complete MIME message to SES. Destinations must list every
// envelope recipient since Bcc addresses are not part of the headers.
func (s *SESClient) SendRaw(ctx context.Context, raw []byte, destinations []string) (string, error) {
	out, err := s.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		RawMessage:   &types.RawMessage{Data: raw},
		Destinations: destinations,
	})
	if err != nil {
		return "", err
	}
	if out.MessageId == nil {
		return "", nil
	}
	return *out.MessageId, nil
}
