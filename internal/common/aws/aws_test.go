package aws

import (
	"context"
	"errors"
	"strings"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	input *ses.SendRawEmailInput
	err   error
}

func (f *fakeSES) SendRawEmail(_ context.Context, params *ses.SendRawEmailInput, _ ...func(*ses.Options)) (*ses.SendRawEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendRawEmailOutput{MessageId: awssdk.String("msg-1")}, nil
}

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	return &sns.PublishOutput{}, f.err
}

func TestSESClient_SendRaw(t *testing.T) {
	api := &fakeSES{}
	id, err := newSESClientWithAPI(api).SendRaw(context.Background(), []byte("Subject: hi\r\n\r\nbody"), []string{"to@example.com", "bcc@example.com"})

	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, []byte("Subject: hi\r\n\r\nbody"), api.input.RawMessage.Data)
	assert.Equal(t, []string{"to@example.com", "bcc@example.com"}, api.input.Destinations)
}

func TestSESClient_SendRawError(t *testing.T) {
	_, err := newSESClientWithAPI(&fakeSES{err: errors.New("throttled")}).SendRaw(context.Background(), nil, nil)
	assert.EqualError(t, err, "throttled")
}

func TestSNSClient_PublishAlertTruncatesSubject(t *testing.T) {
	api := &fakeSNS{}
	client := newSNSClientWithAPI(api, "arn:aws:sns:ap-northeast-1:123:ops")

	require.NoError(t, client.PublishAlert(context.Background(), strings.Repeat("a", 150), "details"))
	assert.Len(t, *api.input.Subject, maxSubjectLength)
	assert.Equal(t, "arn:aws:sns:ap-northeast-1:123:ops", *api.input.TopicArn)
	assert.Equal(t, "details", *api.input.Message)
}

func TestSNSClient_PublishAlertError(t *testing.T) {
	client := newSNSClientWithAPI(&fakeSNS{err: errors.New("denied")}, "arn")
	err := client.PublishAlert(context.Background(), "s", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}
