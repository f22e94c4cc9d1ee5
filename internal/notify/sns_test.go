package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	smithymiddleware "github.com/aws/smithy-go/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	calls []*sns.PublishInput
	out   *sns.PublishOutput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

const testTopic = "arn:aws:sns:us-east-1:123456789012:restock"

func TestSNS_Publish(t *testing.T) {
	var md smithymiddleware.Metadata
	awsmiddleware.SetRequestIDMetadata(&md, "req-123")
	api := &fakeSNS{out: &sns.PublishOutput{MessageId: aws.String("msg-1"), ResultMetadata: md}}
	p := &SNSPublisher{api: api}

	outcome, err := p.Publish(context.Background(), Message{
		Topic:   testTopic,
		Subject: "Restock alert",
		Body:    "Big SALE today!",
	})
	require.NoError(t, err)

	require.Len(t, api.calls, 1)
	in := api.calls[0]
	assert.Equal(t, testTopic, aws.ToString(in.TopicArn))
	assert.Equal(t, "Big SALE today!", aws.ToString(in.Message))
	assert.Equal(t, "Restock alert", aws.ToString(in.Subject))

	assert.Equal(t, Outcome{
		"MessageId":        "msg-1",
		"ResponseMetadata": map[string]any{"RequestId": "req-123"},
	}, outcome)
}

func TestSNS_PublishFIFOSequence(t *testing.T) {
	api := &fakeSNS{out: &sns.PublishOutput{MessageId: aws.String("msg-2"), SequenceNumber: aws.String("1000")}}
	p := &SNSPublisher{api: api}

	outcome, err := p.Publish(context.Background(), Message{Topic: testTopic + ".fifo", Body: "x"})
	require.NoError(t, err)
	assert.Equal(t, "1000", outcome["SequenceNumber"])
	assert.Nil(t, api.calls[0].Subject, "empty subject should be omitted")
}

func TestSNS_PublishError(t *testing.T) {
	boom := errors.New("AuthorizationError: not allowed")
	p := &SNSPublisher{api: &fakeSNS{err: boom}}

	_, err := p.Publish(context.Background(), Message{Topic: testTopic, Subject: "s", Body: "b"})

	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Equal(t, "sns", pubErr.Provider)
	assert.Equal(t, testTopic, pubErr.Topic)
	assert.ErrorIs(t, err, boom)
}

func TestSNS_PublishRequiresTopic(t *testing.T) {
	api := &fakeSNS{}
	p := &SNSPublisher{api: api}

	_, err := p.Publish(context.Background(), Message{Body: "b"})

	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Empty(t, api.calls)
}

func TestSNS_Name(t *testing.T) {
	assert.Equal(t, "sns", (&SNSPublisher{}).Name())
}
