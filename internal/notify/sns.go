package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

const snsProviderName = "sns"

// snsAPI is the subset of the SNS client used here.
type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher publishes to an Amazon SNS topic ARN.
type SNSPublisher struct {
	api snsAPI
}

// NewSNS creates an SNS publisher from the default AWS credential chain.
// An empty region falls back to the SDK's own resolution (AWS_REGION etc).
func NewSNS(ctx context.Context, region string) (*SNSPublisher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SNSPublisher{api: sns.NewFromConfig(cfg)}, nil
}

func (p *SNSPublisher) Name() string {
	return snsProviderName
}

// Publish sends msg to msg.Topic. The outcome mirrors the SNS response:
// MessageId, SequenceNumber for FIFO topics, and ResponseMetadata.RequestId.
func (p *SNSPublisher) Publish(ctx context.Context, msg Message) (Outcome, error) {
	if msg.Topic == "" {
		return nil, &PublishError{Provider: snsProviderName, Err: errors.New("topic arn is required")}
	}

	in := &sns.PublishInput{
		TopicArn: aws.String(msg.Topic),
		Message:  aws.String(msg.Body),
	}
	// SNS rejects an empty Subject; leave it unset instead.
	if msg.Subject != "" {
		in.Subject = aws.String(msg.Subject)
	}

	out, err := p.api.Publish(ctx, in)
	if err != nil {
		return nil, &PublishError{Provider: snsProviderName, Topic: msg.Topic, Err: err}
	}

	outcome := Outcome{
		"MessageId": aws.ToString(out.MessageId),
	}
	if out.SequenceNumber != nil {
		outcome["SequenceNumber"] = aws.ToString(out.SequenceNumber)
	}
	if requestID, ok := awsmiddleware.GetRequestIDMetadata(out.ResultMetadata); ok {
		outcome["ResponseMetadata"] = map[string]any{"RequestId": requestID}
	}
	return outcome, nil
}
