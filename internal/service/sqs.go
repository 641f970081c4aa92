package service

import (
	"encoding/json"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/m-mizutani/envlake/internal/adaptor"
	"github.com/pkg/errors"
)

// SQSService is accessor to SQS
type SQSService struct {
	newSQS adaptor.SQSClientFactory
}

// NewSQSService is constructor of SQSService
func NewSQSService(newSQS adaptor.SQSClientFactory) *SQSService {
	return &SQSService{
		newSQS: newSQS,
	}
}

// SendSQS is wrapper of sqs:SendMessage with JSON encoding
func (x *SQSService) SendSQS(msg interface{}, region, target string) error {
	client := x.newSQS(region)

	raw, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrapf(err, "Fail to marshal message: %v", msg)
	}

	input := sqs.SendMessageInput{
		QueueUrl:    aws.String(target),
		MessageBody: aws.String(string(raw)),
	}
	resp, err := client.SendMessage(&input)
	if err != nil {
		return errors.Wrapf(err, "Fail to send SQS message: %v", input)
	}

	logger.WithField("resp", resp).Trace("Sent SQS message")

	return nil
}
