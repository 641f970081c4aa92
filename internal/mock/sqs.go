package mock

import (
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/google/uuid"
	"github.com/m-mizutani/envlake/internal/adaptor"
)

// SQSClient is mock of AWS SQS SDK
type SQSClient struct {
	Input  []*sqs.SendMessageInput
	Region string
	mutex  sync.Mutex
}

// NewSQSClient creates mock SQS client
func NewSQSClient() *SQSClient {
	return &SQSClient{}
}

// Factory returns SQSClientFactory always providing the mock
func (x *SQSClient) Factory() adaptor.SQSClientFactory {
	return func(region string) adaptor.SQSClient {
		x.mutex.Lock()
		defer x.mutex.Unlock()
		x.Region = region
		return x
	}
}

// SendMessage of mock just stores SendMessage input
func (x *SQSClient) SendMessage(input *sqs.SendMessageInput) (*sqs.SendMessageOutput, error) {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.Input = append(x.Input, input)
	return &sqs.SendMessageOutput{MessageId: aws.String(uuid.New().String())}, nil
}
