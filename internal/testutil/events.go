package testutil

import (
	"encoding/json"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go/service/sqs"
)

// EncapBySQS encapslates data by events.SQSEvent and returns it.
func EncapBySQS(data ...interface{}) *events.SQSEvent {
	var bodies []string
	for _, d := range data {
		raw, err := json.Marshal(d)
		if err != nil {
			log.Fatalf("Can not marshal: %+v: %v", err, d)
		}
		bodies = append(bodies, string(raw))
	}

	return encap(bodies)
}

// RelaySQS converts sent messages (e.g. captured by SQS mock) to
// events.SQSEvent received by Lambda.
func RelaySQS(inputs []*sqs.SendMessageInput) *events.SQSEvent {
	var bodies []string
	for _, input := range inputs {
		if input.MessageBody != nil {
			bodies = append(bodies, *input.MessageBody)
		}
	}
	return encap(bodies)
}

func encap(bodies []string) *events.SQSEvent {
	ev := &events.SQSEvent{}
	for _, body := range bodies {
		ev.Records = append(ev.Records, events.SQSMessage{Body: body})
	}
	return ev
}
