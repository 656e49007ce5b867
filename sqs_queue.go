package mqpayload

import (
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
)

// SQSQueue is a Queue backed by Amazon SQS.
type SQSQueue struct {
	*sync.Mutex
	sqsClient sqsiface.SQSAPI
	queueURLs map[string]string
}

// NewSQSQueue returns a Queue sending its requests through client.
func NewSQSQueue(client sqsiface.SQSAPI) *SQSQueue {
	return &SQSQueue{
		Mutex:     new(sync.Mutex),
		sqsClient: client,
		queueURLs: make(map[string]string),
	}
}

// Send implements Queue.
func (conn *SQSQueue) Send(ctx context.Context, queueURL string, message *Message) (string, error) {
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(message.Body),
	}

	if len(message.Attributes) > 0 {
		input.MessageAttributes = toSQSAttributes(message.Attributes)
	}

	output, err := conn.sqsClient.SendMessageWithContext(ctx, input)
	if err != nil {
		return "", transportError("sqs send message", err)
	}

	return aws.StringValue(output.MessageId), nil
}

// Receive implements Queue.
func (conn *SQSQueue) Receive(ctx context.Context, queueURL string, request *ReceiveRequest) ([]*Message, error) {
	input := &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(queueURL),
		MessageAttributeNames: aws.StringSlice(request.AttributeNames),
	}

	if request.MaxMessages > 0 {
		input.MaxNumberOfMessages = aws.Int64(int64(request.MaxMessages))
	}

	if request.WaitTimeSeconds != nil {
		input.WaitTimeSeconds = aws.Int64(int64(*request.WaitTimeSeconds))
	}

	if request.VisibilityTimeout > 0 {
		input.VisibilityTimeout = aws.Int64(int64(request.VisibilityTimeout))
	}

	response, err := conn.sqsClient.ReceiveMessageWithContext(ctx, input)
	if err != nil {
		return nil, transportError("sqs receive message", err)
	}

	messages := make([]*Message, 0, len(response.Messages))
	for _, msg := range response.Messages {
		messages = append(messages, &Message{
			ID:            aws.StringValue(msg.MessageId),
			Body:          aws.StringValue(msg.Body),
			Attributes:    fromSQSAttributes(msg.MessageAttributes),
			ReceiptHandle: aws.StringValue(msg.ReceiptHandle),
		})
	}

	return messages, nil
}

// Delete implements Queue.
func (conn *SQSQueue) Delete(ctx context.Context, queueURL string, receiptHandle string) error {
	_, err := conn.sqsClient.DeleteMessageWithContext(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return transportError("sqs delete message", err)
	}

	return nil
}

// DeleteBatch implements Queue.
func (conn *SQSQueue) DeleteBatch(ctx context.Context, queueURL string, entries []DeleteEntry) (*DeleteBatchResult, error) {
	requestEntries := make([]*sqs.DeleteMessageBatchRequestEntry, 0, len(entries))
	for _, entry := range entries {
		requestEntries = append(requestEntries, &sqs.DeleteMessageBatchRequestEntry{
			Id:            aws.String(entry.ID),
			ReceiptHandle: aws.String(entry.ReceiptHandle),
		})
	}

	output, err := conn.sqsClient.DeleteMessageBatchWithContext(ctx, &sqs.DeleteMessageBatchInput{
		QueueUrl: aws.String(queueURL),
		Entries:  requestEntries,
	})
	if err != nil {
		return nil, transportError("sqs delete message batch", err)
	}

	result := &DeleteBatchResult{
		Successful: make([]string, 0, len(output.Successful)),
	}
	for _, ok := range output.Successful {
		result.Successful = append(result.Successful, aws.StringValue(ok.Id))
	}
	for _, failed := range output.Failed {
		result.Failed = append(result.Failed, BatchFailure{
			ID:          aws.StringValue(failed.Id),
			Code:        aws.StringValue(failed.Code),
			Message:     aws.StringValue(failed.Message),
			SenderFault: aws.BoolValue(failed.SenderFault),
		})
	}

	return result, nil
}

// ResolveURL implements Queue. Resolved urls are cached per name and owner.
func (conn *SQSQueue) ResolveURL(ctx context.Context, name string, ownerID string) (string, error) {
	cacheKey := ownerID + "/" + name

	conn.Lock()
	defer conn.Unlock()

	if queueURL := conn.queueURLs[cacheKey]; queueURL != "" {
		return queueURL, nil
	}

	input := &sqs.GetQueueUrlInput{
		QueueName: aws.String(name),
	}
	if ownerID != "" {
		input.QueueOwnerAWSAccountId = aws.String(ownerID)
	}

	queueURLResult, err := conn.sqsClient.GetQueueUrlWithContext(ctx, input)
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == sqs.ErrCodeQueueDoesNotExist {
			return "", errors.Join(ErrQueueNotFound, err)
		}
		return "", transportError("sqs get queue url", err)
	}

	queueURL := aws.StringValue(queueURLResult.QueueUrl)
	conn.queueURLs[cacheKey] = queueURL

	return queueURL, nil
}

func toSQSAttributes(attributes map[string]Attribute) map[string]*sqs.MessageAttributeValue {
	out := make(map[string]*sqs.MessageAttributeValue, len(attributes))
	for name, value := range attributes {
		attr := &sqs.MessageAttributeValue{
			DataType: aws.String(value.DataType),
		}
		if value.StringValue != "" {
			attr.StringValue = aws.String(value.StringValue)
		}
		if value.BinaryValue != nil {
			attr.BinaryValue = value.BinaryValue
		}
		out[name] = attr
	}

	return out
}

func fromSQSAttributes(attributes map[string]*sqs.MessageAttributeValue) map[string]Attribute {
	out := make(map[string]Attribute, len(attributes))
	for name, value := range attributes {
		if value == nil {
			continue
		}
		out[name] = Attribute{
			DataType:    aws.StringValue(value.DataType),
			StringValue: aws.StringValue(value.StringValue),
			BinaryValue: value.BinaryValue,
		}
	}

	return out
}
