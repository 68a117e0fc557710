// Package queue carries transcription jobs over Amazon SQS.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/labstack/gommon/log"
)

// SQSAPI is the subset of the SQS client in use.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// TranscriptionMessage points at audio already durable in file storage,
// the bytes themselves never travel through the queue.
type TranscriptionMessage struct {
	NoteID      string `json:"noteId"`
	AudioPath   string `json:"audioPath"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type Message struct {
	Body          TranscriptionMessage
	ReceiptHandle string
}

type Client struct {
	api      SQSAPI
	queueURL string
}

func NewClient(ctx context.Context, region, queueURL string) (*Client, error) {
	if queueURL == "" {
		return nil, fmt.Errorf("sqs queue url is not configured")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewClientWithAPI(sqs.NewFromConfig(cfg), queueURL), nil
}

func NewClientWithAPI(api SQSAPI, queueURL string) *Client {
	return &Client{api: api, queueURL: queueURL}
}

func (c *Client) Publish(ctx context.Context, msg TranscriptionMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_, err = c.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(c.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("send sqs message: %w", err)
	}
	return nil
}

// Receive long-polls for up to maxMessages. Bodies that cannot be decoded
// are removed from the queue, redelivering them would never succeed.
func (c *Client) Receive(ctx context.Context, maxMessages, waitSeconds int32) ([]Message, error) {
	resp, err := c.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: maxMessages,
		WaitTimeSeconds:     waitSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("receive sqs messages: %w", err)
	}

	messages := make([]Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		var body TranscriptionMessage
		if err := json.Unmarshal([]byte(aws.ToString(m.Body)), &body); err != nil || body.NoteID == "" {
			log.Warnf("dropping undecodable sqs message %s: %v", aws.ToString(m.MessageId), err)
			_ = c.Delete(ctx, aws.ToString(m.ReceiptHandle))
			continue
		}

		messages = append(messages, Message{Body: body, ReceiptHandle: aws.ToString(m.ReceiptHandle)})
	}
	return messages, nil
}

func (c *Client) Delete(ctx context.Context, receiptHandle string) error {
	_, err := c.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("delete sqs message: %w", err)
	}
	return nil
}
