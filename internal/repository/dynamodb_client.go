package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"text-summarizer/internal/domain"
)

const (
	attrRequestID = "requestID"
	attrInputText = "inputText"
	attrResult    = "result"
	attrCreatedAt = "createdAt"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Client wraps the DynamoDB results table.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

// PutRecord writes a new result record. Request IDs are never reused, so the
// write is conditional on the key being absent.
func (c *Client) PutRecord(ctx context.Context, rec domain.Record) error {
	if strings.TrimSpace(rec.RequestID) == "" {
		return errors.New("repository: PutRecord: request ID is required")
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                recordItem(rec, c.now().UTC()),
		ConditionExpression: aws.String("attribute_not_exists(" + attrRequestID + ")"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("repository: PutRecord: request ID %q already stored: %w", rec.RequestID, err)
		}
		return fmt.Errorf("repository: PutRecord: %w", err)
	}
	return nil
}

func recordItem(rec domain.Record, createdAt time.Time) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrRequestID: &types.AttributeValueMemberS{Value: rec.RequestID},
		attrInputText: &types.AttributeValueMemberS{Value: rec.InputText},
		attrResult:    &types.AttributeValueMemberM{Value: resultAttrs(rec.Result)},
		attrCreatedAt: &types.AttributeValueMemberS{Value: createdAt.Format(time.RFC3339)},
	}
}

func resultAttrs(res domain.Result) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"summary":   &types.AttributeValueMemberS{Value: res.Summary},
		"length":    &types.AttributeValueMemberN{Value: strconv.Itoa(res.Length)},
		"timestamp": &types.AttributeValueMemberS{Value: res.Timestamp},
	}
}
