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

	"github.com/jijunnie/jijunnie-portfolio-sub000/internal/domain"
)

const (
	pkPrefixSettings = "SETTINGS#"
	skProfile        = "PROFILE#"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Client stores settings records in a single DynamoDB table.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

func settingsPK(clientID string) string {
	return pkPrefixSettings + clientID
}

func itemKey(clientID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: settingsPK(clientID)},
		"SK": &types.AttributeValueMemberS{Value: skProfile},
	}
}

// Get returns the stored record for clientID; found is false when none exists.
func (c *Client) Get(ctx context.Context, clientID string) (domain.SettingsRecord, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            itemKey(clientID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.SettingsRecord{}, false, fmt.Errorf("repository: Get: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.SettingsRecord{}, false, nil
	}

	rec, err := itemToRecord(out.Item)
	if err != nil {
		return domain.SettingsRecord{}, false, fmt.Errorf("repository: Get unmarshal: %w", err)
	}
	rec.ClientID = clientID
	return rec, true, nil
}

// Put writes rec if the stored revision still equals expectedRevision. A
// revision of 0 matches a missing item or one written before revisions were
// stored.
func (c *Client) Put(ctx context.Context, rec domain.SettingsRecord, expectedRevision int64) error {
	if strings.TrimSpace(rec.ClientID) == "" {
		return errors.New("repository: Put: client ID is required")
	}

	in := &dynamodb.PutItemInput{
		TableName:                aws.String(c.tableName),
		Item:                     recordItem(rec),
		ExpressionAttributeNames: map[string]string{"#rev": "revision"},
	}
	if expectedRevision == 0 {
		in.ConditionExpression = aws.String("attribute_not_exists(PK) OR attribute_not_exists(#rev)")
	} else {
		in.ConditionExpression = aws.String("#rev = :expected")
		in.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expectedRevision, 10)},
		}
	}

	if _, err := c.api.PutItem(ctx, in); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("repository: Put: %w", domain.ErrRevisionConflict)
		}
		return fmt.Errorf("repository: Put: %w", err)
	}
	return nil
}

func recordItem(rec domain.SettingsRecord) map[string]types.AttributeValue {
	item := itemKey(rec.ClientID)
	item["clientId"] = &types.AttributeValueMemberS{Value: rec.ClientID}
	item["doc"] = &types.AttributeValueMemberS{Value: string(rec.Doc)}
	item["schemaVersion"] = &types.AttributeValueMemberN{Value: strconv.Itoa(rec.SchemaVersion)}
	item["revision"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.Revision, 10)}
	item["updatedAt"] = &types.AttributeValueMemberS{Value: rec.UpdatedAt.UTC().Format(time.RFC3339Nano)}
	return item
}

// itemToRecord converts a DynamoDB attribute map to a SettingsRecord.
// Items written before versioning have no schemaVersion and decode as 0.
func itemToRecord(item map[string]types.AttributeValue) (domain.SettingsRecord, error) {
	doc, err := strAttr(item, "doc")
	if err != nil {
		return domain.SettingsRecord{}, err
	}

	var rec domain.SettingsRecord
	rec.Doc = []byte(doc)
	if _, ok := item["schemaVersion"]; ok {
		v, err := intAttr(item, "schemaVersion")
		if err != nil {
			return domain.SettingsRecord{}, err
		}
		rec.SchemaVersion = int(v)
	}
	if _, ok := item["revision"]; ok {
		rec.Revision, err = intAttr(item, "revision")
		if err != nil {
			return domain.SettingsRecord{}, err
		}
	}
	if ts, err := strAttr(item, "updatedAt"); err == nil {
		if parsed, perr := time.Parse(time.RFC3339Nano, ts); perr == nil {
			rec.UpdatedAt = parsed
		}
	}
	return rec, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
