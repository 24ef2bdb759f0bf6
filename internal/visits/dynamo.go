package visits

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore
type DynamoAPI interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// counterItem is one table item. The table's partition key is "key" (string).
type counterItem struct {
	Key   string `dynamodbav:"key"`
	Value int64  `dynamodbav:"value"`
}

// DynamoStore keeps counters in a DynamoDB table
type DynamoStore struct {
	client    DynamoAPI
	tableName string
}

// NewDynamoStore creates a store over an existing client
func NewDynamoStore(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

// OpenDynamo creates a store using the default AWS credential chain. endpoint overrides the
// service endpoint (DynamoDB Local) when set.
func OpenDynamo(ctx context.Context, tableName, region, endpoint string) (*DynamoStore, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewDynamoStore(client, tableName), nil
}

// Incr atomically adds one to key
func (d *DynamoStore) Incr(ctx context.Context, key string) (int64, error) {
	if d.client == nil {
		return 0, fmt.Errorf("DynamoDB client not initialized")
	}

	out, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(d.tableName),
		Key:                      keyAttr(key),
		UpdateExpression:         aws.String("ADD #v :one"),
		ExpressionAttributeNames: map[string]string{"#v": "value"},
		ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
			":one": &dynamodbtypes.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: dynamodbtypes.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("incrementing %s: %w", key, err)
	}

	n, ok := out.Attributes["value"].(*dynamodbtypes.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("incrementing %s: response has no value", key)
	}
	value, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("incrementing %s: %w", key, err)
	}
	return value, nil
}

// Get returns the value of key
func (d *DynamoStore) Get(ctx context.Context, key string) (int64, error) {
	if d.client == nil {
		return 0, fmt.Errorf("DynamoDB client not initialized")
	}

	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key:       keyAttr(key),
	})
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", key, err)
	}
	if out.Item == nil {
		return 0, nil
	}

	var item counterItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return 0, fmt.Errorf("decoding %s: %w", key, err)
	}
	return item.Value, nil
}

// List scans the table for keys under prefix
func (d *DynamoStore) List(ctx context.Context, prefix string) (map[string]int64, error) {
	if d.client == nil {
		return nil, fmt.Errorf("DynamoDB client not initialized")
	}

	out := make(map[string]int64)
	paginator := dynamodb.NewScanPaginator(d.client, &dynamodb.ScanInput{
		TableName:                aws.String(d.tableName),
		FilterExpression:         aws.String("begins_with(#k, :prefix)"),
		ExpressionAttributeNames: map[string]string{"#k": "key"},
		ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
			":prefix": &dynamodbtypes.AttributeValueMemberS{Value: prefix},
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing %s*: %w", prefix, err)
		}

		var items []counterItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("decoding counters: %w", err)
		}
		for _, item := range items {
			out[item.Key] = item.Value
		}
	}
	return out, nil
}

// Close is a no-op; the AWS client holds no resources to release
func (d *DynamoStore) Close() error {
	return nil
}

func keyAttr(key string) map[string]dynamodbtypes.AttributeValue {
	return map[string]dynamodbtypes.AttributeValue{
		"key": &dynamodbtypes.AttributeValueMemberS{Value: key},
	}
}
