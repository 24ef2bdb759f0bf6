package visits

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo implements the counter subset of DynamoDB over a map. Scan returns one item
// per page to exercise pagination.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]int64
	fail  error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]int64)}
}

func keyOf(key map[string]dynamodbtypes.AttributeValue) string {
	return key["key"].(*dynamodbtypes.AttributeValueMemberS).Value
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	if aws.ToString(in.UpdateExpression) != "ADD #v :one" {
		return nil, errors.New("unexpected update expression")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := keyOf(in.Key)
	f.items[k]++
	return &dynamodb.UpdateItemOutput{Attributes: map[string]dynamodbtypes.AttributeValue{
		"value": &dynamodbtypes.AttributeValueMemberN{Value: strconv.FormatInt(f.items[k], 10)},
	}}, nil
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := keyOf(in.Key)
	v, ok := f.items[k]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item(k, v)}, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := in.ExpressionAttributeValues[":prefix"].(*dynamodbtypes.AttributeValueMemberS).Value
	var keys []string
	for k := range f.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		last := keyOf(in.ExclusiveStartKey)
		for i, k := range keys {
			if k == last {
				start = i + 1
			}
		}
	}
	out := &dynamodb.ScanOutput{}
	if start < len(keys) {
		k := keys[start]
		out.Items = []map[string]dynamodbtypes.AttributeValue{item(k, f.items[k])}
		if start+1 < len(keys) {
			out.LastEvaluatedKey = map[string]dynamodbtypes.AttributeValue{
				"key": &dynamodbtypes.AttributeValueMemberS{Value: k},
			}
		}
	}
	return out, nil
}

func item(k string, v int64) map[string]dynamodbtypes.AttributeValue {
	return map[string]dynamodbtypes.AttributeValue{
		"key":   &dynamodbtypes.AttributeValueMemberS{Value: k},
		"value": &dynamodbtypes.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)},
	}
}

func TestDynamoStore(t *testing.T) {
	storeContract(t, NewDynamoStore(newFakeDynamo(), "agenda-visits"))
}

func TestDynamoStore_ListPaginates(t *testing.T) {
	fake := newFakeDynamo()
	s := NewDynamoStore(fake, "agenda-visits")
	ctx := context.Background()
	for _, p := range []string{"a", "b", "c"} {
		if _, err := s.Incr(ctx, TrackPrefix+p); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.List(ctx, TrackPrefix)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("List() = %v, want 3 counters across pages", list)
	}
}

func TestDynamoStore_Errors(t *testing.T) {
	fake := newFakeDynamo()
	fake.fail = errors.New("throttled")
	s := NewDynamoStore(fake, "agenda-visits")
	ctx := context.Background()

	if _, err := s.Incr(ctx, "visits:a"); err == nil || !strings.Contains(err.Error(), "throttled") {
		t.Errorf("Incr() error = %v", err)
	}
	if _, err := s.Get(ctx, "visits:a"); err == nil {
		t.Error("Get() expected error")
	}
	if _, err := s.List(ctx, TrackPrefix); err == nil {
		t.Error("List() expected error")
	}

	if _, err := NewDynamoStore(nil, "t").Incr(ctx, "k"); err == nil {
		t.Error("Incr() without client expected error")
	}
}
