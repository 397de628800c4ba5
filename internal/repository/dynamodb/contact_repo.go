package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"meetuphere/internal/domain"
)

const (
	DefaultTable   = "phonenums"
	DefaultHashKey = "fid"

	phoneAttr     = "phone"
	updatedAtAttr = "updated_at"
)

// dynamoAPI is the subset of *dynamodb.Client used here.
type dynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type contactRepository struct {
	client  dynamoAPI
	table   string
	hashKey string
}

// NewContactRepository returns a domain.ContactRepository backed by a DynamoDB
// table keyed on the owner id, storing the number in the "phone" attribute.
func NewContactRepository(cfg aws.Config, table, hashKey string) domain.ContactRepository {
	return newContactRepository(dynamodb.NewFromConfig(cfg), table, hashKey)
}

func newContactRepository(client dynamoAPI, table, hashKey string) *contactRepository {
	if table == "" {
		table = DefaultTable
	}
	if hashKey == "" {
		hashKey = DefaultHashKey
	}
	return &contactRepository{client: client, table: table, hashKey: hashKey}
}

func (r *contactRepository) GetByOwnerID(ctx context.Context, ownerID string) (*domain.ContactRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			r.hashKey: &types.AttributeValueMemberS{Value: ownerID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item from %s: %w", r.table, err)
	}
	if len(out.Item) == 0 {
		return nil, domain.ErrContactNotFound
	}
	phone, ok := stringAttr(out.Item, phoneAttr)
	if !ok {
		return nil, domain.ErrContactNotFound
	}
	c := &domain.ContactRecord{OwnerID: ownerID, PhoneNumber: phone}
	if ts, ok := stringAttr(out.Item, updatedAtAttr); ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			c.UpdatedAt = t
		}
	}
	return c, nil
}

func (r *contactRepository) Save(ctx context.Context, c *domain.ContactRecord) error {
	item := map[string]types.AttributeValue{
		r.hashKey: &types.AttributeValueMemberS{Value: c.OwnerID},
		phoneAttr: &types.AttributeValueMemberS{Value: c.PhoneNumber},
	}
	if !c.UpdatedAt.IsZero() {
		item[updatedAtAttr] = &types.AttributeValueMemberS{Value: c.UpdatedAt.UTC().Format(time.RFC3339)}
	}
	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put item into %s: %w", r.table, err)
	}
	return nil
}

// stringAttr reads a string attribute; numbers are accepted since older
// records may have stored the phone as N.
func stringAttr(item map[string]types.AttributeValue, name string) (string, bool) {
	switch v := item[name].(type) {
	case *types.AttributeValueMemberS:
		return v.Value, v.Value != ""
	case *types.AttributeValueMemberN:
		return v.Value, v.Value != ""
	default:
		return "", false
	}
}
