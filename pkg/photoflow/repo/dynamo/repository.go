package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/galleri/photoflow/pkg/photoflow"
)

// Single-table key layout. All photo records share one partition; the sort
// key carries the photo id.
const (
	partitionKey  = "PHOTOS"
	sortKeyPrefix = "PHOTO#"
	gsi1Partition = "PHOTO"
)

const batchWriteLimit = 25

// Client is the subset of the DynamoDB API the repository uses. Satisfied by
// *dynamodb.Client.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Repository implements photoflow.RecordStore on DynamoDB.
//
// The table's TTL attribute is expireAt. It serves both record lifecycles:
// the pending-upload TTL while a record is uploading, and the purge TTL
// after a soft delete. Because DynamoDB removes expired items lazily, reads
// also treat a past expireAt as absent.
type Repository struct {
	client Client
	table  string
	now    func() time.Time
}

// Option represents a functional option for configuring the repository
type Option func(*Repository)

// WithClock overrides the time source used for TTL visibility
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// New creates a DynamoDB-backed record store
func New(client Client, table string, options ...Option) (*Repository, error) {
	if client == nil {
		return nil, errors.New("dynamodb client is required")
	}
	if table == "" {
		return nil, errors.New("table name is required")
	}

	r := &Repository{
		client: client,
		table:  table,
		now:    time.Now,
	}
	for _, option := range options {
		option(r)
	}
	return r, nil
}

// recordItem is the persisted shape of a photo record. Attribute names match
// the table's existing data, so they stay camelCase.
type recordItem struct {
	PK               string            `dynamodbav:"pk"`
	SK               string            `dynamodbav:"sk"`
	GSI1PK           string            `dynamodbav:"gsi1pk"`
	GSI1SK           string            `dynamodbav:"gsi1sk"`
	PhotoID          string            `dynamodbav:"photoId"`
	OriginalFilename string            `dynamodbav:"originalFilename"`
	Size             int64             `dynamodbav:"size"`
	ContentType      string            `dynamodbav:"contentType"`
	Status           string            `dynamodbav:"photoStatus"`
	StorageKey       string            `dynamodbav:"s3Key"`
	CreatedAt        string            `dynamodbav:"createdAt"`
	ExpireAt         int64             `dynamodbav:"expireAt,omitempty"`
	DeletedAt        string            `dynamodbav:"deletedAt,omitempty"`
	Metadata         *metadataItem     `dynamodbav:"metadata,omitempty"`
	Width            int               `dynamodbav:"width,omitempty"`
	Height           int               `dynamodbav:"height,omitempty"`
	AspectRatio      float64           `dynamodbav:"aspectRatio,omitempty"`
	URLs             map[string]string `dynamodbav:"urls,omitempty"`
}

type metadataItem struct {
	Format      string `dynamodbav:"format"`
	Width       int    `dynamodbav:"width"`
	Height      int    `dynamodbav:"height"`
	Channels    int    `dynamodbav:"channels"`
	Space       string `dynamodbav:"space"`
	Orientation int    `dynamodbav:"orientation"`
	HasAlpha    bool   `dynamodbav:"hasAlpha"`
	HasProfile  bool   `dynamodbav:"hasProfile"`
}

func sortKey(photoID string) string {
	return sortKeyPrefix + photoID
}

func recordKey(photoID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: partitionKey},
		"sk": &types.AttributeValueMemberS{Value: sortKey(photoID)},
	}
}

func (r *Repository) CreateRecord(ctx context.Context, record *photoflow.PhotoRecord) error {
	item := toItem(record)

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

func (r *Repository) GetRecord(ctx context.Context, photoID string) (*photoflow.PhotoRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       recordKey(photoID),
	})
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, photoflow.ErrRecordNotFound
	}

	var item recordItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}

	// DynamoDB deletes expired items lazily; an expired item that is still
	// physically present must stay invisible.
	if r.itemExpired(&item) {
		return nil, photoflow.ErrRecordNotFound
	}

	return fromItem(&item), nil
}

func (r *Repository) ListRecords(ctx context.Context) ([]*photoflow.PhotoRecord, error) {
	var records []*photoflow.PhotoRecord
	var startKey map[string]types.AttributeValue

	// Query caps responses at 1 MB; follow LastEvaluatedKey until the
	// partition is exhausted.
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.table),
			KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :skPrefix)"),
			FilterExpression:       aws.String("photoStatus = :status"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":       &types.AttributeValueMemberS{Value: partitionKey},
				":skPrefix": &types.AttributeValueMemberS{Value: sortKeyPrefix},
				":status":   &types.AttributeValueMemberS{Value: string(photoflow.PhotoStatusComplete)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("query records: %w", err)
		}

		for _, raw := range out.Items {
			var item recordItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("unmarshal record: %w", err)
			}
			if r.itemExpired(&item) || item.DeletedAt != "" {
				continue
			}
			records = append(records, fromItem(&item))
		}

		if len(out.LastEvaluatedKey) == 0 {
			return records, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (r *Repository) FinalizeRecord(ctx context.Context, photoID string, fin photoflow.RecordFinalization) error {
	metadata, err := attributevalue.Marshal(&metadataItem{
		Format:      fin.Metadata.Format,
		Width:       fin.Metadata.Width,
		Height:      fin.Metadata.Height,
		Channels:    fin.Metadata.Channels,
		Space:       fin.Metadata.Space,
		Orientation: fin.Metadata.Orientation,
		HasAlpha:    fin.Metadata.HasAlpha,
		HasProfile:  fin.Metadata.HasProfile,
	})
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	urls, err := attributevalue.Marshal(fin.URLs)
	if err != nil {
		return fmt.Errorf("marshal urls: %w", err)
	}

	// Single atomic update: completion fields set and TTL removed together.
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.table),
		Key:       recordKey(photoID),
		UpdateExpression: aws.String(
			"SET #photoStatus = :status, #metadata = :metadata, #urls = :urls, " +
				"#aspectRatio = :aspectRatio, #width = :width, #height = :height " +
				"REMOVE #expireAt"),
		ConditionExpression: aws.String("attribute_exists(pk)"),
		ExpressionAttributeNames: map[string]string{
			"#photoStatus": "photoStatus",
			"#metadata":    "metadata",
			"#urls":        "urls",
			"#aspectRatio": "aspectRatio",
			"#width":       "width",
			"#height":      "height",
			"#expireAt":    "expireAt",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":      &types.AttributeValueMemberS{Value: string(photoflow.PhotoStatusComplete)},
			":metadata":    metadata,
			":urls":        urls,
			":aspectRatio": &types.AttributeValueMemberN{Value: fmt.Sprintf("%g", fin.AspectRatio)},
			":width":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", fin.Width)},
			":height":      &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", fin.Height)},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return photoflow.ErrRecordNotFound
		}
		return fmt.Errorf("finalize record: %w", err)
	}
	return nil
}

func (r *Repository) SoftDeleteRecord(ctx context.Context, photoID string, purgeAt time.Time) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table),
		Key:                 recordKey(photoID),
		UpdateExpression:    aws.String("SET deletedAt = :deletedAt, expireAt = :purgeAt"),
		ConditionExpression: aws.String("attribute_exists(pk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":deletedAt": &types.AttributeValueMemberS{Value: r.now().UTC().Format(time.RFC3339)},
			":purgeAt":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", purgeAt.Unix())},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return photoflow.ErrRecordNotFound
		}
		return fmt.Errorf("soft delete record: %w", err)
	}
	return nil
}

// BatchDeleteRecords issues one BatchWriteItem per chunk of 25 and collects
// the ids DynamoDB reports back as unprocessed.
func (r *Repository) BatchDeleteRecords(ctx context.Context, photoIDs []string) ([]string, error) {
	var unprocessed []string

	for start := 0; start < len(photoIDs); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(photoIDs) {
			end = len(photoIDs)
		}
		chunk := photoIDs[start:end]

		requests := make([]types.WriteRequest, 0, len(chunk))
		for _, id := range chunk {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: recordKey(id)},
			})
		}

		out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				r.table: requests,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("batch delete records: %w", err)
		}

		for _, request := range out.UnprocessedItems[r.table] {
			if request.DeleteRequest == nil {
				continue
			}
			sk, ok := request.DeleteRequest.Key["sk"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			if id := strings.TrimPrefix(sk.Value, sortKeyPrefix); id != "" {
				unprocessed = append(unprocessed, id)
			}
		}
	}

	return unprocessed, nil
}

func (r *Repository) itemExpired(item *recordItem) bool {
	return item.ExpireAt != 0 && item.ExpireAt <= r.now().Unix()
}

func toItem(record *photoflow.PhotoRecord) *recordItem {
	item := &recordItem{
		PK:               partitionKey,
		SK:               sortKey(record.PhotoID),
		GSI1PK:           gsi1Partition,
		GSI1SK:           record.CreatedAt.UTC().Format(time.RFC3339),
		PhotoID:          record.PhotoID,
		OriginalFilename: record.OriginalFilename,
		Size:             record.Size,
		ContentType:      record.ContentType,
		Status:           string(record.Status),
		StorageKey:       record.StorageKey,
		CreatedAt:        record.CreatedAt.UTC().Format(time.RFC3339),
		Width:            record.Width,
		Height:           record.Height,
		AspectRatio:      record.AspectRatio,
		URLs:             record.URLs,
	}

	// The purge TTL wins over the pending TTL when both are set.
	if record.ExpireAt != nil {
		item.ExpireAt = record.ExpireAt.Unix()
	}
	if record.PurgeAt != nil {
		item.ExpireAt = record.PurgeAt.Unix()
	}
	if record.DeletedAt != nil {
		item.DeletedAt = record.DeletedAt.UTC().Format(time.RFC3339)
	}
	if record.Metadata != nil {
		item.Metadata = &metadataItem{
			Format:      record.Metadata.Format,
			Width:       record.Metadata.Width,
			Height:      record.Metadata.Height,
			Channels:    record.Metadata.Channels,
			Space:       record.Metadata.Space,
			Orientation: record.Metadata.Orientation,
			HasAlpha:    record.Metadata.HasAlpha,
			HasProfile:  record.Metadata.HasProfile,
		}
	}
	return item
}

func fromItem(item *recordItem) *photoflow.PhotoRecord {
	record := &photoflow.PhotoRecord{
		PhotoID:          item.PhotoID,
		OriginalFilename: item.OriginalFilename,
		Size:             item.Size,
		ContentType:      item.ContentType,
		Status:           photoflow.PhotoStatus(item.Status),
		StorageKey:       item.StorageKey,
		Width:            item.Width,
		Height:           item.Height,
		AspectRatio:      item.AspectRatio,
		URLs:             item.URLs,
	}

	if t, err := time.Parse(time.RFC3339, item.CreatedAt); err == nil {
		record.CreatedAt = t
	}
	if item.DeletedAt != "" {
		if t, err := time.Parse(time.RFC3339, item.DeletedAt); err == nil {
			record.DeletedAt = &t
		}
	}
	if item.ExpireAt != 0 {
		t := time.Unix(item.ExpireAt, 0).UTC()
		if item.DeletedAt != "" {
			record.PurgeAt = &t
		} else {
			record.ExpireAt = &t
		}
	}
	if item.Metadata != nil {
		record.Metadata = &photoflow.ImageMetadata{
			Format:      item.Metadata.Format,
			Width:       item.Metadata.Width,
			Height:      item.Metadata.Height,
			Channels:    item.Metadata.Channels,
			Space:       item.Metadata.Space,
			Orientation: item.Metadata.Orientation,
			HasAlpha:    item.Metadata.HasAlpha,
			HasProfile:  item.Metadata.HasProfile,
		}
	}
	return record
}
