package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"github.com/fpang/brand-feed/internal/engagement"
	"github.com/fpang/brand-feed/internal/recommend"
)

// DynamoDB key constants for the single-table design.
const (
	pkCatalog  = "CATALOG"
	pkUser     = "USER#"
	skBrand    = "BRAND#"
	skSave     = "SAVE#"
	skLike     = "LIKE#"
	skScore    = "SCORE#"
	attrPK     = "PK"
	attrSK     = "SK"
	attrExpiry = "expiresAt"

	// maxBatchWrite is the DynamoDB BatchWriteItem limit per call.
	maxBatchWrite = 25
	// batchWriteRetries is how many times UnprocessedItems are resubmitted.
	batchWriteRetries = 2
)

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoStore implements FeedStore on a single DynamoDB table.
type DynamoStore struct {
	client    DynamoAPI
	tableName string
	now       func() time.Time
}

// Compile-time interface check.
var _ FeedStore = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table.
func NewDynamoStore(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName, now: time.Now}
}

type catalogItem struct {
	Brand    string `dynamodbav:"brand"`
	Position int    `dynamodbav:"position"`
}

type markItem struct {
	ID      string `dynamodbav:"id"`
	Created int64  `dynamodbav:"createdAt"`
}

type scoreItem struct {
	Brand string `dynamodbav:"brand"`
	engagement.Score
}

func userPK(userID string) string {
	return pkUser + userID
}

func key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: pk},
		attrSK: &types.AttributeValueMemberS{Value: sk},
	}
}

// --- Internal helpers ---

// marshalItem marshals data and adds PK, SK and, when ttl is positive, the
// expiresAt attribute.
func (s *DynamoStore) marshalItem(pk, sk string, data interface{}, ttl time.Duration) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	item[attrPK] = &types.AttributeValueMemberS{Value: pk}
	item[attrSK] = &types.AttributeValueMemberS{Value: sk}
	if ttl > 0 {
		item[attrExpiry] = &types.AttributeValueMemberN{Value: strconv.FormatInt(s.now().Add(ttl).Unix(), 10)}
	}
	return item, nil
}

func (s *DynamoStore) putItem(ctx context.Context, pk, sk string, data interface{}) error {
	item, err := s.marshalItem(pk, sk, data, 0)
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem PK=%s SK=%s: %w", pk, sk, err)
	}
	return nil
}

func (s *DynamoStore) deleteItem(ctx context.Context, pk, sk string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.tableName,
		Key:       key(pk, sk),
	})
	if err != nil {
		return fmt.Errorf("DeleteItem PK=%s SK=%s: %w", pk, sk, err)
	}
	return nil
}

// queryBySKPrefix returns every item under pk whose SK begins with skPrefix,
// following pagination.
func (s *DynamoStore) queryBySKPrefix(ctx context.Context, pk, skPrefix string) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :skPrefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":       &types.AttributeValueMemberS{Value: pk},
			":skPrefix": &types.AttributeValueMemberS{Value: skPrefix},
		},
	}

	var all []map[string]types.AttributeValue
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("Query PK=%s SK prefix=%s: %w", pk, skPrefix, err)
		}
		all = append(all, result.Items...)
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return all, nil
}

// batchWrite sends requests in chunks of maxBatchWrite.
func (s *DynamoStore) batchWrite(ctx context.Context, requests []types.WriteRequest) error {
	for i := 0; i < len(requests); i += maxBatchWrite {
		end := i + maxBatchWrite
		if end > len(requests) {
			end = len(requests)
		}
		pending := requests[i:end]
		for attempt := 0; attempt <= batchWriteRetries && len(pending) > 0; attempt++ {
			out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{s.tableName: pending},
			})
			if err != nil {
				return fmt.Errorf("BatchWriteItem (%d items): %w", len(pending), err)
			}
			pending = out.UnprocessedItems[s.tableName]
		}
		// Catalog and score writes are rewritten wholesale on the next call.
		if len(pending) > 0 {
			log.Warn().
				Str("table", s.tableName).
				Int("unprocessed", len(pending)).
				Msg("BatchWriteItem left unprocessed items")
		}
	}
	return nil
}

// ids extracts the part of each item's SK after prefix.
func ids(items []map[string]types.AttributeValue, prefix string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		sk, ok := item[attrSK].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		out = append(out, strings.TrimPrefix(sk.Value, prefix))
	}
	sort.Strings(out)
	return out
}

// --- Catalog ---

func (s *DynamoStore) Catalog(ctx context.Context) ([]string, error) {
	items, err := s.queryBySKPrefix(ctx, pkCatalog, skBrand)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	var entries []catalogItem
	if err := attributevalue.UnmarshalListOfMaps(items, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Position < entries[j].Position })

	brands := make([]string, 0, len(entries))
	for _, e := range entries {
		brands = append(brands, e.Brand)
	}
	log.Debug().Int("brands", len(brands)).Msg("Catalog loaded from DynamoDB")
	return brands, nil
}

// PutCatalog replaces the catalog with brands in the given order. Empty and
// repeated IDs are dropped; the first occurrence keeps its position.
func (s *DynamoStore) PutCatalog(ctx context.Context, brands []string) error {
	existing, err := s.queryBySKPrefix(ctx, pkCatalog, skBrand)
	if err != nil {
		return fmt.Errorf("put catalog: %w", err)
	}
	brands = recommend.Dedupe(brands)
	keep := make(map[string]struct{}, len(brands))
	var requests []types.WriteRequest
	for i, b := range brands {
		keep[skBrand+b] = struct{}{}
		item, err := s.marshalItem(pkCatalog, skBrand+b, catalogItem{Brand: b, Position: i}, 0)
		if err != nil {
			return fmt.Errorf("put catalog: %w", err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}
	for _, sk := range ids(existing, "") {
		if _, ok := keep[sk]; !ok {
			requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key(pkCatalog, sk)}})
		}
	}
	if err := s.batchWrite(ctx, requests); err != nil {
		return fmt.Errorf("put catalog: %w", err)
	}
	log.Info().Int("brands", len(brands)).Msg("Catalog written to DynamoDB")
	return nil
}

// --- Saves and likes ---

func (s *DynamoStore) mark(ctx context.Context, userID, prefix, id string) error {
	return s.putItem(ctx, userPK(userID), prefix+id, markItem{ID: id, Created: s.now().Unix()})
}

func (s *DynamoStore) SaveBrand(ctx context.Context, userID, brand string) error {
	if err := s.mark(ctx, userID, skSave, brand); err != nil {
		return fmt.Errorf("save brand %s for %s: %w", brand, userID, err)
	}
	log.Debug().Str("userId", userID).Str("brand", brand).Msg("Brand saved")
	return nil
}

func (s *DynamoStore) UnsaveBrand(ctx context.Context, userID, brand string) error {
	if err := s.deleteItem(ctx, userPK(userID), skSave+brand); err != nil {
		return fmt.Errorf("unsave brand %s for %s: %w", brand, userID, err)
	}
	return nil
}

func (s *DynamoStore) SavedBrands(ctx context.Context, userID string) ([]string, error) {
	items, err := s.queryBySKPrefix(ctx, userPK(userID), skSave)
	if err != nil {
		return nil, fmt.Errorf("saved brands for %s: %w", userID, err)
	}
	return ids(items, skSave), nil
}

func (s *DynamoStore) LikeProduct(ctx context.Context, userID, product string) error {
	if err := s.mark(ctx, userID, skLike, product); err != nil {
		return fmt.Errorf("like product %s for %s: %w", product, userID, err)
	}
	return nil
}

func (s *DynamoStore) UnlikeProduct(ctx context.Context, userID, product string) error {
	if err := s.deleteItem(ctx, userPK(userID), skLike+product); err != nil {
		return fmt.Errorf("unlike product %s for %s: %w", product, userID, err)
	}
	return nil
}

func (s *DynamoStore) LikedProducts(ctx context.Context, userID string) ([]string, error) {
	items, err := s.queryBySKPrefix(ctx, userPK(userID), skLike)
	if err != nil {
		return nil, fmt.Errorf("liked products for %s: %w", userID, err)
	}
	return ids(items, skLike), nil
}

// --- Engagement scores ---

func (s *DynamoStore) LoadScores(ctx context.Context, userID string) (map[string]engagement.Score, error) {
	items, err := s.queryBySKPrefix(ctx, userPK(userID), skScore)
	if err != nil {
		return nil, fmt.Errorf("load scores for %s: %w", userID, err)
	}
	var records []scoreItem
	if err := attributevalue.UnmarshalListOfMaps(items, &records); err != nil {
		return nil, fmt.Errorf("unmarshal scores for %s: %w", userID, err)
	}
	out := make(map[string]engagement.Score, len(records))
	for _, r := range records {
		out[r.Brand] = r.Score
	}
	return out, nil
}

// PutScores upserts one record per brand with a fresh TTL.
func (s *DynamoStore) PutScores(ctx context.Context, userID string, scores map[string]engagement.Score) error {
	brands := make([]string, 0, len(scores))
	for b := range scores {
		brands = append(brands, b)
	}
	sort.Strings(brands)

	requests := make([]types.WriteRequest, 0, len(brands))
	for _, b := range brands {
		item, err := s.marshalItem(userPK(userID), skScore+b, scoreItem{Brand: b, Score: scores[b]}, ScoreTTL)
		if err != nil {
			return fmt.Errorf("put scores for %s: %w", userID, err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}
	if err := s.batchWrite(ctx, requests); err != nil {
		return fmt.Errorf("put scores for %s: %w", userID, err)
	}
	log.Debug().Str("userId", userID).Int("brands", len(brands)).Msg("Engagement scores persisted")
	return nil
}
