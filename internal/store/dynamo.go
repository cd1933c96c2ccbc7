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
)

// DynamoDB key constants for the single-table design.
const (
	pkPrefix = "USER#"
	skPrefix = "ENTRY#"
)

// stageAttrs maps an enrichment stage name to the document attribute and
// its completion-timestamp attribute.
var stageAttrs = map[string][2]string{
	"quick_criteria":    {"quickCriteria", "quickCriteriaAt"},
	"enhanced_metadata": {"enhancedMetadata", "enhancedMetadataAt"},
	"enhanced_facts":    {"enhancedFacts", "enhancedFactsAt"},
}

// DynamoStore implements EntryStore using AWS DynamoDB.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
}

// Compile-time interface check.
var _ EntryStore = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table.
// The client should be initialized from the shared AWS config.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
	}
}

// --- Internal helpers ---

func userPK(userID string) string {
	return pkPrefix + userID
}

func entrySK(entryID string) string {
	return skPrefix + entryID
}

func entryKey(userID, entryID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
		"SK": &types.AttributeValueMemberS{Value: entrySK(entryID)},
	}
}

// --- Entry operations ---

func (s *DynamoStore) PutEntry(ctx context.Context, entry *MealEntry) error {
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().Unix()
	}

	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return fmt.Errorf("marshal entry %s: %w", entry.EntryID, err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: userPK(entry.UserID)}
	item["SK"] = &types.AttributeValueMemberS{Value: entrySK(entry.EntryID)}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put entry %s/%s: %w", entry.UserID, entry.EntryID, err)
	}

	log.Debug().Str("userId", entry.UserID).Str("entryId", entry.EntryID).Msg("Meal entry persisted to DynamoDB")
	return nil
}

func (s *DynamoStore) GetEntry(ctx context.Context, userID, entryID string) (*MealEntry, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key:       entryKey(userID, entryID),
	})
	if err != nil {
		return nil, fmt.Errorf("get entry %s/%s: %w", userID, entryID, err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var entry MealEntry
	if err := attributevalue.UnmarshalMap(result.Item, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal entry %s/%s: %w", userID, entryID, err)
	}
	entry.UserID = userID
	entry.EntryID = entryID
	return &entry, nil
}

func (s *DynamoStore) UpdateEntryStage(ctx context.Context, userID, entryID, stage string, doc any) error {
	attrs, ok := stageAttrs[stage]
	if !ok {
		return fmt.Errorf("unknown enrichment stage %q", stage)
	}

	docAV, err := attributevalue.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s document: %w", stage, err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              entryKey(userID, entryID),
		UpdateExpression: aws.String("SET #doc = :doc, #at = :at"),
		ExpressionAttributeNames: map[string]string{
			"#doc": attrs[0],
			"#at":  attrs[1],
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":doc": docAV,
			":at":  &types.AttributeValueMemberN{Value: strconv.FormatInt(time.Now().Unix(), 10)},
		},
		// The entry must already exist. Without this guard a stage
		// completing after the user deletes the entry would resurrect
		// it as a partial item.
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("update entry %s/%s stage %s: %w", userID, entryID, stage, err)
	}

	log.Debug().Str("userId", userID).Str("entryId", entryID).Str("stage", stage).Msg("Enrichment stage persisted")
	return nil
}

func (s *DynamoStore) UpdatePhotoURL(ctx context.Context, userID, entryID, photoURL string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              entryKey(userID, entryID),
		UpdateExpression: aws.String("SET photoUrl = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: photoURL},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("update entry %s/%s photo URL: %w", userID, entryID, err)
	}
	return nil
}

func (s *DynamoStore) DeleteEntry(ctx context.Context, userID, entryID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.tableName,
		Key:       entryKey(userID, entryID),
	})
	if err != nil {
		return fmt.Errorf("delete entry %s/%s: %w", userID, entryID, err)
	}

	log.Debug().Str("userId", userID).Str("entryId", entryID).Msg("Meal entry deleted")
	return nil
}

func (s *DynamoStore) ListEntriesByUser(ctx context.Context, userID string) ([]*MealEntry, error) {
	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: userPK(userID)},
			":sk": &types.AttributeValueMemberS{Value: skPrefix},
		},
	}

	var entries []*MealEntry

	// Handle pagination — DynamoDB returns up to 1MB per Query call.
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query entries for %s: %w", userID, err)
		}
		for _, item := range result.Items {
			var entry MealEntry
			if err := attributevalue.UnmarshalMap(item, &entry); err != nil {
				return nil, fmt.Errorf("unmarshal entry for %s: %w", userID, err)
			}
			entry.UserID = userID
			if sk, ok := item["SK"].(*types.AttributeValueMemberS); ok {
				entry.EntryID = strings.TrimPrefix(sk.Value, skPrefix)
			}
			entries = append(entries, &entry)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	// Entry IDs are random, so SK order is not chronological.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt > entries[j].CreatedAt
	})
	return entries, nil
}
