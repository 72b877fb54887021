package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dvloznov/splitledger/internal/ledger"
)

// TableStore is the DynamoDB implementation of ledger.TableStore. The
// table name passed to each call is the DynamoDB table; the partition
// argument becomes the "pk" attribute and row keys become "rk".
type TableStore struct {
	db *dynamodb.Client
}

var _ ledger.TableStore = (*TableStore)(nil)

// NewTableStore wraps a DynamoDB client as a table store.
func NewTableStore(db *dynamodb.Client) *TableStore {
	return &TableStore{db: db}
}

// QueryKeys returns the row keys present in a partition.
func (s *TableStore) QueryKeys(ctx context.Context, table, partition string) ([]string, error) {
	var keys []string
	var lastKey map[string]types.AttributeValue

	for {
		out, err := s.db.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(table),
			KeyConditionExpression: aws.String("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: partition},
			},
			ProjectionExpression: aws.String("rk"),
			ExclusiveStartKey:    lastKey,
		})
		if err != nil {
			return nil, fmt.Errorf("dynamo: query keys %s/%s: %w", table, partition, err)
		}
		for _, item := range out.Items {
			if rk, ok := item["rk"].(*types.AttributeValueMemberS); ok {
				keys = append(keys, rk.Value)
			}
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		lastKey = out.LastEvaluatedKey
	}
	return keys, nil
}

// QueryRows returns all rows of a partition with their fields.
func (s *TableStore) QueryRows(ctx context.Context, table, partition string) ([]ledger.Row, error) {
	var rows []ledger.Row
	var lastKey map[string]types.AttributeValue

	for {
		out, err := s.db.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(table),
			KeyConditionExpression: aws.String("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: partition},
			},
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, fmt.Errorf("dynamo: query rows %s/%s: %w", table, partition, err)
		}
		for _, item := range out.Items {
			row, err := rowFromItem(item)
			if err != nil {
				return nil, fmt.Errorf("dynamo: query rows %s/%s: %w", table, partition, err)
			}
			rows = append(rows, row)
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		lastKey = out.LastEvaluatedKey
	}
	return rows, nil
}

// Submit applies up to ledger.MaxBatchOps operations as one
// TransactWriteItems call. A create against an existing row key cancels
// the whole transaction and surfaces as ledger.ErrRowExists.
func (s *TableStore) Submit(ctx context.Context, table, partition string, ops []ledger.Op) error {
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > ledger.MaxBatchOps {
		return fmt.Errorf("dynamo: submit: %d ops exceeds limit of %d", len(ops), ledger.MaxBatchOps)
	}

	items := make([]types.TransactWriteItem, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case ledger.OpUpsert, ledger.OpCreate:
			item, err := itemFromFields(partition, op.RowKey, op.Fields)
			if err != nil {
				return fmt.Errorf("dynamo: submit: marshal row %s: %w", op.RowKey, err)
			}
			put := &types.Put{
				TableName: aws.String(table),
				Item:      item,
			}
			if op.Kind == ledger.OpCreate {
				put.ConditionExpression = aws.String("attribute_not_exists(rk)")
			}
			items = append(items, types.TransactWriteItem{Put: put})
		case ledger.OpDelete:
			items = append(items, types.TransactWriteItem{Delete: &types.Delete{
				TableName: aws.String(table),
				Key: map[string]types.AttributeValue{
					"pk": &types.AttributeValueMemberS{Value: partition},
					"rk": &types.AttributeValueMemberS{Value: op.RowKey},
				},
			}})
		default:
			return fmt.Errorf("dynamo: submit: unknown op kind %q", op.Kind)
		}
	}

	_, err := s.db.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) && hasConditionalFailure(canceled) {
			return fmt.Errorf("dynamo: submit %s/%s: %w", table, partition, ledger.ErrRowExists)
		}
		return fmt.Errorf("dynamo: submit %s/%s: %w", table, partition, err)
	}
	return nil
}

func hasConditionalFailure(canceled *types.TransactionCanceledException) bool {
	for _, reason := range canceled.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

func itemFromFields(partition, rowKey string, fields map[string]any) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(fields)
	if err != nil {
		return nil, err
	}
	item["pk"] = &types.AttributeValueMemberS{Value: partition}
	item["rk"] = &types.AttributeValueMemberS{Value: rowKey}
	return item, nil
}

func rowFromItem(item map[string]types.AttributeValue) (ledger.Row, error) {
	rk, ok := item["rk"].(*types.AttributeValueMemberS)
	if !ok {
		return ledger.Row{}, fmt.Errorf("item missing rk attribute")
	}

	fields := make(map[string]any, len(item))
	if err := attributevalue.UnmarshalMap(item, &fields); err != nil {
		return ledger.Row{}, fmt.Errorf("unmarshal row %s: %w", rk.Value, err)
	}
	delete(fields, "pk")
	delete(fields, "rk")

	return ledger.Row{RowKey: rk.Value, Fields: fields}, nil
}
