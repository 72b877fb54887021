package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/splitledger/internal/balance"
	"github.com/dvloznov/splitledger/internal/domain"
)

const cardPartition = "CARD"

// maxBalanceRetries bounds the compare-and-swap loop in ApplyBalanceDelta.
const maxBalanceRetries = 5

// ErrCardNotFound is returned when no card matches the requested account.
var ErrCardNotFound = errors.New("credit card not found")

// CardRepository stores credit cards in a single DynamoDB partition with
// a per-item version counter. Balance updates are conditional on the
// version read, so concurrent writers never lose a delta.
type CardRepository struct {
	db    *dynamodb.Client
	table string
}

var _ balance.CardStore = (*CardRepository)(nil)

// NewCardRepository creates a repository over the given table.
func NewCardRepository(db *dynamodb.Client, table string) *CardRepository {
	return &CardRepository{db: db, table: table}
}

type cardItem struct {
	PK               string `dynamodbav:"pk"`
	RK               string `dynamodbav:"rk"`
	Name             string `dynamodbav:"Name"`
	AccountNumber    int    `dynamodbav:"AccountNumber"`
	CreditLimit      string `dynamodbav:"CreditLimit"`
	DueDay           int    `dynamodbav:"DueDay"`
	StatementBalance string `dynamodbav:"StatementBalance"`
	CurrentBalance   string `dynamodbav:"CurrentBalance"`
	LastReconciled   string `dynamodbav:"LastReconciled,omitempty"`
	Version          int64  `dynamodbav:"Version"`
}

func cardFromModel(c domain.CreditCard) cardItem {
	item := cardItem{
		PK:               cardPartition,
		RK:               c.ID,
		Name:             c.Name,
		AccountNumber:    c.AccountNumber,
		CreditLimit:      c.CreditLimit.String(),
		DueDay:           c.DueDay,
		StatementBalance: c.StatementBalance.String(),
		CurrentBalance:   c.CurrentBalance.String(),
	}
	if c.LastReconciled != nil {
		item.LastReconciled = c.LastReconciled.String()
	}
	return item
}

func (item *cardItem) toModel() (domain.CreditCard, error) {
	limit, err := decimal.NewFromString(item.CreditLimit)
	if err != nil {
		return domain.CreditCard{}, fmt.Errorf("card %s: bad credit limit %q", item.RK, item.CreditLimit)
	}
	statement, err := decimal.NewFromString(item.StatementBalance)
	if err != nil {
		return domain.CreditCard{}, fmt.Errorf("card %s: bad statement balance %q", item.RK, item.StatementBalance)
	}
	current, err := decimal.NewFromString(item.CurrentBalance)
	if err != nil {
		return domain.CreditCard{}, fmt.Errorf("card %s: bad current balance %q", item.RK, item.CurrentBalance)
	}

	card := domain.CreditCard{
		ID:               item.RK,
		Name:             item.Name,
		AccountNumber:    item.AccountNumber,
		CreditLimit:      limit,
		DueDay:           item.DueDay,
		StatementBalance: statement,
		CurrentBalance:   current,
	}
	if item.LastReconciled != "" {
		d, err := civil.ParseDate(item.LastReconciled)
		if err != nil {
			return domain.CreditCard{}, fmt.Errorf("card %s: bad reconciliation date %q", item.RK, item.LastReconciled)
		}
		card.LastReconciled = &d
	}
	return card, nil
}

// ListCards returns every stored card.
func (r *CardRepository) ListCards(ctx context.Context) ([]domain.CreditCard, error) {
	out, err := r.db.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: cardPartition},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo: list cards: %w", err)
	}

	var items []cardItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("dynamo: list cards: unmarshal: %w", err)
	}

	cards := make([]domain.CreditCard, 0, len(items))
	for _, item := range items {
		card, err := item.toModel()
		if err != nil {
			return nil, fmt.Errorf("dynamo: list cards: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// SaveCard upserts a card configuration, bumping its version.
func (r *CardRepository) SaveCard(ctx context.Context, card domain.CreditCard) error {
	if card.ID == "" {
		return fmt.Errorf("dynamo: save card: ID is required")
	}

	item := cardFromModel(card)
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("dynamo: save card %s: marshal: %w", card.ID, err)
	}

	_, err = r.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: cardPartition},
			"rk": &types.AttributeValueMemberS{Value: card.ID},
		},
		UpdateExpression: aws.String(
			"SET #n = :n, AccountNumber = :an, CreditLimit = :cl, DueDay = :dd, " +
				"StatementBalance = :sb, CurrentBalance = :cb, LastReconciled = :lr " +
				"ADD Version :one"),
		ExpressionAttributeNames: map[string]string{"#n": "Name"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n":   av["Name"],
			":an":  av["AccountNumber"],
			":cl":  av["CreditLimit"],
			":dd":  av["DueDay"],
			":sb":  av["StatementBalance"],
			":cb":  av["CurrentBalance"],
			":lr":  &types.AttributeValueMemberS{Value: item.LastReconciled},
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if err != nil {
		return fmt.Errorf("dynamo: save card %s: %w", card.ID, err)
	}
	return nil
}

// ApplyBalanceDelta adds delta to the current balance of the card owning
// the given account number. The write is conditional on the version read,
// retried a bounded number of times on contention.
func (r *CardRepository) ApplyBalanceDelta(ctx context.Context, accountNumber int, delta decimal.Decimal) error {
	for attempt := 0; attempt < maxBalanceRetries; attempt++ {
		card, version, err := r.findByAccount(ctx, accountNumber)
		if err != nil {
			return err
		}

		next := card.CurrentBalance.Add(delta)
		_, err = r.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName: aws.String(r.table),
			Key: map[string]types.AttributeValue{
				"pk": &types.AttributeValueMemberS{Value: cardPartition},
				"rk": &types.AttributeValueMemberS{Value: card.ID},
			},
			UpdateExpression:    aws.String("SET CurrentBalance = :cb ADD Version :one"),
			ConditionExpression: aws.String("Version = :v"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":cb":  &types.AttributeValueMemberS{Value: next.String()},
				":v":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", version)},
				":one": &types.AttributeValueMemberN{Value: "1"},
			},
		})
		if err == nil {
			return nil
		}

		var conditionFailed *types.ConditionalCheckFailedException
		if !errors.As(err, &conditionFailed) {
			return fmt.Errorf("dynamo: apply balance delta to account %d: %w", accountNumber, err)
		}
		// Lost the race to another writer; re-read and retry.
	}
	return fmt.Errorf("dynamo: apply balance delta to account %d: version conflict after %d attempts",
		accountNumber, maxBalanceRetries)
}

func (r *CardRepository) findByAccount(ctx context.Context, accountNumber int) (domain.CreditCard, int64, error) {
	out, err := r.db.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("pk = :pk"),
		FilterExpression:       aws.String("AccountNumber = :an"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: cardPartition},
			":an": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", accountNumber)},
		},
	})
	if err != nil {
		return domain.CreditCard{}, 0, fmt.Errorf("dynamo: find card by account %d: %w", accountNumber, err)
	}
	if len(out.Items) == 0 {
		return domain.CreditCard{}, 0, fmt.Errorf("dynamo: account %d: %w", accountNumber, ErrCardNotFound)
	}

	var item cardItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return domain.CreditCard{}, 0, fmt.Errorf("dynamo: find card by account %d: unmarshal: %w", accountNumber, err)
	}
	card, err := item.toModel()
	if err != nil {
		return domain.CreditCard{}, 0, fmt.Errorf("dynamo: find card by account %d: %w", accountNumber, err)
	}
	return card, item.Version, nil
}
