package dynamo

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/splitledger/internal/domain"
)

// AccountRepository stores synced external accounts per owning user.
// Accounts are reference data pushed by the browser extension; an upsert
// with the same ID replaces the previous snapshot.
type AccountRepository struct {
	db    *dynamodb.Client
	table string
}

// NewAccountRepository creates a repository over the given table.
func NewAccountRepository(db *dynamodb.Client, table string) *AccountRepository {
	return &AccountRepository{db: db, table: table}
}

type accountItem struct {
	PK             string `dynamodbav:"pk"`
	RK             string `dynamodbav:"rk"`
	Name           string `dynamodbav:"Name,omitempty"`
	Mask           string `dynamodbav:"Mask,omitempty"`
	Institution    string `dynamodbav:"Institution,omitempty"`
	CurrentBalance string `dynamodbav:"CurrentBalance"`
	CreditLimit    string `dynamodbav:"CreditLimit"`
	Type           string `dynamodbav:"Type,omitempty"`
}

func accountPartition(user string) string {
	return "ACCOUNT#" + user
}

// UpsertAccounts replaces the stored snapshot of each account for the user.
func (r *AccountRepository) UpsertAccounts(ctx context.Context, user string, accounts []domain.Account) error {
	if user == "" {
		return fmt.Errorf("dynamo: upsert accounts: user is required")
	}
	for _, a := range accounts {
		if a.ID == "" {
			return fmt.Errorf("dynamo: upsert accounts: account ID is required")
		}
		av, err := attributevalue.MarshalMap(accountItem{
			PK:             accountPartition(user),
			RK:             a.ID,
			Name:           a.Name,
			Mask:           a.Mask,
			Institution:    a.Institution,
			CurrentBalance: a.CurrentBalance.String(),
			CreditLimit:    a.CreditLimit.String(),
			Type:           a.Type,
		})
		if err != nil {
			return fmt.Errorf("dynamo: upsert account %s: marshal: %w", a.ID, err)
		}
		if _, err := r.db.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(r.table),
			Item:      av,
		}); err != nil {
			return fmt.Errorf("dynamo: upsert account %s: %w", a.ID, err)
		}
	}
	return nil
}

// ListAccounts returns the user's synced accounts ordered by ID.
func (r *AccountRepository) ListAccounts(ctx context.Context, user string) ([]domain.Account, error) {
	out, err := r.db.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: accountPartition(user)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo: list accounts: %w", err)
	}

	var items []accountItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("dynamo: list accounts: unmarshal: %w", err)
	}

	accounts := make([]domain.Account, 0, len(items))
	for _, item := range items {
		balance, err := decimal.NewFromString(item.CurrentBalance)
		if err != nil {
			return nil, fmt.Errorf("dynamo: list accounts: account %s: bad balance %q", item.RK, item.CurrentBalance)
		}
		limit, err := decimal.NewFromString(item.CreditLimit)
		if err != nil {
			return nil, fmt.Errorf("dynamo: list accounts: account %s: bad credit limit %q", item.RK, item.CreditLimit)
		}
		accounts = append(accounts, domain.Account{
			ID:             item.RK,
			Name:           item.Name,
			Mask:           item.Mask,
			Institution:    item.Institution,
			CurrentBalance: balance,
			CreditLimit:    limit,
			Type:           item.Type,
		})
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}
