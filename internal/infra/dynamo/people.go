package dynamo

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dvloznov/splitledger/internal/domain"
)

const personPartition = "PERSON"

// PeopleRepository stores group member registrations keyed by email.
// Only registration data persists; transactions are attached in memory
// during aggregation.
type PeopleRepository struct {
	db    *dynamodb.Client
	table string
}

// NewPeopleRepository creates a repository over the given table.
func NewPeopleRepository(db *dynamodb.Client, table string) *PeopleRepository {
	return &PeopleRepository{db: db, table: table}
}

type personItem struct {
	PK             string `dynamodbav:"pk"`
	RK             string `dynamodbav:"rk"`
	Name           string `dynamodbav:"Name"`
	AccountNumbers []int  `dynamodbav:"AccountNumbers"`
}

// SavePerson upserts a person registration. Attached transactions are
// never persisted.
func (r *PeopleRepository) SavePerson(ctx context.Context, p domain.Person) error {
	if p.Email == "" {
		return fmt.Errorf("dynamo: save person: email is required")
	}

	av, err := attributevalue.MarshalMap(personItem{
		PK:             personPartition,
		RK:             p.Email,
		Name:           p.Name,
		AccountNumbers: p.AccountNumbers,
	})
	if err != nil {
		return fmt.Errorf("dynamo: save person %s: marshal: %w", p.Email, err)
	}

	_, err = r.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("dynamo: save person %s: %w", p.Email, err)
	}
	return nil
}

// ListPeople returns all registered people ordered by email.
func (r *PeopleRepository) ListPeople(ctx context.Context) ([]*domain.Person, error) {
	out, err := r.db.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: personPartition},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo: list people: %w", err)
	}

	var items []personItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("dynamo: list people: unmarshal: %w", err)
	}

	people := make([]*domain.Person, 0, len(items))
	for _, item := range items {
		people = append(people, &domain.Person{
			Name:           item.Name,
			Email:          item.RK,
			AccountNumbers: item.AccountNumbers,
		})
	}
	sort.Slice(people, func(i, j int) bool { return people[i].Email < people[j].Email })
	return people, nil
}
