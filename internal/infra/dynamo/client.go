// Package dynamo implements the storage collaborators on DynamoDB.
//
// Partitioned record tables use a composite key: partition key "pk" and
// sort key "rk". Batch submissions map to TransactWriteItems, which gives
// the same all-or-nothing guarantee and the same 100-operation ceiling as
// the table store contract requires.
package dynamo

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// NewClient builds a DynamoDB client from the default AWS configuration
// chain (environment, shared config, instance role).
func NewClient(ctx context.Context) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("dynamo: load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}
