package manifest

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoClient is the subset of *dynamodb.Client used by DynamoCommitter.
type DynamoClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Ensure *dynamodb.Client implements DynamoClient.
var _ DynamoClient = (*dynamodb.Client)(nil)

// DynamoCommitter publishes manifests with DynamoDB conditional writes,
// giving object stores without compare-and-swap safe concurrent commits.
//
// Table schema:
//   - Partition key: index_uri (string), e.g. "s3://bucket/prefix"
//   - Sort key: generation (number)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name geoprefix-commits \
//	  --attribute-definitions AttributeName=index_uri,AttributeType=S AttributeName=generation,AttributeType=N \
//	  --key-schema AttributeName=index_uri,KeyType=HASH AttributeName=generation,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DynamoCommitter struct {
	client   DynamoClient
	table    string
	indexURI string
}

// Ensure DynamoCommitter implements Committer.
var _ Committer = (*DynamoCommitter)(nil)

// NewDynamoCommitter creates a committer writing to table under indexURI.
func NewDynamoCommitter(client DynamoClient, table, indexURI string) *DynamoCommitter {
	return &DynamoCommitter{
		client:   client,
		table:    table,
		indexURI: indexURI,
	}
}

// Current implements Committer.
func (c *DynamoCommitter) Current(ctx context.Context) (uint64, string, error) {
	resp, err := c.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		KeyConditionExpression: aws.String("index_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: c.indexURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
		ConsistentRead:   aws.Bool(true),
	})
	if err != nil {
		return 0, "", fmt.Errorf("manifest: query %s: %w", c.table, err)
	}
	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	genAttr, ok := item["generation"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("manifest: invalid generation attribute")
	}
	nameAttr, ok := item["manifest"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("manifest: invalid manifest attribute")
	}
	gen, err := strconv.ParseUint(genAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("manifest: parse generation: %w", err)
	}
	return gen, nameAttr.Value, nil
}

// Commit implements Committer.
func (c *DynamoCommitter) Commit(ctx context.Context, gen uint64, name string) error {
	cur, _, err := c.Current(ctx)
	if err != nil {
		return err
	}
	if cur+1 != gen {
		return fmt.Errorf("%w: generation %d, current %d", ErrConcurrentModification, gen, cur)
	}

	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item: map[string]types.AttributeValue{
			"index_uri":  &types.AttributeValueMemberS{Value: c.indexURI},
			"generation": &types.AttributeValueMemberN{Value: strconv.FormatUint(gen, 10)},
			"manifest":   &types.AttributeValueMemberS{Value: name},
		},
		ConditionExpression: aws.String("attribute_not_exists(generation)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%w: generation %d", ErrConcurrentModification, gen)
		}
		return fmt.Errorf("manifest: commit generation %d: %w", gen, err)
	}
	return nil
}
