package awsapi

import (
	"os"
	"os/exec"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/stretchr/testify/require"
)

const containerName = "greenhousetest"

// Creates container with local DynamodDB, create table.
// Runs only with DYNAMO_LOCAL=1 and docker available.
func startLocalDynamo(t *testing.T) *DTable {
	if os.Getenv("DYNAMO_LOCAL") != "1" {
		t.Skip("DYNAMO_LOCAL is not set")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker is not available")
	}
	cmd := exec.Command("docker", "run", "--rm", "-d", "--name", containerName,
		"-p", "8000:8000", "amazon/dynamodb-local:latest")
	err := cmd.Run()
	if err != nil {
		t.Fatal(err)
	}
	table, err := DTableConnect("GreenhouseTest", Endpoint("http://127.0.0.1:8000"), Region("us-west-2"))
	if err != nil {
		stopLocalDynamo()
		t.Fatal(err)
	}
	err = table.Create()
	if err != nil {
		stopLocalDynamo()
		t.Fatal(err)
	}
	return table
}

func stopLocalDynamo() {
	cmd := exec.Command("docker", "kill", containerName)
	cmd.Run()
}

// In memory stand-in for DynamoDB. Items are kept per sensor type in
// insertion order, Query ignores the range condition.
type fakeDB struct {
	dynamodbiface.DynamoDBAPI
	items    map[string][]map[string]*dynamodb.AttributeValue
	pageSize int
	failType string
	queries  []dynamodb.QueryInput
}

func newFakeDB(pageSize int) *fakeDB {
	return &fakeDB{items: map[string][]map[string]*dynamodb.AttributeValue{}, pageSize: pageSize}
}

func fakeTable(t *testing.T, db *fakeDB) *DTable {
	table, err := DTableConnect("greenhouse", Client(db))
	require.NoError(t, err)
	return table
}

func (f *fakeDB) add(t *testing.T, readings ...*Reading) {
	for _, r := range readings {
		av, err := r.AsDMap()
		require.NoError(t, err)
		f.items[r.Type] = append(f.items[r.Type], av)
	}
}

func (f *fakeDB) find(typ, ts string) int {
	for i, it := range f.items[typ] {
		if aws.StringValue(it[TimestampField].N) == ts {
			return i
		}
	}
	return -1
}

func (f *fakeDB) QueryWithContext(
	ctx aws.Context, in *dynamodb.QueryInput, _ ...request.Option) (*dynamodb.QueryOutput, error) {
	f.queries = append(f.queries, *in)
	typ := aws.StringValue(in.ExpressionAttributeValues[":type"].S)
	if typ == f.failType {
		return nil, awserr.New("ProvisionedThroughputExceededException", "slow down", nil)
	}
	items := f.items[typ]
	start := 0
	if in.ExclusiveStartKey != nil {
		start = f.find(typ, aws.StringValue(in.ExclusiveStartKey[TimestampField].N)) + 1
	}
	end := len(items)
	out := &dynamodb.QueryOutput{}
	if f.pageSize > 0 && start+f.pageSize < end {
		end = start + f.pageSize
		last := items[end-1]
		out.LastEvaluatedKey = map[string]*dynamodb.AttributeValue{
			TypeField:      last[TypeField],
			TimestampField: last[TimestampField],
		}
	}
	out.Items = items[start:end]
	out.Count = aws.Int64(int64(end - start))
	return out, nil
}

func (f *fakeDB) PutItem(in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
	typ := aws.StringValue(in.Item[TypeField].S)
	i := f.find(typ, aws.StringValue(in.Item[TimestampField].N))
	if i >= 0 {
		if in.ConditionExpression != nil {
			return nil, awserr.New(dynamodb.ErrCodeConditionalCheckFailedException,
				"The conditional request failed", nil)
		}
		f.items[typ][i] = in.Item
		return &dynamodb.PutItemOutput{}, nil
	}
	f.items[typ] = append(f.items[typ], in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDB) GetItem(in *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
	typ := aws.StringValue(in.Key[TypeField].S)
	i := f.find(typ, aws.StringValue(in.Key[TimestampField].N))
	if i < 0 {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: f.items[typ][i]}, nil
}

func mustReading(t *testing.T, typ string, ts int64, value float64) *Reading {
	r, err := NewReading(typ, ts, value)
	require.NoError(t, err)
	return r
}
