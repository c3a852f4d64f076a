package awsapi

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/dmitriko/greenhouse/pkg/config"
	"github.com/pkg/errors"
)

const NO_SUCH_ITEM = "NoSuchItem"

//Provides access to DynamoDB table with sensor readings
type DTable struct {
	db       dynamodbiface.DynamoDBAPI
	Name     string
	Region   string
	Endpoint string
	PKey     string
	SKey     string
}

//DTableConnect option
func Endpoint(endpoint string) func(*DTable) error {
	return func(t *DTable) error {
		t.Endpoint = endpoint
		return nil
	}
}

//DTableConnect option
func Region(region string) func(*DTable) error {
	return func(t *DTable) error {
		t.Region = region
		return nil
	}
}

//DTableConnect option, use given client instead of creating a session
func Client(db dynamodbiface.DynamoDBAPI) func(*DTable) error {
	return func(t *DTable) error {
		if db == nil {
			return errors.New("client is nil")
		}
		t.db = db
		return nil
	}
}

//Connects to DynomoDB table
func DTableConnect(name string, options ...func(*DTable) error) (*DTable, error) {
	t := &DTable{Name: name, PKey: TypeField, SKey: TimestampField, Region: config.DefaultRegion}
	for _, option := range options {
		err := option(t)
		if err != nil {
			return t, err
		}
	}
	if t.Name == "" {
		return t, errors.New("table name is not set")
	}
	if t.db != nil {
		return t, nil
	}
	conf := &aws.Config{Region: aws.String(t.Region)}
	if t.Endpoint != "" {
		conf.Endpoint = aws.String(t.Endpoint)
	}
	sess, err := session.NewSession(conf)
	if err != nil {
		return t, errors.Wrap(err, "aws session")
	}
	t.db = dynamodb.New(sess)
	return t, nil
}

//Connects to table described by cfg, extra options are applied last
func DTableFromConfig(cfg *config.Config, options ...func(*DTable) error) (*DTable, error) {
	opts := []func(*DTable) error{Region(cfg.Region)}
	if cfg.Endpoint != "" {
		opts = append(opts, Endpoint(cfg.Endpoint))
	}
	return DTableConnect(cfg.TableName, append(opts, options...)...)
}

func (t *DTable) Create() error {
	_, err := t.db.CreateTable(createTableInput(t.Name, t.PKey, t.SKey))
	return err
}

type DMapper interface {
	AsDMap() (map[string]*dynamodb.AttributeValue, error)
	LoadFromD(map[string]*dynamodb.AttributeValue) error
	Key() map[string]*dynamodb.AttributeValue
}

// Option to check uniqueness of stored item by checking the hash key
func UniqueOp() func(*dynamodb.PutItemInput) error {
	return func(pii *dynamodb.PutItemInput) error {
		pii.ConditionExpression = aws.String("attribute_not_exists(#pk)")
		pii.ExpressionAttributeNames = map[string]*string{"#pk": aws.String(TypeField)}
		return nil
	}
}

func (t *DTable) StoreItem(item DMapper,
	options ...func(*dynamodb.PutItemInput) error) (*dynamodb.PutItemOutput, error) {
	av, err := item.AsDMap()
	if err != nil {
		return nil, err
	}
	input := &dynamodb.PutItemInput{
		Item:      av,
		TableName: aws.String(t.Name),
	}
	for _, ops := range options {
		err := ops(input)
		if err != nil {
			return nil, err
		}
	}
	return t.db.PutItem(input)
}

func (t *DTable) StoreItems(items ...DMapper) []error {
	var output []error
	for _, item := range items {
		_, err := t.StoreItem(item)
		output = append(output, err)
	}
	return output
}

func (t *DTable) FetchItem(item DMapper) error {
	result, err := t.db.GetItem(&dynamodb.GetItemInput{
		TableName: aws.String(t.Name),
		Key:       item.Key(),
	})
	if err != nil {
		return err
	}
	if len(result.Item) == 0 {
		return errors.New(NO_SUCH_ITEM)
	}
	return item.LoadFromD(result.Item)
}

// QueryRange returns readings of given sensor type with timestamp strictly
// greater than after, ordered by timestamp. Follows LastEvaluatedKey until
// the result set is exhausted.
func (t *DTable) QueryRange(ctx context.Context, sensorType string, after int64) ([]*Reading, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(t.Name),
		KeyConditionExpression: aws.String("#pk = :type AND #sk > :after"),
		ExpressionAttributeNames: map[string]*string{
			"#pk": aws.String(t.PKey),
			"#sk": aws.String(t.SKey),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":type":  {S: aws.String(sensorType)},
			":after": {N: aws.String(strconv.FormatInt(after, 10))},
		},
	}
	var out []*Reading
	for {
		resp, err := t.db.QueryWithContext(ctx, input)
		if err != nil {
			return nil, errors.Wrapf(err, "query %s", sensorType)
		}
		for _, item := range resp.Items {
			r := &Reading{}
			if err := r.LoadFromD(item); err != nil {
				return nil, errors.Wrapf(err, "load %s item", sensorType)
			}
			out = append(out, r)
		}
		if len(resp.LastEvaluatedKey) == 0 {
			return out, nil
		}
		input.ExclusiveStartKey = resp.LastEvaluatedKey
	}
}
