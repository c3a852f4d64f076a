package awsapi

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/pkg/errors"
)

const (
	TypeField      = "type"
	TimestampField = "timestamp"
	ValueField     = "value"
	SourceField    = "src"
)

// Sensor types in the order they are queried.
var SensorTypes = []string{
	"temperature",
	"humidity",
	"illuminance",
	"pressure",
	"uva",
	"uvb",
	"uvIndex",
}

func IsSensorType(s string) bool {
	for _, st := range SensorTypes {
		if st == s {
			return true
		}
	}
	return false
}

//Single sensor measurement, keyed by (Type, Timestamp) in the table
type Reading struct {
	Type      string
	Timestamp int64
	Value     float64
	Source    string
}

//Option for new reading
func SourceOp(src string) func(*Reading) error {
	return func(r *Reading) error {
		r.Source = src
		return nil
	}
}

//Factory method for Reading
func NewReading(sensorType string, ts int64, value float64, options ...func(*Reading) error) (*Reading, error) {
	if !IsSensorType(sensorType) {
		return nil, fmt.Errorf("unknown sensor type %q, expected one of %s",
			sensorType, strings.Join(SensorTypes, ", "))
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("value %v is not a finite number", value)
	}
	r := &Reading{Type: sensorType, Timestamp: ts, Value: value}
	for _, opt := range options {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Reading) Key() map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		TypeField:      {S: aws.String(r.Type)},
		TimestampField: {N: aws.String(strconv.FormatInt(r.Timestamp, 10))},
	}
}

func (r *Reading) AsDMap() (map[string]*dynamodb.AttributeValue, error) {
	item := map[string]interface{}{
		TypeField:      r.Type,
		TimestampField: r.Timestamp,
		ValueField:     r.Value,
	}
	if r.Source != "" {
		item[SourceField] = r.Source
	}
	return dynamodbattribute.MarshalMap(item)
}

// Numbers come back from the table as float64. Value may also be stored as
// a numeric string, timestamp is truncated to whole seconds.
func (r *Reading) LoadFromD(av map[string]*dynamodb.AttributeValue) error {
	item := map[string]interface{}{}
	err := dynamodbattribute.UnmarshalMap(av, &item)
	if err != nil {
		return err
	}
	st, ok := item[TypeField].(string)
	if !ok {
		return errors.New("reading has no type")
	}
	ts, ok := item[TimestampField].(float64)
	if !ok {
		return errors.Errorf("%s reading has no numeric timestamp", st)
	}
	var value float64
	switch v := item[ValueField].(type) {
	case float64:
		value = v
	case string:
		value, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(err, "%s reading at %d", st, int64(ts))
		}
	default:
		return errors.Errorf("%s reading at %d has no value", st, int64(ts))
	}
	r.Type = st
	r.Timestamp = int64(math.Trunc(ts))
	r.Value = value
	r.Source, _ = item[SourceField].(string)
	return nil
}
