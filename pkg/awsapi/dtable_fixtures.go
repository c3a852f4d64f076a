package awsapi

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
)

func createTableInput(name, pkey, skey string) *dynamodb.CreateTableInput {
	return &dynamodb.CreateTableInput{
		TableName:   aws.String(name),
		BillingMode: aws.String("PAY_PER_REQUEST"),
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String(pkey),
				AttributeType: aws.String("S"),
			},
			{
				AttributeName: aws.String(skey),
				AttributeType: aws.String("N"),
			},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String(pkey),
				KeyType:       aws.String("HASH"),
			},
			{
				AttributeName: aws.String(skey),
				KeyType:       aws.String("RANGE"),
			},
		},
	}
}
