package main

import (
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/dmitriko/greenhouse/pkg/awsapi"
	"github.com/dmitriko/greenhouse/pkg/config"
)

var table *awsapi.DTable

func init() {
	cfg, err := config.FromEnv()
	if err != nil {
		panic(err)
	}
	table, err = awsapi.DTableFromConfig(cfg)
	if err != nil {
		panic("Could not connect to Dynamo")
	}
	log.Printf("cold start, table %s in %s", table.Name, table.Region)
}

func main() {
	lambda.Start(awsapi.ReadingsHandler(table))
}
