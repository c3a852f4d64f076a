package awsapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/pkg/errors"
)

// Readings older than this are not returned
const Lookback = 24 * time.Hour

func LookbackStart(now time.Time) int64 {
	return now.Unix() - int64(Lookback/time.Second)
}

// Builds JSON body with readings for the last 24 hours
func ReadingsBody(ctx context.Context, table *DTable, now time.Time) (string, error) {
	payload, err := FetchPayload(ctx, table, LookbackStart(now))
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "marshal payload")
	}
	return string(data), nil
}

// Handles API Gateway request for recent readings, request content is ignored.
// Any failure is returned to the runtime, there is no partial result.
func HandleReadingsReq(ctx context.Context, table *DTable, now time.Time) (
	events.APIGatewayProxyResponse, error) {
	resp := events.APIGatewayProxyResponse{
		StatusCode: http.StatusInternalServerError,
	}
	body, err := ReadingsBody(ctx, table, now)
	if err != nil {
		log.Println("ERROR fetching readings:", err)
		return resp, err
	}
	resp = events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
	return resp, nil
}

type ProxyHandler func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

func ReadingsHandler(table *DTable) ProxyHandler {
	return func(ctx context.Context, _ events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return HandleReadingsReq(ctx, table, time.Now())
	}
}
