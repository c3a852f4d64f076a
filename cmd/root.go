package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/dmitriko/greenhouse/pkg/awsapi"
	"github.com/dmitriko/greenhouse/pkg/config"
	"github.com/dmitriko/greenhouse/pkg/localsrv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var configPath string
var tableName string
var tableRegion string
var tableEndpoint string
var readingType string
var readingValue float64
var readingTS int64
var since string
var bucket string
var objectKey string
var listenAddr string

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "greenhouse",
		Short:         "Manage greenhouse sensor readings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("GREENHOUSE_CONFIG"), "YAML config file")
	cmd.AddCommand(tableRootCmd())
	cmd.AddCommand(readingsRootCmd())
	cmd.AddCommand(serveCmd())
	return cmd
}

func tableRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Manage DynamoDB table",
	}
	cmd.AddCommand(tableCreateCmd())
	return cmd
}

func tableCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create readings table with (type, timestamp) key",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := connect()
			if err != nil {
				return err
			}
			if err = table.Create(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Table %s is created.\n", table.Name)
			return nil
		},
	}
	registerTableFlags(cmd)
	return cmd
}

func readingsRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readings",
		Short: "Store, fetch and export readings",
	}
	cmd.AddCommand(readingsPutCmd())
	cmd.AddCommand(readingsFetchCmd())
	cmd.AddCommand(readingsExportCmd())
	return cmd
}

func readingsPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Store single reading",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts := readingTS
			if ts == 0 {
				ts = time.Now().Unix()
			}
			r, err := awsapi.NewReading(readingType, ts, readingValue, awsapi.SourceOp("cli"))
			if err != nil {
				return err
			}
			table, err := connect()
			if err != nil {
				return err
			}
			if _, err = table.StoreItem(r); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s=%v at %d.\n", r.Type, r.Value, r.Timestamp)
			return nil
		},
	}
	registerTableFlags(cmd)
	cmd.Flags().StringVar(&readingType, "type", "", "Sensor type")
	cmd.Flags().Float64Var(&readingValue, "value", 0, "Reading value")
	cmd.Flags().Int64Var(&readingTS, "ts", 0, "Unix timestamp, default to now")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("value")
	return cmd
}

func readingsFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Print readings newer than --since as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := fetchJSON(cmd.Context())
			if err != nil {
				return err
			}
			var out bytes.Buffer
			if err = json.Indent(&out, data, "", "  "); err != nil {
				return err
			}
			out.WriteByte('\n')
			_, err = out.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
	registerTableFlags(cmd)
	registerSinceFlag(cmd)
	return cmd
}

func readingsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Upload readings newer than --since to S3 as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if bucket == "" {
				return errors.New("--bucket must be set")
			}
			data, err := fetchJSON(cmd.Context())
			if err != nil {
				return err
			}
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			key := objectKey
			if key == "" {
				key = fmt.Sprintf("readings/%s.json", time.Now().UTC().Format("2006-01-02T15-04-05"))
			}
			sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.Region)})
			if err != nil {
				return err
			}
			loc, err := storeS3(sess, bucket, key, bytes.NewReader(data))
			if err != nil {
				return errors.Wrapf(err, "upload s3://%s/%s", bucket, key)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded to %s\n", loc)
			return nil
		},
	}
	registerTableFlags(cmd)
	registerSinceFlag(cmd)
	cmd.Flags().StringVar(&bucket, "bucket", os.Getenv("EXPORT_BUCKET"), "S3 bucket")
	cmd.Flags().StringVar(&objectKey, "key", "", "S3 object key, default to readings/<time>.json")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve readings handler over HTTP for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			if listenAddr != "" {
				cfg.Addr = listenAddr
			}
			table, err := awsapi.DTableFromConfig(cfg)
			if err != nil {
				return err
			}
			return localsrv.New(cfg, awsapi.ReadingsHandler(table)).Serve(cmd.Context())
		},
	}
	registerTableFlags(cmd)
	cmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address, default from config")
	return cmd
}

//Register flags related to DynamoDB, empty values fall back to config
func registerTableFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&tableName, "table-name", "", "DynamoDB table name")
	cmd.Flags().StringVar(&tableRegion, "region", "", "AWS region for dynamo db")
	cmd.Flags().StringVar(&tableEndpoint, "endpoint", "", "Endpoint for DynamoDB")
}

func registerSinceFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&since, "since", "-1d", "Start of range: now, -<n>d, -<n>h, ISO datetime or unix seconds")
}

func resolveConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if tableName != "" {
		cfg.TableName = tableName
	}
	if tableRegion != "" {
		cfg.Region = tableRegion
	}
	if tableEndpoint != "" {
		cfg.Endpoint = tableEndpoint
	}
	return cfg, cfg.Validate()
}

func connect() (*awsapi.DTable, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}
	return awsapi.DTableFromConfig(cfg)
}

func fetchJSON(ctx context.Context) ([]byte, error) {
	start, err := awsapi.StrToTime(since)
	if err != nil {
		return nil, err
	}
	table, err := connect()
	if err != nil {
		return nil, err
	}
	payload, err := awsapi.FetchPayload(ctx, table, start.Unix())
	if err != nil {
		return nil, err
	}
	return json.Marshal(payload)
}

func storeS3(sess *session.Session, bucket, key string, body io.Reader) (string, error) {
	uploader := s3manager.NewUploader(sess)
	out, err := uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", err
	}
	return out.Location, nil
}
