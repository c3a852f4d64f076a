package main

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/dmitriko/greenhouse/pkg/awsapi"
	"github.com/dmitriko/greenhouse/pkg/config"
	"github.com/docopt/docopt-go"
	"github.com/segmentio/ksuid"
)

const usage = `Greenhouse readings seeder

Writes synthetic readings for every sensor type, handy with local DynamoDB.

Usage:
  ghseed [--config=<file>] [--table=<table>] [--region=<region>] [--endpoint=<url>] [--hours=<n>] [--step=<sec>]
  ghseed -h | --help

Options:
  -h --help           Show this screen.
  --config=<file>     YAML config file
  --table=<table>     DynamoDB table name, default to $TABLE_NAME or greenhouse
  --region=<region>   DynamoDB region, default to $DYNAMO_REGION
  --endpoint=<url>    DynamoDB endpoint for local testing, default to $DYNAMO_ENDPOINT
  --hours=<n>         How many hours back to seed [default: 24]
  --step=<sec>        Seconds between readings [default: 600]
`

func main() {
	args, err := docopt.ParseDoc(usage)
	if err != nil {
		log.Fatal(err)
	}
	if err = seed(args); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Done.")
}

func configFromArgs(args docopt.Opts) (*config.Config, error) {
	path, _ := args["--config"].(string)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if v, _ := args["--table"].(string); v != "" {
		cfg.TableName = v
	}
	if v, _ := args["--region"].(string); v != "" {
		cfg.Region = v
	}
	if v, _ := args["--endpoint"].(string); v != "" {
		cfg.Endpoint = v
	}
	return cfg, cfg.Validate()
}

func seed(args docopt.Opts) error {
	hours, err := args.Int("--hours")
	if err != nil {
		return err
	}
	step, err := args.Int("--step")
	if err != nil {
		return err
	}
	cfg, err := configFromArgs(args)
	if err != nil {
		return err
	}
	table, err := awsapi.DTableFromConfig(cfg)
	if err != nil {
		return err
	}
	src := "seed#" + ksuid.New().String()
	readings, err := synthReadings(time.Now(), hours, step, src)
	if err != nil {
		return err
	}
	fmt.Printf("Seeding %d readings into %s as %s\n", len(readings), table.Name, src)
	failed := 0
	for _, r := range readings {
		if _, err := table.StoreItem(r); err != nil {
			log.Printf("ERROR storing %s at %d: %s", r.Type, r.Timestamp, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d readings were not stored", failed, len(readings))
	}
	return nil
}

type profile struct {
	base, amplitude float64
}

var profiles = map[string]profile{
	"temperature": {20, 6},
	"humidity":    {60, 15},
	"illuminance": {400, 400},
	"pressure":    {1013, 4},
	"uva":         {1.5, 1.5},
	"uvb":         {0.4, 0.4},
	"uvIndex":     {3, 3},
}

// One reading per sensor type every step seconds over the last hours,
// values follow a daily sine and never go negative.
func synthReadings(now time.Time, hours, step int, src string) ([]*awsapi.Reading, error) {
	if hours <= 0 || step <= 0 {
		return nil, fmt.Errorf("--hours and --step must be positive, got %d and %d", hours, step)
	}
	end := now.Unix()
	var out []*awsapi.Reading
	for ts := end - int64(hours)*3600 + int64(step); ts <= end; ts += int64(step) {
		phase := 2 * math.Pi * float64(ts%86400) / 86400
		for _, st := range awsapi.SensorTypes {
			p := profiles[st]
			v := math.Max(0, p.base+p.amplitude*math.Sin(phase))
			r, err := awsapi.NewReading(st, ts, math.Round(v*100)/100, awsapi.SourceOp(src))
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
	}
	return out, nil
}
