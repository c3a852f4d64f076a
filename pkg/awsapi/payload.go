package awsapi

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// Entry is rendered as a single key object {"<timestamp>": value}
type Entry struct {
	Timestamp int64
	Value     float64
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]float64{strconv.FormatInt(e.Timestamp, 10): e.Value})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	m := map[string]float64{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return errors.Errorf("entry must have exactly one key, got %d", len(m))
	}
	for k, v := range m {
		ts, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return errors.Wrap(err, "entry timestamp")
		}
		e.Timestamp = ts
		e.Value = v
	}
	return nil
}

// Sensor type to readings ordered by timestamp
type Payload map[string][]Entry

// Every sensor type is present, empty ones marshal as [] not null
func NewPayload() Payload {
	p := make(Payload, len(SensorTypes))
	for _, st := range SensorTypes {
		p[st] = []Entry{}
	}
	return p
}

// Add appends reading to its sensor type, non finite values are refused
func (p Payload) Add(r *Reading) bool {
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return false
	}
	p[r.Type] = append(p[r.Type], Entry{Timestamp: r.Timestamp, Value: r.Value})
	return true
}

func (p Payload) Len() int {
	n := 0
	for _, entries := range p {
		n += len(entries)
	}
	return n
}

// FetchPayload queries every sensor type in turn for readings newer than
// after. The first failing query aborts the whole fetch.
func FetchPayload(ctx context.Context, table *DTable, after int64) (Payload, error) {
	payload := NewPayload()
	for _, st := range SensorTypes {
		readings, err := table.QueryRange(ctx, st, after)
		if err != nil {
			return nil, err
		}
		dropped := 0
		for _, r := range readings {
			if r.Type != st || r.Timestamp <= after || !payload.Add(r) {
				dropped++
			}
		}
		if dropped > 0 {
			log.Printf("WARN %s: dropped %d of %d readings", st, dropped, len(readings))
		}
		log.Printf("%s: %d readings after %d", st, len(payload[st]), after)
	}
	return payload, nil
}
