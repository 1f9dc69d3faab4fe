package kairosrelay

import (
	"fmt"
	"math"
	"time"
)

// Datapoint is a single named, timestamped and tagged value sent to KairosDB.
type Datapoint struct {
	Name      string
	Timestamp time.Time
	Value     float64
	Tags      Tags
}

// NewDatapoint creates a Datapoint. Values which are not finite are coerced to 0, KairosDB
// rejects them and a datapoint value is always numeric.
func NewDatapoint(name string, ts time.Time, value float64, tags Tags) *Datapoint {
	return &Datapoint{
		Name:      name,
		Timestamp: ts,
		Value:     Finite(value),
		Tags:      tags,
	}
}

// Finite returns v, or 0 if v is NaN or infinite.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// TimestampMillis returns the timestamp in milliseconds, as used by the REST API.
func (dp *Datapoint) TimestampMillis() int64 {
	return dp.Timestamp.UnixNano() / int64(time.Millisecond)
}

func (dp *Datapoint) String() string {
	return fmt.Sprintf("{%s, %d, %v, %s}", dp.Name, dp.Timestamp.Unix(), dp.Value, dp.Tags)
}
