package rest

import (
	"context"
	"sync/atomic"

	"github.com/atlassian/kairosrelay"
)

// metric is one element of the datapoints API payload.
type metric struct {
	Name       string            `json:"name"`
	Datapoints [][2]interface{}  `json:"datapoints"`
	Tags       map[string]string `json:"tags"`
}

type flush struct {
	ctx     context.Context
	client  *Client
	payload []metric
}

func (f *flush) Add(dp *kairosrelay.Datapoint) {
	f.payload = append(f.payload, metric{
		Name:       dp.Name,
		Datapoints: [][2]interface{}{{dp.TimestampMillis(), dp.Value}},
		Tags:       dp.Tags,
	})
}

// CloseAsync sends the accumulated payload in a new goroutine. An empty flush is not sent.
func (f *flush) CloseAsync(cb kairosrelay.SendCallback) {
	if len(f.payload) == 0 {
		atomic.AddUint64(&f.client.flushesSkipped, 1)
		cb(nil)
		return
	}
	payload := f.payload
	f.payload = nil
	go func() {
		cb([]error{f.client.send(f.ctx, payload)})
	}()
}
