package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/tilinna/clock"

	"github.com/atlassian/kairosrelay"
)

const paramTimestamp = "ts"

// flush decodes a snapshot and hands it to the relay. The flush timestamp is the ts query
// parameter in seconds, or the current time when it is absent.
func (s *Server) flush(w http.ResponseWriter, req *http.Request) {
	ts, err := flushTimestamp(req)
	if err != nil {
		s.logger.WithError(err).Info("invalid flush timestamp")
		http.Error(w, "invalid "+paramTimestamp, http.StatusBadRequest)
		return
	}

	snap, err := kairosrelay.DecodeSnapshot(req.Body)
	if err != nil {
		s.logger.WithError(err).Info("failed to decode snapshot")
		http.Error(w, "malformed snapshot", http.StatusBadRequest)
		return
	}

	// Sends may complete after the response is written.
	ctx := context.WithoutCancel(req.Context())

	s.flushMu.Lock()
	s.relay.OnFlush(ctx, ts, snap)
	s.flushMu.Unlock()

	w.WriteHeader(http.StatusAccepted)
}

func flushTimestamp(req *http.Request) (time.Time, error) {
	raw := req.URL.Query().Get(paramTimestamp)
	if raw == "" {
		return clock.FromContext(req.Context()).Now(), nil
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0), nil
}

// status renders the self-stats as {"<group>": {"<field>": value}}.
func (s *Server) status(w http.ResponseWriter, req *http.Request) {
	groups := map[string]map[string]int64{}
	s.relay.Status(func(err error, group, name string, value int64) {
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"group": group,
				"name":  name,
			}).Warn("status field failed")
			return
		}
		fields, ok := groups[group]
		if !ok {
			fields = map[string]int64{}
			groups[group] = fields
		}
		fields[name] = value
	})

	w.Header().Set("content-type", "application/json")
	w.WriteHeader(http.StatusOK)
	enc := jsoniter.NewEncoder(w)
	_ = enc.Encode(groups)
}
