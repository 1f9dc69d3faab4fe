package web

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/atlassian/kairosrelay/pkg/healthcheck"
)

type healthChecker struct {
	logger       logrus.FieldLogger
	healthChecks []healthcheck.HealthcheckFunc
	deepChecks   []healthcheck.HealthcheckFunc
}

type healthReport struct {
	OK     []string `json:"ok"`
	Failed []string `json:"failed"`
}

func runHealthChecks(checks []healthcheck.HealthcheckFunc) healthReport {
	report := healthReport{
		OK:     []string{},
		Failed: []string{},
	}
	for _, check := range checks {
		msg, status := check()
		if status == healthcheck.Healthy {
			report.OK = append(report.OK, msg)
		} else {
			report.Failed = append(report.Failed, msg)
		}
	}
	return report
}

// respond writes the report of checks, with a 500 if any of them failed.
func (hc *healthChecker) respond(resp http.ResponseWriter, kind string, checks []healthcheck.HealthcheckFunc) {
	report := runHealthChecks(checks)
	status := http.StatusOK
	if len(report.Failed) > 0 {
		status = http.StatusInternalServerError
		hc.logger.WithField("failed", report.Failed).Debug(kind + " failed")
	}

	resp.Header().Set("content-type", "application/json")
	resp.WriteHeader(status)
	_ = jsoniter.NewEncoder(resp).Encode(report)
}

// healthCheck reports if the relay is ready to accept flushes.
func (hc *healthChecker) healthCheck(resp http.ResponseWriter, req *http.Request) {
	hc.respond(resp, "healthcheck", hc.healthChecks)
}

// deepCheck reports on the connection to KairosDB.
func (hc *healthChecker) deepCheck(resp http.ResponseWriter, req *http.Request) {
	hc.respond(resp, "deepcheck", hc.deepChecks)
}
