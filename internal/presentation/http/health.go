package http

import (
	"context"
	stdhttp "net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"
)

type healthResponse struct {
	Status int
	Body   struct {
		Status     string            `json:"status"`
		Checks     map[string]string `json:"checks"`
		Summarizer string            `json:"summarizer"`
	}
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
		op.Tags = []string{"ops"}
	})
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{Status: stdhttp.StatusOK}
	resp.Body.Status = "ok"
	resp.Body.Checks = make(map[string]string, len(s.healthChecks))
	resp.Body.Summarizer = "unconfigured"
	if s.summarizerEnabled {
		resp.Body.Summarizer = "ready"
	}

	for _, check := range s.healthChecks {
		if check.Check == nil {
			continue
		}
		if err := check.Check(ctx); err != nil {
			s.recordError(ctx, err, "health check failed", logrus.Fields{"check": check.Name})
			resp.Body.Checks[check.Name] = "error"
			resp.Body.Status = "degraded"
			resp.Status = stdhttp.StatusServiceUnavailable
			continue
		}
		resp.Body.Checks[check.Name] = "ok"
	}

	return resp, nil
}
