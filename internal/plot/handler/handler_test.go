package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"fieldplot/internal/geo"
	"fieldplot/internal/identifier"
	"fieldplot/internal/platform/config"
	"fieldplot/internal/platform/middleware"
	"fieldplot/internal/plot/models"
	"fieldplot/internal/plot/service"
	householdstore "fieldplot/internal/plot/store/household"
	plotstore "fieldplot/internal/plot/store/plot"
	plotlogstore "fieldplot/internal/plot/store/plotlog"
	"fieldplot/internal/policy"
)

// HandlerSuite exercises the HTTP surface against real in-memory stores;
// the service pipeline is covered separately, these tests validate request
// parsing and response mapping.
type HandlerSuite struct {
	suite.Suite
	router http.Handler
	seq    int
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	survey := config.DefaultSurvey()
	svc := service.New(
		plotstore.NewInMemory(),
		plotlogstore.NewInMemory(),
		householdstore.NewInMemory(),
		identifier.NewInMemory(),
		geo.NewVerifier(),
		policy.New(survey),
		survey,
	)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(svc, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.DeviceContext("99", string(policy.RoleCentralServer)))
	h.Register(r)
	s.router = r
	s.seq = 0
}

func (s *HandlerSuite) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerSuite) createBody() map[string]any {
	s.seq++
	return map[string]any{
		"map_area":         "test_community",
		"target_latitude":  -25.330234 + float64(s.seq)*0.01,
		"target_longitude": 25.556882,
		"status":           "residential_habitable",
	}
}

func (s *HandlerSuite) createPlot() models.Plot {
	w := s.do(http.MethodPost, "/plots", s.createBody(), nil)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var p models.Plot
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&p))
	return p
}

func (s *HandlerSuite) TestCreatePlot() {
	s.Run("created", func() {
		p := s.createPlot()
		s.NotEmpty(p.PlotIdentifier)
		s.Equal("test_community", p.MapArea)
	})

	s.Run("malformed body", func() {
		req := httptest.NewRequest(http.MethodPost, "/plots", bytes.NewBufferString("{"))
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		s.Equal(http.StatusUnprocessableEntity, w.Code)
	})

	s.Run("unknown community maps to 422", func() {
		body := s.createBody()
		body["map_area"] = "nowhere"
		w := s.do(http.MethodPost, "/plots", body, nil)
		s.Equal(http.StatusUnprocessableEntity, w.Code)

		var resp map[string]any
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
		s.Equal("invalid_community", resp["error"])
	})

	s.Run("field device without ess maps to 403", func() {
		w := s.do(http.MethodPost, "/plots", s.createBody(),
			map[string]string{"X-Device-Role": string(policy.RoleClient)})
		s.Equal(http.StatusForbidden, w.Code)
	})
}

func (s *HandlerSuite) TestGetPlot() {
	p := s.createPlot()

	s.Run("by uuid", func() {
		w := s.do(http.MethodGet, "/plots/"+p.ID.String(), nil, nil)
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("by survey identifier", func() {
		w := s.do(http.MethodGet, "/plots/"+p.PlotIdentifier, nil, nil)
		s.Require().Equal(http.StatusOK, w.Code)
		var got models.Plot
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&got))
		s.Equal(p.ID, got.ID)
	})

	s.Run("not found", func() {
		w := s.do(http.MethodGet, "/plots/00000000-0000-0000-0000-000000000000", nil, nil)
		s.Equal(http.StatusNotFound, w.Code)
	})
}

func (s *HandlerSuite) TestListPlots() {
	s.createPlot()
	s.createPlot()

	s.Run("all", func() {
		w := s.do(http.MethodGet, "/plots", nil, nil)
		s.Require().Equal(http.StatusOK, w.Code)
		var plots []models.Plot
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&plots))
		s.Len(plots, 2)
	})

	s.Run("filtered", func() {
		w := s.do(http.MethodGet, "/plots?confirmed=true", nil, nil)
		s.Require().Equal(http.StatusOK, w.Code)
		var plots []models.Plot
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&plots))
		s.Empty(plots)
	})

	s.Run("bad filter value", func() {
		w := s.do(http.MethodGet, "/plots?accessible=maybe", nil, nil)
		s.Equal(http.StatusUnprocessableEntity, w.Code)
	})
}

func (s *HandlerSuite) TestLogEntries() {
	p := s.createPlot()

	s.Run("add entry", func() {
		w := s.do(http.MethodPost, fmt.Sprintf("/plots/%s/log-entries", p.ID),
			map[string]any{"log_status": "accessible"}, nil)
		s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
		var entry models.PlotLogEntry
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&entry))
		s.Equal(models.LogAccessible, entry.LogStatus)
	})

	s.Run("same day conflict maps to 409", func() {
		w := s.do(http.MethodPost, fmt.Sprintf("/plots/%s/log-entries", p.ID),
			map[string]any{"log_status": "accessible"}, nil)
		s.Equal(http.StatusConflict, w.Code)
	})

	s.Run("list entries", func() {
		w := s.do(http.MethodGet, fmt.Sprintf("/plots/%s/log-entries", p.ID), nil, nil)
		s.Require().Equal(http.StatusOK, w.Code)
		var entries []models.PlotLogEntry
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&entries))
		s.Len(entries, 1)
	})

	s.Run("missing reason maps to 422", func() {
		w := s.do(http.MethodPost, fmt.Sprintf("/plots/%s/log-entries", p.ID),
			map[string]any{"log_status": "inaccessible"}, nil)
		s.Equal(http.StatusUnprocessableEntity, w.Code)
	})

	s.Run("delete entry", func() {
		list := s.do(http.MethodGet, fmt.Sprintf("/plots/%s/log-entries", p.ID), nil, nil)
		var entries []models.PlotLogEntry
		s.Require().NoError(json.NewDecoder(list.Body).Decode(&entries))
		s.Require().Len(entries, 1)

		w := s.do(http.MethodDelete, "/log-entries/"+entries[0].ID.String(), nil, nil)
		s.Equal(http.StatusNoContent, w.Code)

		w = s.do(http.MethodDelete, "/log-entries/"+entries[0].ID.String(), nil, nil)
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("invalid entry id", func() {
		w := s.do(http.MethodDelete, "/log-entries/not-a-uuid", nil, nil)
		s.Equal(http.StatusUnprocessableEntity, w.Code)
	})
}

func (s *HandlerSuite) TestUpdatePlot() {
	p := s.createPlot()
	s.do(http.MethodPost, fmt.Sprintf("/plots/%s/log-entries", p.ID),
		map[string]any{"log_status": "accessible"}, nil)

	lat := p.TargetLatitude - 0.000025
	lon := p.TargetLongitude + 0.000003
	w := s.do(http.MethodPatch, "/plots/"+p.ID.String(), map[string]any{
		"confirmed_latitude":  lat,
		"confirmed_longitude": lon,
	}, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var got models.Plot
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&got))
	s.True(got.Confirmed())
}

func (s *HandlerSuite) TestUpdatePlotCannotToggleEnrollment() {
	p := s.createPlot()
	s.do(http.MethodPost, fmt.Sprintf("/plots/%s/log-entries", p.ID),
		map[string]any{"log_status": "accessible"}, nil)

	// Enrollment moves through its own endpoint with its own gates; an
	// edit carrying enrollment fields must leave the flag untouched.
	w := s.do(http.MethodPatch, "/plots/"+p.ID.String(), map[string]any{
		"enrolled":    true,
		"enrolled_at": "2026-03-02T09:00:00Z",
	}, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var got models.Plot
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&got))
	s.False(got.Enrolled)
	s.Nil(got.EnrolledAt)
}

func (s *HandlerSuite) TestEnroll() {
	p := s.createPlot()

	// Unconfirmed plots cannot be enrolled.
	w := s.do(http.MethodPost, fmt.Sprintf("/plots/%s/enroll", p.ID),
		map[string]any{}, nil)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
}
