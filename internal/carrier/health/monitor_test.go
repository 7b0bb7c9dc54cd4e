package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clarence/internal/carrier/client"
	"clarence/internal/carrier/models"
	"clarence/internal/carrier/registry"
	"clarence/internal/carrier/store"
	id "clarence/pkg/domain"
	"clarence/pkg/platform/events"
)

type MonitorSuite struct {
	suite.Suite
	store     *store.InMemoryStore
	publisher *events.MemoryPublisher
	monitor   *Monitor
	server    *httptest.Server
	now       time.Time
}

func TestMonitorSuite(t *testing.T) {
	suite.Run(t, new(MonitorSuite))
}

func (s *MonitorSuite) SetupTest() {
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/carriers/up/"):
			w.WriteHeader(http.StatusOK)
		case strings.HasPrefix(r.URL.Path, "/carriers/slow/"):
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	s.store = store.NewInMemory()
	s.publisher = events.NewMemoryPublisher()
	s.now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.monitor = New(
		registry.New(s.store),
		client.New(client.WithTimeouts(time.Second, time.Second, 50*time.Millisecond)),
		WithClock(func() time.Time { return s.now }),
		WithPublisher(s.publisher),
	)
}

func (s *MonitorSuite) TearDownTest() {
	s.server.Close()
}

func (s *MonitorSuite) add(code string, status models.HealthStatus) *models.Carrier {
	c := &models.Carrier{
		ID:           id.NewCarrierID(),
		Code:         code,
		Name:         code,
		IsActive:     true,
		APIBaseURL:   s.server.URL,
		HealthStatus: status,
	}
	s.Require().NoError(s.store.Save(context.Background(), c))
	return c
}

func (s *MonitorSuite) TestProbe_HealthyCarrierIsOperational() {
	c := s.add("up", models.HealthOperational)

	res := s.monitor.Probe(context.Background(), c.ID)
	s.True(res.Healthy)
	s.NoError(res.Err)
	s.Equal(models.HealthOperational, res.Status)

	stored, err := s.store.FindByID(context.Background(), c.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.LastHealthCheck)
	s.True(stored.LastHealthCheck.Equal(s.now))
	s.Empty(s.publisher.OfType(events.CarrierHealthChanged), "unchanged status emits nothing")
}

func (s *MonitorSuite) TestProbe_FailingCarrierIsDown() {
	c := s.add("broken", models.HealthOperational)

	res := s.monitor.Probe(context.Background(), c.ID)
	s.False(res.Healthy)
	s.False(res.TimedOut)
	s.Error(res.Err)
	s.Equal(models.HealthDown, res.Status)

	stored, err := s.store.FindByID(context.Background(), c.ID)
	s.Require().NoError(err)
	s.Equal(models.HealthDown, stored.HealthStatus)

	changed := s.publisher.OfType(events.CarrierHealthChanged)
	s.Require().Len(changed, 1)
	s.Equal("operational", changed[0].Attributes["from"])
	s.Equal("down", changed[0].Attributes["to"])
}

func (s *MonitorSuite) TestProbe_TimeoutIsReported() {
	c := s.add("slow", models.HealthOperational)

	res := s.monitor.Probe(context.Background(), c.ID)
	s.False(res.Healthy)
	s.True(res.TimedOut)
	s.Equal(models.HealthDown, res.Status)
}

func (s *MonitorSuite) TestProbe_RecoveryFromDown() {
	c := s.add("up", models.HealthDown)

	res := s.monitor.Probe(context.Background(), c.ID)
	s.True(res.Healthy)

	stored, err := s.store.FindByID(context.Background(), c.ID)
	s.Require().NoError(err)
	s.Equal(models.HealthOperational, stored.HealthStatus)
	s.Len(s.publisher.OfType(events.CarrierHealthChanged), 1)
}

func (s *MonitorSuite) TestProbe_UnknownCarrier() {
	res := s.monitor.Probe(context.Background(), id.NewCarrierID())
	s.False(res.Healthy)
	s.Error(res.Err)
}

func (s *MonitorSuite) TestProbeAll() {
	s.add("up", models.HealthOperational)
	s.add("broken", models.HealthOperational)

	results := s.monitor.ProbeAll(context.Background())
	s.Require().Len(results, 2)

	byCode := map[string]ProbeResult{}
	for _, r := range results {
		byCode[r.Code] = r
	}
	s.True(byCode["up"].Healthy)
	s.False(byCode["broken"].Healthy)
}

func (s *MonitorSuite) TestRun_StopsOnCancel() {
	s.add("broken", models.HealthOperational)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.monitor.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	s.Eventually(func() bool {
		return len(s.publisher.OfType(events.CarrierHealthChanged)) > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("monitor did not stop")
	}
}
