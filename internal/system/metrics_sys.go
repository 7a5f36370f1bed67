package system

import (
	"time"

	coresys "github.com/airtrap/server/internal/core/system"
	"github.com/airtrap/server/internal/handler"
	"github.com/airtrap/server/internal/metrics"
	gonet "github.com/airtrap/server/internal/net"
	"github.com/airtrap/server/internal/world"
)

// MetricsSystem refreshes the Prometheus gauges from live server state.
// Phase 4 (Output), after the snapshots go out.
type MetricsSystem struct {
	deps *handler.Deps
	m    *metrics.Metrics
	srv  *gonet.Server
}

func NewMetricsSystem(deps *handler.Deps, m *metrics.Metrics, srv *gonet.Server) *MetricsSystem {
	return &MetricsSystem{deps: deps, m: m, srv: srv}
}

func (s *MetricsSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *MetricsSystem) Update(_ time.Duration) {
	s.m.Sessions.Set(float64(s.srv.Sessions().Len()))

	rooms := s.deps.Rooms.Rooms()
	inGame := 0
	entities := 0
	for _, r := range rooms {
		if r.State == world.RoomInGame {
			inGame++
		}
		if r.World != nil {
			entities += r.World.ECS.Live()
		}
	}
	s.m.Rooms.Set(float64(len(rooms)))
	s.m.RoomsInGame.Set(float64(inGame))
	s.m.Entities.Set(float64(entities))

	s.m.PacketsIn.Set(float64(s.srv.PacketsIn()))
	s.m.PacketsOut.Set(float64(s.srv.PacketsOut()))
	s.m.DecodeErrors.Set(float64(s.srv.DecodeErrors()))
}
