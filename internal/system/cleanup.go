package system

import (
	"time"

	coresys "github.com/airtrap/server/internal/core/system"
	"github.com/airtrap/server/internal/handler"
	"github.com/airtrap/server/internal/world"
)

// CleanupSystem flushes every room's deferred destruction queue at the end
// of the tick. Phase 5 (Cleanup).
type CleanupSystem struct {
	deps *handler.Deps
}

func NewCleanupSystem(deps *handler.Deps) *CleanupSystem {
	return &CleanupSystem{deps: deps}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	for _, r := range s.deps.Rooms.Rooms() {
		if r.World != nil {
			r.World.ECS.FlushDestroyQueue()
		}
	}
}
