package deps

import (
	"time"

	"github.com/MrSnakeDoc/daylog/internal/auth"
	"github.com/MrSnakeDoc/daylog/internal/catalog"
	"github.com/MrSnakeDoc/daylog/internal/logger"
	"github.com/MrSnakeDoc/daylog/internal/store"
	"github.com/MrSnakeDoc/daylog/internal/tracker"
)

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time // for testing, defaults to time.Now
	AllowedHosts   []string         // Host headers allowed to access the server
	AllowedCIDRS   []string         // IPs allowed to access readyz, infra, reload and metrics
	TrustProxy     bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RequestTimeout time.Duration    // per-request timeout, the stream route is exempt
	RateBurst      int              // token bucket size per client IP on /api
	RatePerMin     int              // sustained requests per minute per client IP on /api
	Auth           auth.Config      // bearer token verification
	Store          store.Backend    // activity and profile persistence
	Tracker        *tracker.Service // validate-then-persist flow
	Catalog        *catalog.Catalog // category display entries
	ReloadTrigger  chan struct{}    // Channel to trigger a manual catalog reload (nil if no category file)
	Shutdown       <-chan struct{}  // closed when the server starts shutting down, ends open streams
}

// Now returns TimeNow() or the wall clock when unset.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
