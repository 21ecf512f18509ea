package session

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/gosuda/passage/internal/adapter/discovery"
	"github.com/gosuda/passage/internal/adapter/resourcepack"
	"github.com/gosuda/passage/internal/adapter/status"
	"github.com/gosuda/passage/internal/adapter/strategy"
	"github.com/gosuda/passage/internal/auth"
	"github.com/gosuda/passage/internal/cookie"
	"github.com/gosuda/passage/internal/errorsink"
	"github.com/gosuda/passage/internal/localization"
	"github.com/gosuda/passage/internal/metrics"
	"github.com/gosuda/passage/internal/rsakeys"
)

// Deps bundles every process-wide, immutable-after-init collaborator the
// state machine calls into (spec.md §5: "share no mutable state with each
// other except" the RSA key pair, HMAC secret, adapter caches, rate
// limiter, metric registry).
type Deps struct {
	KeyPair      *rsakeys.KeyPair
	CookieSigner *cookie.Signer
	AuthClient   *auth.Client
	Localization *localization.Resolver

	Status       status.Supplier
	Discovery    discovery.Discoverer
	Strategy     strategy.Strategy
	ResourcePack resourcepack.Policy

	Metrics   *metrics.Registry
	ErrorSink errorsink.Sink
	Logger    zerolog.Logger

	Timeout      time.Duration
	MaxFrameSize int
}
