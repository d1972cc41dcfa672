package csrf

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/usama1031/csrf-jwt-server/metrics"
	"github.com/usama1031/csrf-jwt-server/server/middleware"
)

const (
	DefaultCookieName = "x-csrf-jwt"
	DefaultHeaderName = "x-csrf-jwt"
)

// Options controls how the guard carries tokens on the wire.
type Options struct {
	Expiry       time.Duration
	CookieName   string
	HeaderName   string
	DoubleSubmit bool

	// Cookie attributes. Persistent sets Max-Age to Expiry; otherwise the
	// carrier is a session cookie.
	Secure     bool
	HTTPOnly   bool
	Persistent bool
	SameSite   http.SameSite
}

func (o Options) normalize() Options {
	if o.Expiry <= 0 {
		o.Expiry = DefaultExpiry
	}
	if o.CookieName == "" {
		o.CookieName = DefaultCookieName
	}
	if o.HeaderName == "" {
		o.HeaderName = DefaultHeaderName
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	return o
}

// Guard is HTTP middleware that issues tokens on safe requests and
// requires a valid token on everything else.
type Guard struct {
	signer *Signer
	opts   Options
	now    func() time.Time
	logger *zap.Logger
}

// GuardOption customizes a Guard.
type GuardOption func(*Guard)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) GuardOption {
	return func(g *Guard) { g.now = now }
}

// WithLogger sets the logger rejections are reported to.
func WithLogger(logger *zap.Logger) GuardOption {
	return func(g *Guard) { g.logger = logger }
}

// NewGuard builds a guard around signer.
func NewGuard(signer *Signer, opts Options, options ...GuardOption) (*Guard, error) {
	if signer == nil {
		return nil, ErrEmptySecret
	}

	g := &Guard{
		signer: signer,
		opts:   opts.normalize(),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, o := range options {
		o(g)
	}
	return g, nil
}

// Middleware wraps next with CSRF enforcement.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := g.now()

		if !isSafeMethod(r.Method) {
			if err := g.check(now, r); err != nil {
				g.reject(w, r, err)
				return
			}
		}

		if _, err := g.SetToken(w, now); err != nil {
			g.logger.Error("csrf token issue failed",
				zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
				zap.Error(err),
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SetToken issues a fresh token and attaches it to the response as both
// the carrier cookie and the echo header.
func (g *Guard) SetToken(w http.ResponseWriter, now time.Time) (string, error) {
	token, err := g.signer.Issue(now, g.opts.Expiry)
	if err != nil {
		return "", err
	}

	cookie := &http.Cookie{
		Name:     g.opts.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: g.opts.HTTPOnly,
		Secure:   g.opts.Secure,
		SameSite: g.opts.SameSite,
	}
	if g.opts.Persistent {
		cookie.MaxAge = int(g.opts.Expiry / time.Second)
	}
	http.SetCookie(w, cookie)
	w.Header().Set(g.opts.HeaderName, token)

	metrics.CSRFTokensIssued.Inc()
	return token, nil
}

func (g *Guard) check(now time.Time, r *http.Request) error {
	var carrier string
	if c, err := r.Cookie(g.opts.CookieName); err == nil {
		carrier = c.Value
	}

	if err := g.signer.Validate(now, carrier); err != nil {
		return err
	}
	if g.opts.DoubleSubmit {
		return CheckDoubleSubmit(carrier, r.Header.Get(g.opts.HeaderName))
	}
	return nil
}

// reject answers with a bare 403. The reason only goes to logs and metrics.
func (g *Guard) reject(w http.ResponseWriter, r *http.Request, err error) {
	reason := ReasonOf(err)
	metrics.CSRFRejections.WithLabelValues(string(reason)).Inc()

	g.logger.Warn("csrf rejection",
		zap.String("reason", string(reason)),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		zap.Error(err),
	)

	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
