// Package locate obtains the user's position for distance ordering.
//
// The Orchestrator runs a fixed ladder: a quick low-accuracy device fix, then a precise
// one, then an IP lookup when the precise attempt timed out or had no position. Permission
// denial stops the ladder without the IP lookup. Device access goes through the Provider
// interface so callers (and tests) can plug in any position source.
package locate

import (
	"context"
	"errors"
	"time"

	"github.com/agenda-lojas/agenda/internal/geo"
)

// Device failures, classified the way browser geolocation reports them
var (
	ErrPermissionDenied    = errors.New("permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrTimeout             = errors.New("timeout")
	ErrUnsupported         = errors.New("geolocation unsupported")
)

// ErrInProgress is returned when Locate is called while another attempt is running
var ErrInProgress = errors.New("location request already in progress")

// Options configures one device position request
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration // provider's own timeout
	MaximumAge   time.Duration // oldest cached fix the provider may return
}

// Attempt settings. The ceiling is enforced by the orchestrator on top of the provider's
// own timeout.
var (
	QuickOptions   = Options{HighAccuracy: false, Timeout: 5 * time.Second, MaximumAge: 5 * time.Minute}
	PreciseOptions = Options{HighAccuracy: true, Timeout: 15 * time.Second, MaximumAge: 0}
)

const (
	QuickCeiling   = 7 * time.Second
	PreciseCeiling = 18 * time.Second
)

// Provider returns the device position
type Provider interface {
	CurrentPosition(ctx context.Context, opts Options) (geo.Point, error)
}

// ProviderFunc adapts a function to Provider
type ProviderFunc func(ctx context.Context, opts Options) (geo.Point, error)

// CurrentPosition calls f
func (f ProviderFunc) CurrentPosition(ctx context.Context, opts Options) (geo.Point, error) {
	return f(ctx, opts)
}

// Permission is the state of the location permission
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionPrompt  Permission = "prompt"
	PermissionDenied  Permission = "denied"
)

// PermissionChecker reports the location permission before any request is made
type PermissionChecker interface {
	Permission(ctx context.Context) (Permission, error)
}

// IPLocator approximates the position from the client's IP address
type IPLocator interface {
	LocateIP(ctx context.Context) (geo.Point, error)
}

// State is a step of the locate ladder
type State string

const (
	StateIdle              State = "idle"
	StateRequestingQuick   State = "requesting_quick"
	StateRequestingPrecise State = "requesting_precise"
	StateRequestingIP      State = "requesting_ip"
	StateResolved          State = "resolved"
	StateDenied            State = "denied"
	StateUnavailable       State = "unavailable"
)

// Terminal reports whether the ladder stops in s
func (s State) Terminal() bool {
	return s == StateResolved || s == StateDenied || s == StateUnavailable
}

// Source tells where a resolved position came from
type Source string

const (
	SourceDevice Source = "device"
	SourceIP     Source = "ip"
)

// User-facing messages
const (
	MessageLocating          = "Obtendo sua localização…"
	MessageIPFallback        = "Tentando localização por IP (fallback)..."
	MessagePermissionBlocked = "Permissão de localização negada — habilite nas configurações do site."
	MessageDenied            = "Permissão de localização negada. Habilite nas configurações do site."
	MessageUnsupported       = "Navegador não suporta Geolocation."
	MessageUnavailable       = "Não foi possível obter sua localização. Verifique HTTPS/Permissões/GPS."
)

// Outcome is the result of a locate run
type Outcome struct {
	State   State      `json:"state"`
	Point   *geo.Point `json:"point,omitempty"`
	Source  Source     `json:"source,omitempty"`
	Message string     `json:"message,omitempty"` // set for Denied and Unavailable
	Err     error      `json:"-"`                 // last failure, if any
	Steps   []State    `json:"steps"`             // states visited, in order
}

// Resolved reports whether a position was obtained
func (o *Outcome) Resolved() bool {
	return o != nil && o.State == StateResolved && o.Point != nil
}
