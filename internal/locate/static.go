package locate

import (
	"context"

	"github.com/agenda-lojas/agenda/internal/geo"
)

// StaticProvider is a device stand-in that returns a fixed position, such as one passed on
// the command line or in a request. Without a position it reports ErrPositionUnavailable,
// which sends the ladder to the IP lookup.
type StaticProvider struct {
	Point *geo.Point
}

// CurrentPosition returns the fixed position
func (p StaticProvider) CurrentPosition(ctx context.Context, _ Options) (geo.Point, error) {
	if err := ctx.Err(); err != nil {
		return geo.Point{}, err
	}
	if p.Point == nil || !p.Point.Valid() {
		return geo.Point{}, ErrPositionUnavailable
	}
	return *p.Point, nil
}

// StaticPermission is a PermissionChecker with a fixed answer
type StaticPermission Permission

// Permission returns the fixed answer
func (p StaticPermission) Permission(context.Context) (Permission, error) {
	return Permission(p), nil
}
