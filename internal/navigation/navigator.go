// Package navigation decides which route tree the app shell mounts and
// which screens a role may open.
package navigation

import (
	"github.com/you/trisonapp/domain"
)

// Route is the top-level mount decision.
type Route string

const (
	RouteLoading Route = "loading"
	RouteAuth    Route = "auth"
	RouteApp     Route = "app"
)

// Screen names within the route trees.
const (
	ScreenLogin        = "login"
	ScreenRegister     = "register"
	ScreenDashboard    = "dashboard"
	ScreenScanQR       = "scan_qr"
	ScreenDailyScan    = "daily_scan"
	ScreenSpin         = "spin"
	ScreenProfile      = "profile"
	ScreenProducts     = "products"
	ScreenRetailerHome = "retailer_home"
)

// Resolve picks the top-level route from the session. It is a pure
// function of the loading and authenticated flags; nothing else may
// influence the decision.
func Resolve(sess domain.Session) Route {
	if sess.IsLoading {
		return RouteLoading
	}
	if sess.IsAuthenticated {
		return RouteApp
	}
	return RouteAuth
}

// Home returns the default entry screen of the authenticated tree for
// a role.
func Home(role string) string {
	if role == domain.RoleRetailer {
		return ScreenRetailerHome
	}
	return ScreenDashboard
}

// Navigator re-resolves the route on every session transition. It
// subscribes to the store rather than polling it.
type Navigator struct {
	current Route
	onRoute func(Route)
}

// Subscriber is the session store surface the navigator needs.
type Subscriber interface {
	Subscribe(fn func(domain.SessionEvent)) func()
	Snapshot() domain.Session
}

// NewNavigator attaches to the store and invokes onRoute with the
// initial route and with every subsequent change. The returned
// function detaches it.
func NewNavigator(store Subscriber, onRoute func(Route)) (*Navigator, func()) {
	n := &Navigator{onRoute: onRoute}
	n.current = Resolve(store.Snapshot())
	unsubscribe := store.Subscribe(func(ev domain.SessionEvent) {
		next := Resolve(ev.Session)
		if next == n.current {
			return
		}
		n.current = next
		if n.onRoute != nil {
			n.onRoute(next)
		}
	})
	if n.onRoute != nil {
		n.onRoute(n.current)
	}
	return n, unsubscribe
}

// Current returns the last resolved route.
func (n *Navigator) Current() Route { return n.current }
