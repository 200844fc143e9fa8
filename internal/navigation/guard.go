package navigation

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/you/trisonapp/domain"
)

// The screen policy is fixed at build time; there is no runtime policy
// administration in the client.
const guardModel = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj
`

var guardPolicies = [][]string{
	{domain.RoleClient, ScreenDashboard},
	{domain.RoleClient, ScreenScanQR},
	{domain.RoleClient, ScreenDailyScan},
	{domain.RoleClient, ScreenSpin},
	{domain.RoleClient, ScreenProfile},
	{domain.RoleClient, ScreenProducts},
	{domain.RoleRetailer, ScreenRetailerHome},
	{domain.RoleRetailer, ScreenProducts},
	{domain.RoleRetailer, ScreenProfile},
}

// Admin inherits every role's screens.
var guardGroupings = [][]string{
	{domain.RoleAdmin, domain.RoleClient},
	{domain.RoleAdmin, domain.RoleRetailer},
}

// Guard implements domain.ScreenGuard with a Casbin enforcer.
type Guard struct {
	enforcer *casbin.Enforcer
}

// NewGuard creates the screen guard with the built-in policy table.
func NewGuard() (*Guard, error) {
	m, err := model.NewModelFromString(guardModel)
	if err != nil {
		return nil, fmt.Errorf("failed to build guard model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}
	for _, p := range guardPolicies {
		if _, err := e.AddPolicy(p[0], p[1]); err != nil {
			return nil, fmt.Errorf("failed to add policy %v: %w", p, err)
		}
	}
	for _, g := range guardGroupings {
		if _, err := e.AddGroupingPolicy(g[0], g[1]); err != nil {
			return nil, fmt.Errorf("failed to add grouping %v: %w", g, err)
		}
	}
	return &Guard{enforcer: e}, nil
}

// CanAccess implements domain.ScreenGuard
func (g *Guard) CanAccess(role, screen string) (bool, error) {
	return g.enforcer.Enforce(role, screen)
}

// Screens returns every screen the role may open.
func (g *Guard) Screens(role string) ([]string, error) {
	all := []string{
		ScreenDashboard, ScreenScanQR, ScreenDailyScan, ScreenSpin,
		ScreenProfile, ScreenProducts, ScreenRetailerHome,
	}
	var allowed []string
	for _, screen := range all {
		ok, err := g.enforcer.Enforce(role, screen)
		if err != nil {
			return nil, err
		}
		if ok {
			allowed = append(allowed, screen)
		}
	}
	return allowed, nil
}

var _ domain.ScreenGuard = (*Guard)(nil)
