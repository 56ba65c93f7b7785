// Package guard decides whether a route may be shown for the current
// authentication state.
package guard

import "strings"

// Routes known to the client.
const (
	RouteHome                = "/"
	RouteLogin               = "/auth/login"
	RouteRegister            = "/auth/register"
	RouteDashboard           = "/dashboard"
	RouteProfile             = "/dashboard/profile"
	RouteGenerateResume      = "/dashboard/generate/resume"
	RouteGenerateCoverLetter = "/dashboard/generate/cover-letter"
	RouteHistory             = "/dashboard/history"
)

type Access int

const (
	Public Access = iota
	// Protected routes need an authenticated session.
	Protected
	// AuthOnly routes are the login and register screens, shown only when signed out.
	AuthOnly
)

func (a Access) String() string {
	switch a {
	case Protected:
		return "protected"
	case AuthOnly:
		return "auth-only"
	default:
		return "public"
	}
}

// AuthState is the part of the session the guard reads.
type AuthState interface {
	IsAuthenticated() bool
}

// Decision is the outcome of a check. Redirect is set when Allow is false.
type Decision struct {
	Allow    bool
	Redirect string
}

// Classify returns the access class of route. "/" and everything under
// /dashboard is protected.
func Classify(route string) Access {
	route = normalize(route)
	switch {
	case route == RouteLogin || route == RouteRegister:
		return AuthOnly
	case route == RouteHome || route == RouteDashboard || strings.HasPrefix(route, RouteDashboard+"/"):
		return Protected
	default:
		return Public
	}
}

// Check evaluates route against state. It has no side effects.
func Check(state AuthState, route string) Decision {
	switch Classify(route) {
	case Protected:
		if !state.IsAuthenticated() {
			return Decision{Redirect: RouteLogin}
		}
	case AuthOnly:
		if state.IsAuthenticated() {
			return Decision{Redirect: RouteDashboard}
		}
	}
	return Decision{Allow: true}
}

func normalize(route string) string {
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	if len(route) > 1 {
		route = strings.TrimRight(route, "/")
	}
	if route == "" {
		return RouteHome
	}
	return route
}
