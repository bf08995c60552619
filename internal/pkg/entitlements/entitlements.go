package entitlements

import (
	"github.com/ivarnor/akidsy/app/models"
)

// Surface names the area of the site a decision routes to.
type Surface string

const (
	SurfaceMember    Surface = "member"
	SurfaceAdmin     Surface = "admin"
	SurfaceMarketing Surface = "marketing"
	SurfaceLogin     Surface = "login"
)

// DenyReason is the typed denial carried to the presentation layer. The
// core never formats user-facing copy; views map reasons to text.
type DenyReason int

const (
	ReasonNone DenyReason = iota
	ReasonNotAuthenticated
	ReasonNotMember
)

// Decision is the outcome of one gate evaluation.
type Decision struct {
	Allowed bool
	Reason  DenyReason
	Surface Surface
}

// Evaluate decides whether the current identity may view gated content.
// It is a pure read-and-branch: no side effects, evaluated fresh on every
// protected request because membership can change between requests.
//
// Operator accounts bypass billing entirely and are routed to the admin
// surface. Everyone else is admitted iff the membership flag is set.
func Evaluate(isLoggedIn, isAdmin bool, m *models.Membership) Decision {
	if !isLoggedIn {
		return Decision{Allowed: false, Reason: ReasonNotAuthenticated, Surface: SurfaceLogin}
	}
	if isAdmin {
		return Decision{Allowed: true, Surface: SurfaceAdmin}
	}
	if m != nil && m.IsMember {
		return Decision{Allowed: true, Surface: SurfaceMember}
	}
	return Decision{Allowed: false, Reason: ReasonNotMember, Surface: SurfaceMarketing}
}
