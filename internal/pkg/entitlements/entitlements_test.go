package entitlements

import (
	"testing"

	"github.com/ivarnor/akidsy/app/models"
)

func TestEvaluate(t *testing.T) {
	member := &models.Membership{UserID: 1, IsMember: true, SubscriptionStatus: models.SubscriptionStatusTrialing}
	nonMember := &models.Membership{UserID: 2, IsMember: false, SubscriptionStatus: models.SubscriptionStatusNone}

	tests := []struct {
		name        string
		isLoggedIn  bool
		isAdmin     bool
		membership  *models.Membership
		wantAllowed bool
		wantReason  DenyReason
		wantSurface Surface
	}{
		{name: "anonymous", wantAllowed: false, wantReason: ReasonNotAuthenticated, wantSurface: SurfaceLogin},
		{name: "member", isLoggedIn: true, membership: member, wantAllowed: true, wantSurface: SurfaceMember},
		{name: "non-member", isLoggedIn: true, membership: nonMember, wantAllowed: false, wantReason: ReasonNotMember, wantSurface: SurfaceMarketing},
		{name: "missing record", isLoggedIn: true, wantAllowed: false, wantReason: ReasonNotMember, wantSurface: SurfaceMarketing},
		{name: "admin without membership", isLoggedIn: true, isAdmin: true, wantAllowed: true, wantSurface: SurfaceAdmin},
		{name: "admin with lapsed membership", isLoggedIn: true, isAdmin: true, membership: nonMember, wantAllowed: true, wantSurface: SurfaceAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.isLoggedIn, tt.isAdmin, tt.membership)
			if got.Allowed != tt.wantAllowed {
				t.Fatalf("Allowed = %v, want %v", got.Allowed, tt.wantAllowed)
			}
			if got.Reason != tt.wantReason {
				t.Fatalf("Reason = %v, want %v", got.Reason, tt.wantReason)
			}
			if got.Surface != tt.wantSurface {
				t.Fatalf("Surface = %v, want %v", got.Surface, tt.wantSurface)
			}
		})
	}
}
