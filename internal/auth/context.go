package auth

import "context"

type contextKey struct{}

// AuthContext identifies the signed-in user for one request. MemberID is
// zero when the user is not linked to a roster member.
type AuthContext struct {
	UserID    int64
	MemberID  int64
	SessionID int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

// MemberID returns the roster member the signed-in user acts as.
func MemberID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.MemberID
}
