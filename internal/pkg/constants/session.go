package constants

// Session keys shared between the auth flow and the user context middleware.
const (
	SessionKeyUserID   = "user_id"
	SessionKeyUsername = "username"
	SessionKeyIsAdmin  = "is_admin"
)
