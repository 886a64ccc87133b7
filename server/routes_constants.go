package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Device Flow
	RouteAuthInitiate = "/auth/initiate"
	RouteAuthStatus   = "/auth/status"
	RouteAuthCheck    = "/auth/check"
	RouteAuthUser     = "/auth/user"
	RouteAuthLogout   = "/auth/logout"

	// Assistant Routes
	RouteChat   = "/chat"
	RouteUpload = "/upload"

	// Service Routes
	RouteHealth = "/"
)
