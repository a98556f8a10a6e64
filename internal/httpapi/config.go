package httpapi

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes configures the maximum JSON request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// maxUploadBytes bounds multipart document uploads.
var maxUploadBytes int64 = 32 << 20

// SetMaxUploadBytes configures the maximum document upload size.
func SetMaxUploadBytes(n int64) {
	if n <= 0 {
		maxUploadBytes = 32 << 20
		return
	}
	maxUploadBytes = n
}

// generateTimeout bounds a /chat or /ask request, in seconds.
// Zero means no additional timeout beyond server/connection timeouts.
var generateTimeout = int64(0)

// SetGenerateTimeoutSeconds sets the generation timeout (0 disables).
func SetGenerateTimeoutSeconds(sec int64) {
	if sec < 0 {
		sec = 0
	}
	generateTimeout = sec
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server. Empty
// methods or headers fall back to the middleware defaults.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
