// internal/app/system/limits/limits.go
package limits

// Request body size limits. These prevent memory exhaustion from
// oversized request bodies; imported file bytes are not affected since
// they come from the Drive API, not the request.
const (
	// MaxJSONBodySize caps ordinary JSON API request bodies.
	MaxJSONBodySize = 1 << 20 // 1 MB

	// MaxImportRequestSize caps the import request body (file id lists).
	MaxImportRequestSize = 64 << 10 // 64 KB
)
