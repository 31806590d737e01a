// internal/app/features/rooms/types.go
package rooms

// createRoomRequest is the body for POST /api/rooms.
type createRoomRequest struct {
	Name string `json:"name"`
}

// roomResponse is one room in API responses.
type roomResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	CreatedAt string `json:"created_at"`
}

// upsertMemberRequest is the body for PUT /api/rooms/{roomID}/members.
type upsertMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// removeMemberRequest is the body for DELETE /api/rooms/{roomID}/members.
type removeMemberRequest struct {
	Email string `json:"email"`
}

// memberResponse is one member row.
type memberResponse struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	JoinedAt string `json:"joined_at"`
}

// linkFileRequest is the body for POST /api/rooms/{roomID}/files.
type linkFileRequest struct {
	ContentID string `json:"content_id"`
}

// fileResponse is one file row in room or personal listings.
type fileResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MediaType   string `json:"media_type"`
	SizeBytes   int64  `json:"size_bytes"`
	SHA256      string `json:"sha256"`
	DriveFileID string `json:"drive_file_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}
