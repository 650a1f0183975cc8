// Package stream models the four camera feeds of one driving session.
package stream

import "fmt"

// Role identifies one of the four fixed camera positions
type Role string

const (
	RoleFrontCenter Role = "front_center"
	RoleFrontLeft   Role = "front_left"
	RoleFrontRight  Role = "front_right"
	RoleRear        Role = "rear"
)

// Roles lists all camera roles in display order
var Roles = []Role{RoleFrontCenter, RoleFrontLeft, RoleFrontRight, RoleRear}

// ReferenceRole is the single stream whose natural playback progression
// drives the authoritative clock
const ReferenceRole = RoleFrontCenter

// Valid reports whether r is one of the four known camera roles
func (r Role) Valid() bool {
	switch r {
	case RoleFrontCenter, RoleFrontLeft, RoleFrontRight, RoleRear:
		return true
	}
	return false
}

// SourceLocator builds the media URL for one camera of a session. The
// naming convention is fixed: {base}/{session}/{role}.mp4, one
// independently seekable stream per role.
func SourceLocator(baseURL, sessionID string, role Role) string {
	return fmt.Sprintf("%s/%s/%s.mp4", baseURL, sessionID, role)
}

// Handle is a transport command sink for one camera stream. Commands
// are fire-and-forget: the controller does not wait for the stream to
// confirm, and per-stream failures are logged rather than surfaced.
type Handle interface {
	Role() Role
	Source() string
	Play() error
	Pause()
	Seek(seconds float64)
}

// Factory creates the four handles for a newly selected session
type Factory interface {
	NewHandle(role Role, source string) Handle
}

