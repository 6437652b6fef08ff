package models

const (
	RoleOrganizer = "Organizer"
	RoleAttendee  = "Attendee"
)

type User struct {
	ID        int    `json:"id"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Password  string `json:"password,omitempty"`
	Role      string `json:"role,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ValidRole reports whether role is one of the two account roles.
func ValidRole(role string) bool {
	return role == RoleOrganizer || role == RoleAttendee
}
