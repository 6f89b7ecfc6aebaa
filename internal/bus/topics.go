package bus

import "fmt"

// Topics address rooms a subject joins at Push Bus connect time:
// volunteers join their own volunteer:<id> room, admins join the shared
// admins room, and everyone implicitly receives the global room.
const (
	prefixVolunteer = "volunteer"
	topicAdmins     = "admins"
	topicGlobal     = "global"
)

// VolunteerTopic returns the private room for a single volunteer.
func VolunteerTopic(volunteerID string) string {
	return fmt.Sprintf("%s:%s", prefixVolunteer, volunteerID)
}

// AdminsTopic returns the shared admin room.
func AdminsTopic() string {
	return topicAdmins
}

// GlobalTopic returns the room every connected subject implicitly joins.
func GlobalTopic() string {
	return topicGlobal
}
