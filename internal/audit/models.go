package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	ActorID   string            `json:"actor_id,omitempty"`
	Action    Action            `json:"action"`
	Entity    string            `json:"entity"`
	EntityID  string            `json:"entity_id,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
}

type Action string

const (
	ActionUserCreated    Action = "user_created"
	ActionUserUpdated    Action = "user_updated"
	ActionUserDeleted    Action = "user_deleted"
	ActionProfileCreated Action = "profile_created"
	ActionProfileUpdated Action = "profile_updated"
	ActionProfileDeleted Action = "profile_deleted"
	ActionPhotoUploaded  Action = "photo_uploaded"
	ActionBranchCreated  Action = "branch_created"
	ActionBranchUpdated  Action = "branch_updated"
	ActionBranchDeleted  Action = "branch_deleted"
	ActionLoginSucceeded Action = "login_succeeded"
	ActionLoginFailed    Action = "login_failed"
	ActionTokenRefreshed Action = "token_refreshed"
	ActionLogout         Action = "logout"
)
