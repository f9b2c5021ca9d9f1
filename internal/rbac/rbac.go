package rbac

type Role string
type Action string

const (
	RoleViewer    Role = "viewer"
	RoleAssistant Role = "assistant"
	RoleAdjuster  Role = "adjuster"
	RoleAdmin     Role = "admin"
)

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionManage Action = "manage"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleAdjuster:
		return action == ActionRead || action == ActionWrite
	case RoleAssistant:
		return action == ActionRead || action == ActionWrite
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleViewer, RoleAssistant, RoleAdjuster, RoleAdmin:
		return Role(role)
	default:
		return RoleViewer
	}
}
