package template

// Template ids for the platform's built-in notifications.
const (
	SwapAccepted  = "swap_accepted"
	SwapDeclined  = "swap_declined"
	SwapCompleted = "swap_completed"
	SwapReminder  = "swap_reminder"
	Welcome       = "welcome"
)

// DefaultRegistry carries the built-in notification templates and is
// the registry used unless a service is configured otherwise.
var DefaultRegistry = NewRegistry()

func init() {
	DefaultRegistry.MustRegister(SwapAccepted,
		"Good news! {{.UserName}} accepted your swap request for {{.SkillWanted}}. "+
			"You can now coordinate your first session.")
	DefaultRegistry.MustRegister(SwapDeclined,
		"{{.UserName}} declined your swap request for {{.SkillWanted}}. "+
			"Keep browsing, there are other members offering this skill.")
	DefaultRegistry.MustRegister(SwapCompleted,
		"Your skill swap with {{.UserName}} is complete. "+
			"Leave a review to help other members.")
	DefaultRegistry.MustRegister(SwapReminder,
		"Reminder: your session with {{.UserName}} is scheduled for {{.When}}.")
	DefaultRegistry.MustRegister(Welcome,
		"Welcome to the community, {{.UserName}}! "+
			"List a skill you can teach and one you want to learn to get started.")
}
