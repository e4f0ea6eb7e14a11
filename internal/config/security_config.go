package config

type SecurityLevel int

const (
	SecurityPublic        SecurityLevel = iota // No authentication
	SecurityAuthenticated                      // Valid access token, profile may be incomplete
	SecurityOnboarded                          // Access token and a completed profile
)

// RouteSecurityConfig maps named HTTP routes to their required security level
var RouteSecurityConfig = map[string]SecurityLevel{
	"Health":    SecurityPublic,
	"LocalFile": SecurityPublic,

	// Profile - reachable before onboarding so it can be completed
	"GetMyProfile":       SecurityAuthenticated,
	"UpdateMyProfile":    SecurityAuthenticated,
	"UploadAvatar":       SecurityAuthenticated,
	"GetProfile":         SecurityAuthenticated,
	"OnboardingStatus":   SecurityAuthenticated,
	"ListNotifications":  SecurityAuthenticated,
	"UnreadCount":        SecurityAuthenticated,
	"MarkNotification":   SecurityAuthenticated,
	"DeleteNotification": SecurityAuthenticated,

	// Meetups
	"SearchMeetups": SecurityOnboarded,
	"MyMeetups":     SecurityOnboarded,
	"CreateMeetup":  SecurityOnboarded,
	"GetMeetup":     SecurityOnboarded,
	"UpdateMeetup":  SecurityOnboarded,
	"DeleteMeetup":  SecurityOnboarded,

	// Membership
	"JoinMeetup":       SecurityOnboarded,
	"LeaveMeetup":      SecurityOnboarded,
	"MembershipStatus": SecurityOnboarded,
	"ListMembers":      SecurityOnboarded,
	"ListJoinRequests": SecurityOnboarded,
	"ApproveRequest":   SecurityOnboarded,
	"RejectRequest":    SecurityOnboarded,

	// Chat
	"ListMessages":     SecurityOnboarded,
	"SendMessage":      SecurityOnboarded,
	"GetMessage":       SecurityOnboarded,
	"EditMessage":      SecurityOnboarded,
	"DeleteMessage":    SecurityOnboarded,
	"PinMessage":       SecurityOnboarded,
	"UnpinMessage":     SecurityOnboarded,
	"UploadAttachment": SecurityOnboarded,

	// Activities
	"ListActivities":  SecurityOnboarded,
	"CreateActivity":  SecurityOnboarded,
	"UpdateActivity":  SecurityOnboarded,
	"DeleteActivity":  SecurityOnboarded,
	"RespondActivity": SecurityOnboarded,
	"ClearResponse":   SecurityOnboarded,

	// Realtime feed
	"Realtime": SecurityOnboarded,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := RouteSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown routes
	return SecurityOnboarded
}
