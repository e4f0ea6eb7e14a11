package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Handlers groups the route handlers. Files may be nil when objects are not
// stored locally.
type Handlers struct {
	Profiles      *ProfileHandler
	Meetups       *MeetupHandler
	Memberships   *MembershipHandler
	Chat          *ChatHandler
	Activities    *ActivityHandler
	Notifications *NotificationHandler
	Realtime      *RealtimeHandler
	Files         *FileHandler
}

// NewRouter registers every route by name; the auth middleware reads the
// name to pick the route's security level.
func NewRouter(h Handlers, auth *AuthMiddleware) *mux.Router {
	r := mux.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(auth.Handler)

	r.HandleFunc("/health", health).Methods("GET").Name("Health")
	if h.Files != nil {
		r.HandleFunc("/files/{key:.+}", h.Files.LocalFile).Methods("GET").Name("LocalFile")
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	// Profile
	api.HandleFunc("/me/profile", h.Profiles.GetMyProfile).Methods("GET").Name("GetMyProfile")
	api.HandleFunc("/me/profile", h.Profiles.UpdateMyProfile).Methods("PUT").Name("UpdateMyProfile")
	api.HandleFunc("/me/avatar", h.Profiles.UploadAvatar).Methods("POST").Name("UploadAvatar")
	api.HandleFunc("/me/onboarding", h.Profiles.OnboardingStatus).Methods("GET").Name("OnboardingStatus")
	api.HandleFunc("/profiles/{id}", h.Profiles.GetProfile).Methods("GET").Name("GetProfile")

	// Notifications
	api.HandleFunc("/notifications", h.Notifications.ListNotifications).Methods("GET").Name("ListNotifications")
	api.HandleFunc("/notifications/unread-count", h.Notifications.UnreadCount).Methods("GET").Name("UnreadCount")
	api.HandleFunc("/notifications/{id}/read", h.Notifications.MarkNotification).Methods("POST").Name("MarkNotification")
	api.HandleFunc("/notifications/{id}", h.Notifications.DeleteNotification).Methods("DELETE").Name("DeleteNotification")

	// Meetups
	api.HandleFunc("/meetups", h.Meetups.SearchMeetups).Methods("GET").Name("SearchMeetups")
	api.HandleFunc("/meetups", h.Meetups.CreateMeetup).Methods("POST").Name("CreateMeetup")
	api.HandleFunc("/me/meetups", h.Meetups.MyMeetups).Methods("GET").Name("MyMeetups")
	api.HandleFunc("/meetups/{id}", h.Meetups.GetMeetup).Methods("GET").Name("GetMeetup")
	api.HandleFunc("/meetups/{id}", h.Meetups.UpdateMeetup).Methods("PUT").Name("UpdateMeetup")
	api.HandleFunc("/meetups/{id}", h.Meetups.DeleteMeetup).Methods("DELETE").Name("DeleteMeetup")

	// Membership
	api.HandleFunc("/meetups/{id}/join", h.Memberships.JoinMeetup).Methods("POST").Name("JoinMeetup")
	api.HandleFunc("/meetups/{id}/leave", h.Memberships.LeaveMeetup).Methods("POST").Name("LeaveMeetup")
	api.HandleFunc("/meetups/{id}/membership", h.Memberships.MembershipStatus).Methods("GET").Name("MembershipStatus")
	api.HandleFunc("/meetups/{id}/members", h.Memberships.ListMembers).Methods("GET").Name("ListMembers")
	api.HandleFunc("/meetups/{id}/requests", h.Memberships.ListJoinRequests).Methods("GET").Name("ListJoinRequests")
	api.HandleFunc("/requests/{id}/approve", h.Memberships.ApproveRequest).Methods("POST").Name("ApproveRequest")
	api.HandleFunc("/requests/{id}/reject", h.Memberships.RejectRequest).Methods("POST").Name("RejectRequest")

	// Chat: the community channel has no meetup id
	api.HandleFunc("/community/messages", h.Chat.ListMessages).Methods("GET").Name("ListMessages")
	api.HandleFunc("/community/messages", h.Chat.SendMessage).Methods("POST").Name("SendMessage")
	api.HandleFunc("/community/attachments", h.Chat.UploadAttachment).Methods("POST").Name("UploadAttachment")
	api.HandleFunc("/meetups/{id}/messages", h.Chat.ListMessages).Methods("GET").Name("ListMessages")
	api.HandleFunc("/meetups/{id}/messages", h.Chat.SendMessage).Methods("POST").Name("SendMessage")
	api.HandleFunc("/meetups/{id}/attachments", h.Chat.UploadAttachment).Methods("POST").Name("UploadAttachment")
	api.HandleFunc("/messages/{id}", h.Chat.GetMessage).Methods("GET").Name("GetMessage")
	api.HandleFunc("/messages/{id}", h.Chat.EditMessage).Methods("PATCH").Name("EditMessage")
	api.HandleFunc("/messages/{id}", h.Chat.DeleteMessage).Methods("DELETE").Name("DeleteMessage")
	api.HandleFunc("/messages/{id}/pin", h.Chat.PinMessage).Methods("POST").Name("PinMessage")
	api.HandleFunc("/messages/{id}/pin", h.Chat.UnpinMessage).Methods("DELETE").Name("UnpinMessage")

	// Activities
	api.HandleFunc("/meetups/{id}/activities", h.Activities.ListActivities).Methods("GET").Name("ListActivities")
	api.HandleFunc("/meetups/{id}/activities", h.Activities.CreateActivity).Methods("POST").Name("CreateActivity")
	api.HandleFunc("/activities/{id}", h.Activities.UpdateActivity).Methods("PUT").Name("UpdateActivity")
	api.HandleFunc("/activities/{id}", h.Activities.DeleteActivity).Methods("DELETE").Name("DeleteActivity")
	api.HandleFunc("/activities/{id}/response", h.Activities.RespondActivity).Methods("PUT").Name("RespondActivity")
	api.HandleFunc("/activities/{id}/response", h.Activities.ClearResponse).Methods("DELETE").Name("ClearResponse")

	// Realtime feed
	api.HandleFunc("/realtime", h.Realtime.Realtime).Methods("GET").Name("Realtime")

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
