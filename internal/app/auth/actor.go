package auth

// AdminActorID is the actor id of callers admitted through the legacy admin secret.
const AdminActorID = "admin"

// Source records how an actor was resolved.
type Source string

const (
	SourceNone        Source = ""
	SourceToken       Source = "token"
	SourceAdminSecret Source = "admin_secret"
	SourceSystem      Source = "system"
)

// Actor is the resolved identity of a request. The zero value is unauthenticated.
type Actor struct {
	ID     string
	Issuer string
	Admin  bool
	Source Source
}

// Anonymous returns an unauthenticated actor
func Anonymous() Actor {
	return Actor{}
}

// System is the actor used by background jobs
func System() Actor {
	return Actor{ID: "system", Admin: true, Source: SourceSystem}
}

// IsAuthenticated reports whether the actor was resolved
func (a Actor) IsAuthenticated() bool {
	return a.ID != ""
}

// IsAdmin reports whether the actor may perform admin-only operations
func (a Actor) IsAdmin() bool {
	return a.IsAuthenticated() && a.Admin
}
