package dto

// WhoamiResponse describes the identity resolved for the current request
type WhoamiResponse struct {
	Authenticated bool   `json:"authenticated" example:"true"`
	ActorID       string `json:"actorId,omitempty" example:"user_2abc"`
	Issuer        string `json:"issuer,omitempty" example:"https://clerk.example.com"`
	IsAdmin       bool   `json:"isAdmin" example:"false"`
	Source        string `json:"source" example:"token" enums:"none,token,admin_secret"`
}
