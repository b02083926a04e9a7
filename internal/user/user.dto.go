package user

import "encoding/json"

type CreateUserRequest struct {
	ClerkID     string `json:"clerk_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	ImageURL    string `json:"image_url"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// ProfileResponse joins the stored row with the derived level fields.
type ProfileResponse struct {
	User
	Level             string `json:"level"`
	PointsToNextLevel int    `json:"points_to_next_level"`
	TotalCleanups     int    `json:"total_cleanups"`
}

// ClerkWebhookEvent is the envelope Clerk posts to the webhook endpoint.
type ClerkWebhookEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type ClerkEmailAddress struct {
	EmailAddress string `json:"email_address"`
	Verification struct {
		Status string `json:"status"`
	} `json:"verification"`
}

type ClerkUserData struct {
	ID              string              `json:"id"`
	Username        string              `json:"username"`
	FirstName       string              `json:"first_name"`
	LastName        string              `json:"last_name"`
	ImageURL        string              `json:"image_url"`
	ProfileImageURL string              `json:"profile_image_url"`
	EmailAddresses  []ClerkEmailAddress `json:"email_addresses"`
}
