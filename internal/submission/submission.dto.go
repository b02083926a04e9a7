package submission

type ReportRequest struct {
	LocationName   string   `json:"location_name"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	Description    string   `json:"description"`
	Urgency        Urgency  `json:"urgency"`
	SiteType       SiteType `json:"site_type"`
	BeforePhotoURL string   `json:"before_photo_url"`
}

func (r *ReportRequest) Validate() error {
	if r.LocationName == "" || r.Description == "" || r.BeforePhotoURL == "" {
		return ErrInvalidPayload
	}
	if !r.Urgency.Valid() || !r.SiteType.Valid() {
		return ErrInvalidPayload
	}
	if !(Geolocation{Latitude: r.Latitude, Longitude: r.Longitude}).Valid() {
		return ErrInvalidLocation
	}
	return nil
}

type CompleteRequest struct {
	AfterPhotoURL         string `json:"after_photo_url"`
	CompletionDescription string `json:"completion_description,omitempty"`
	IdempotencyKey        string `json:"idempotency_key"`
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

type VerifyRequest struct {
	Decision       Decision `json:"decision"`
	IdempotencyKey string   `json:"idempotency_key"`
}

type ListResponse struct {
	Submissions []*Submission `json:"submissions"`
	NextCursor  string        `json:"next_cursor,omitempty"`
}
