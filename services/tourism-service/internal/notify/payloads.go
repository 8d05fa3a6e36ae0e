package notify

// Payloads carried by each notification kind.

type BookingAllocatedTourist struct {
	BookingID   string `json:"booking_id"`
	TouristName string `json:"tourist_name"`
	GuideName   string `json:"guide_name"`
	GuideEmail  string `json:"guide_email"`
	GuidePhone  string `json:"guide_phone,omitempty"`
	Destination string `json:"destination"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

type BookingAllocatedGuide struct {
	BookingID      string `json:"booking_id"`
	GuideName      string `json:"guide_name"`
	TouristName    string `json:"tourist_name"`
	TouristEmail   string `json:"tourist_email"`
	TouristPhone   string `json:"tourist_phone,omitempty"`
	Destination    string `json:"destination"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	PickupLocation string `json:"pickup_location,omitempty"`
	Adults         int    `json:"adults"`
	Children       int    `json:"children,omitempty"`
}

type EnrollmentPaymentLink struct {
	EnrollmentID string `json:"enrollment_id"`
	Name         string `json:"name"`
	Fee          string `json:"fee"`
	Currency     string `json:"currency"`
}

// EnrollmentCredentials carries the generated password in clear text; it
// lives in the outbox row until delivery.
type EnrollmentCredentials struct {
	EnrollmentID string `json:"enrollment_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
}
