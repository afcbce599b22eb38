package backend

import (
	"bytes"
	"encoding/json"
	"time"
)

// Timestamp tolerates missing or malformed dates by decoding them as the zero time.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	t.Time = time.Time{}
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
	}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// Pagination describes one page of a list endpoint.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalDocs  int  `json:"totalDocs"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// Page is the data shape of every list endpoint.
type Page[T any] struct {
	Results    []T        `json:"results"`
	Pagination Pagination `json:"pagination"`
}

// withDefaults fills the pagination the backend left out.
func (p Page[T]) withDefaults(page, limit int) Page[T] {
	if p.Results == nil {
		p.Results = []T{}
	}
	if p.Pagination.Page == 0 {
		p.Pagination.Page = page
	}
	if p.Pagination.Limit == 0 {
		p.Pagination.Limit = limit
	}
	return p
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	AvatarURL string    `json:"avatarUrl"`
	CreatedAt Timestamp `json:"createdAt"`
}

// DisplayName prefers username, then name, then email.
func (u User) DisplayName() string {
	switch {
	case u.Username != "":
		return u.Username
	case u.Name != "":
		return u.Name
	default:
		return u.Email
	}
}

// Customer is a client company jobs are posted for.
type Customer struct {
	ID            string    `json:"id"`
	ClientName    string    `json:"clientName"`
	ClientEmail   string    `json:"clientEmail"`
	ClientPhoneNo string    `json:"clientPhoneNo"`
	CreatedAt     Timestamp `json:"createdAt"`
}

// ClientInput is the create/update payload for a client.
type ClientInput struct {
	ClientName    string `json:"clientName"`
	ClientEmail   string `json:"clientEmail"`
	ClientPhoneNo string `json:"clientPhoneNo"`
}

type ScaffoldApplication struct {
	ID                   string    `json:"id"`
	Revision             int       `json:"revision"`
	Applicant            *User     `json:"applicant"`
	Photos               []string  `json:"photos"`
	SignatureURL         string    `json:"signatureUrl"`
	TermsAccepted        bool      `json:"termsAccepted"`
	RiskAssessmentAgreed bool      `json:"riskAssessmentAgreed"`
	CreatedAt            Timestamp `json:"createdAt"`
}

type Job struct {
	ID                  string               `json:"id"`
	Title               string               `json:"title"`
	Location            string               `json:"location"`
	Description         string               `json:"description"`
	JobStatus           string               `json:"jobStatus"`
	Status              string               `json:"status"`
	QuotationNo         string               `json:"quotationNo"`
	ScaffoldStatus      string               `json:"scaffoldStatus"`
	CompanyName         string               `json:"companyName"`
	Client              *Customer            `json:"client"`
	Thumbnail           string               `json:"thumbnail"`
	Photos              []string             `json:"photos"`
	MethodStatementURL  string               `json:"methodStatementUrl"`
	RiskAssessmentURL   string               `json:"riskAssessmentUrl"`
	PostedBy            *User                `json:"postedBy"`
	AssignedTo          []User               `json:"assignedTo"`
	LatestScaffold      *ScaffoldApplication `json:"latestScaffold"`
	ScaffoldApplication *ScaffoldApplication `json:"scaffoldApplication"`
	CreatedAt           Timestamp            `json:"createdAt"`
	UpdatedAt           Timestamp            `json:"updatedAt"`
}

func (j Job) DisplayStatus() string {
	if j.JobStatus != "" {
		return j.JobStatus
	}
	return j.Status
}

func (j Job) ClientName() string {
	if j.Client != nil && j.Client.ClientName != "" {
		return j.Client.ClientName
	}
	return j.CompanyName
}

// Scaffold returns the latest scaffold application, falling back to the original one.
func (j Job) Scaffold() *ScaffoldApplication {
	if j.LatestScaffold != nil {
		return j.LatestScaffold
	}
	return j.ScaffoldApplication
}
