package resetflow

import "time"

// FlowTTL is how long a password reset may take from requesting the code to
// choosing the new password.
const FlowTTL = 15 * time.Minute

// Flow carries a password reset across the forgot-password, verify-otp and
// reset-password pages.
type Flow struct {
	Email     string
	OTP       string // Set once the backend accepted it
	Verified  bool
	CreatedAt time.Time
}

type Repo interface {
	Upsert(flowID string, flow *Flow) error
	Get(flowID string) (*Flow, error)
	Delete(flowID string) error
}
