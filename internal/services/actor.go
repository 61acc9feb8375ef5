package services

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID    string
	Admin     bool
	IPAddress string
	UserAgent string
}

func (a Actor) authenticated() bool {
	return a.UserID != ""
}

// CanView reports whether the actor may read a payment owned by ownerID.
func (a Actor) CanView(ownerID string) bool {
	return a.Admin || (a.UserID != "" && a.UserID == ownerID)
}
