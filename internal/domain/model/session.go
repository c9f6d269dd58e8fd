package model

import "time"

// Profile is the subset of the account's own user object shown to the owner.
type Profile struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	Phone     string
	Premium   bool
}

// ServiceMessage is a message received from the service sender.
// Bold spans of Text are wrapped in "**".
type ServiceMessage struct {
	ID   int
	Date time.Time
	Text string
}

// CodeEntry is one formatted line of a service code report.
type CodeEntry struct {
	Time      string
	HTML      string
	Extracted bool
}

type ServiceCodeReport struct {
	Total   int
	Entries []CodeEntry
}

func (r *ServiceCodeReport) Empty() bool { return r == nil || r.Total == 0 }

// SessionEndpoint is the decoded content of a session string.
type SessionEndpoint struct {
	DC      int
	Address string
	Port    int
	AuthKey []byte
}
