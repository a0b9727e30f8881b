package models

// Stats holds row counts used by the monitoring reporter.
type Stats struct {
	Links int `json:"links"`
	Users int `json:"users"`
	Votes int `json:"votes"`
}
