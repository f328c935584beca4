package models

// Dashboard is the per-student view of the course catalog. Every catalog
// course appears in exactly one of the three lists.
type Dashboard struct {
	Student   UserInfo `json:"student"`
	Enrolled  []Course `json:"enrolled"`
	Available []Course `json:"available"`
	Finished  []Course `json:"finished"`
}
