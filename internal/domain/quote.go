package domain

import "time"

type Quote struct {
	ID               string    `json:"id"`
	ProjectType      string    `json:"projectType"`
	Budget           string    `json:"budget"`
	Timeline         string    `json:"timeline"`
	Address          string    `json:"address"`
	Description      string    `json:"description,omitempty"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	PreferredContact string    `json:"preferredContact"`
	CreatedAt        time.Time `json:"createdAt"`
}

type AuditEntry struct {
	Actor    string
	Action   string
	MetaJSON string
}
