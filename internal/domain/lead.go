package domain

type LeadStatus string

const (
	LeadQualifying LeadStatus = "qualifying"
	LeadQualified  LeadStatus = "qualified"
)

// Lead is filled one field per user turn, in declaration order.
type Lead struct {
	ProjectType  string     `json:"projectType,omitempty"`
	Location     string     `json:"location,omitempty"`
	Budget       string     `json:"budget,omitempty"`
	Timeline     string     `json:"timeline,omitempty"`
	ContactName  string     `json:"contactName,omitempty"`
	ContactEmail string     `json:"contactEmail,omitempty"`
	ContactPhone string     `json:"contactPhone,omitempty"`
	Status       LeadStatus `json:"status,omitempty"`
}

func (l Lead) IsZero() bool {
	return l == Lead{}
}

func (l Lead) Qualifying() bool {
	return l.Status == LeadQualifying
}

func (l Lead) Qualified() bool {
	return l.Status == LeadQualified
}
