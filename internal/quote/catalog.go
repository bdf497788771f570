package quote

type ProjectType struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var projectTypes = []ProjectType{
	{ID: "extension", Label: "Extension", Description: "Single/double storey, rear or side extensions"},
	{ID: "hmo", Label: "HMO Conversion", Description: "Property conversion to multiple occupancy"},
	{ID: "newbuild", Label: "New Build", Description: "Complete new residential or commercial build"},
	{ID: "renovation", Label: "Renovation", Description: "Modernisation, structural changes, refurbishment"},
	{ID: "commercial", Label: "Commercial", Description: "Office, retail, hospitality fit-outs"},
}

var budgetRanges = []string{
	"Under £50,000",
	"£50,000 - £100,000",
	"£100,000 - £250,000",
	"£250,000 - £500,000",
	"£500,000+",
	"Not sure yet",
}

var timelines = []string{
	"ASAP",
	"Within 3 months",
	"3-6 months",
	"6-12 months",
	"Just exploring options",
}

var contactMethods = []string{"email", "phone"}

// Options is everything the wizard renders as choices.
type Options struct {
	ProjectTypes   []ProjectType `json:"projectTypes"`
	BudgetRanges   []string      `json:"budgetRanges"`
	Timelines      []string      `json:"timelines"`
	ContactMethods []string      `json:"contactMethods"`
}

func Catalog() Options {
	return Options{
		ProjectTypes:   append([]ProjectType(nil), projectTypes...),
		BudgetRanges:   append([]string(nil), budgetRanges...),
		Timelines:      append([]string(nil), timelines...),
		ContactMethods: append([]string(nil), contactMethods...),
	}
}

func projectType(id string) (ProjectType, bool) {
	for _, p := range projectTypes {
		if p.ID == id {
			return p, true
		}
	}
	return ProjectType{}, false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
