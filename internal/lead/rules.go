package lead

import "empirepilot/internal/keyword"

var projectTypeRules = []keyword.Rule[string]{
	{Match: keyword.Any("1", "extension"), Result: "Extension"},
	{Match: keyword.Any("2", "hmo"), Result: "HMO Conversion"},
	{Match: keyword.Any("3", "new build"), Result: "New Build"},
	{Match: keyword.Any("4", "renovation"), Result: "Renovation"},
	{Match: keyword.Any("5", "commercial"), Result: "Commercial"},
}

var budgetRules = []keyword.Rule[string]{
	{Match: keyword.Any("1", "under", "50"), Result: "Under £50,000"},
	{Match: keyword.Any("2", "100"), Result: "£50,000 - £100,000"},
	{Match: keyword.Any("3", "250"), Result: "£100,000 - £250,000"},
	{Match: keyword.Any("4", "over"), Result: "£250,000+"},
	{Match: keyword.Any("5", "not sure"), Result: "To be confirmed"},
}

var timelineRules = []keyword.Rule[string]{
	{Match: keyword.Any("1", "asap"), Result: "ASAP"},
	{Match: keyword.Any("2", "within 3"), Result: "Within 3 months"},
	{Match: keyword.Any("3", "3-6"), Result: "3-6 months"},
	{Match: keyword.Any("4", "6+"), Result: "6+ months"},
	{Match: keyword.Any("5", "exploring"), Result: "Exploring options"},
}

// Checked in order, so "old portsmouth" resolves to "Portsmouth".
var portsmouthAreas = []string{
	"southsea", "eastney", "milton", "fratton", "copnor",
	"hilsea", "cosham", "portsmouth", "gunwharf", "old portsmouth",
}

const PhoneNotProvided = "Not provided"
