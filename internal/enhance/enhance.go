// Package enhance turns a short site update into a news post by wrapping it in
// one of a fixed set of templates.
package enhance

import (
	"fmt"
	"strings"

	"empirepilot/internal/keyword"
)

const (
	TemplateStructural = "structural"
	TemplateHMO        = "hmo"
	TemplateCompletion = "completion"
	TemplateDefault    = "default"
)

type Result struct {
	Template string   `json:"template"`
	Text     string   `json:"enhanced"`
	Hashtags []string `json:"hashtags"`
}

type template struct {
	name     string
	format   string
	hashtags []string
}

var structural = template{
	name:     TemplateStructural,
	format:   "⚙️ Structural Progress Update\n\n%s\n\nOur structural steel installation is now complete, marking a significant milestone in this project. The precision engineering and expert installation by our team ensures the building will stand strong for generations to come.\n\n🏗️ Empire Contractors - Building Excellence Across Portsmouth",
	hashtags: []string{"#StructuralSteel", "#ConstructionProgress", "#PortsmouthBuilders", "#EmpireContractors", "#QualityCraftsmanship"},
}

var hmo = template{
	name:     TemplateHMO,
	format:   "🏠 HMO Conversion Update\n\n%s\n\nTransforming Portsmouth properties into high-quality HMO accommodation. Our team ensures full compliance with local regulations while delivering exceptional living spaces.\n\n✅ FMB Member | ISO Ready | PICMS Compliant",
	hashtags: []string{"#HMOConversion", "#PortsmouthProperty", "#PropertyInvestment", "#EmpireContractors", "#HMOExperts"},
}

var completion = template{
	name:     TemplateCompletion,
	format:   "✅ Project Completion\n\n%s\n\nAnother successful project delivered on time and to the highest standards. Thank you to our incredible team and valued client for their trust in Empire Contractors.\n\n📞 Ready for your next project? Contact us for a free quote.",
	hashtags: []string{"#ProjectComplete", "#EmpireContractors", "#PortsmouthConstruction", "#QualityGuaranteed", "#CustomerSatisfaction"},
}

var fallback = template{
	name:     TemplateDefault,
	format:   "%s\n\nAnother milestone achieved by our expert team at Empire Contractors. Quality craftsmanship and attention to detail in every project we deliver.",
	hashtags: []string{"#EmpireContractors", "#PortsmouthConstruction", "#QualityBuilding", "#FMBMember"},
}

var rules = []keyword.Rule[template]{
	{Match: keyword.Any("steel", "structural"), Result: structural},
	{Match: keyword.Any("hmo", "conversion"), Result: hmo},
	{Match: keyword.Any("finished", "complete"), Result: completion},
}

// Enhance is deterministic: the same text always yields the same result.
func Enhance(text string) Result {
	t, ok := keyword.First(rules, text)
	if !ok {
		t = fallback
	}
	tags := make([]string, len(t.hashtags))
	copy(tags, t.hashtags)
	return Result{
		Template: t.name,
		Text:     fmt.Sprintf(t.format, strings.TrimSpace(text)),
		Hashtags: tags,
	}
}
