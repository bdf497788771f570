package pilot

import (
	"empirepilot/internal/domain"
	"empirepilot/internal/keyword"
)

const WelcomeText = `Welcome to **Empire Contractors Ltd**! 🏗️

I'm the **Empire Pilot**, your AI construction assistant. I'm here 24/7 to help with:

✅ **Free quotes** for extensions, HMOs & new builds
✅ **Planning permission** guidance for Portsmouth
✅ **Building regulations** information
✅ **PICMS compliance** & SHEQ credentials

How can I help you today?`

const hmoText = `**HMO Conversions in Portsmouth**

We specialise in converting properties into Houses in Multiple Occupation (HMOs). Here's what you need to know:

**Planning Permission:**
- Article 4 Direction applies in many Portsmouth areas
- Planning permission typically required for 3+ unrelated occupants
- We handle all applications for you

**Building Regulations:**
- Fire safety (30-min fire doors, detection systems)
- Room sizes (minimum 6.51m² for single, 10.22m² for double)
- Kitchen/bathroom ratios
- Sound insulation between units

**Our HMO Services:**
- Feasibility studies
- Full design and planning
- Building regs compliance
- Complete construction

Would you like a free feasibility assessment for your property?`

const planningText = `**Planning Permission in Portsmouth**

**Do I need planning permission?**
- Extensions under 3m (semi) or 4m (detached) usually Permitted Development
- Loft conversions within 40m³ often PD
- HMO conversions almost always need full planning in Portsmouth

**Our Planning Services:**
- Pre-application advice
- Full application submission
- Liaison with Portsmouth City Council
- Appeals if required

**Typical Timescales:**
- Householder applications: 8 weeks
- Full applications: 13 weeks
- Pre-application responses: 4-6 weeks

We have a 94% first-time approval rate with Portsmouth Council!

Would you like us to check if your project needs planning permission?`

const credentialsText = `**Our Credentials & Compliance**

**Industry Memberships:**
- Federation of Master Builders (FMB) Member
- TrustMark Registered
- Constructionline Approved

**Quality Standards:**
- ISO 9001 Quality Management Ready
- ISO 45001 Health & Safety Ready
- PICMS (SHEQ) Compliant

**Insurance:**
- £10M Public Liability
- £5M Professional Indemnity
- Contractor All Risks

**What This Means for You:**
- Guaranteed quality workmanship
- Comprehensive warranties
- Health & Safety excellence
- Financial protection

View our full compliance documentation at any time. Would you like more details on any certification?`

const quoteText = `**Request a Quote**

I'd love to help you get a quote! To provide an accurate estimate, I'll need to ask a few quick questions.

First, what type of project are you planning?

1. **Extension** (single/double storey, rear/side)
2. **HMO Conversion** (property to multiple occupancy)
3. **New Build** (residential or commercial)
4. **Renovation** (modernisation, structural changes)
5. **Commercial Fit-out** (office, retail, hospitality)

Just type the number or tell me more about your project!`

const greetingText = `Hello! 👋 I'm the **Empire Pilot**, your AI assistant for Empire Contractors Ltd.

I can help you with:
- **Getting a quote** for your construction project
- **HMO conversion** information and regulations
- **Planning permission** guidance for Portsmouth
- Information about our **credentials and compliance**

What would you like to know about?`

const fallbackText = `Thanks for your message! I can help with:

1. **Getting a quote** - Tell me about your project
2. **HMO conversions** - Portsmouth regulations & compliance
3. **Planning permission** - Local requirements & process
4. **Our credentials** - ISO, FMB, PICMS certifications

What would you like to explore?`

type faqAnswer struct {
	Text string
	// StartsQualification moves a fresh lead into the qualifying stage.
	StartsQualification bool
}

var faqRules = []keyword.Rule[faqAnswer]{
	{Match: keyword.Any("hmo", "conversion"), Result: faqAnswer{Text: hmoText}},
	{Match: keyword.Any("planning", "permission"), Result: faqAnswer{Text: planningText}},
	{Match: keyword.Any("credential", "certified", "iso", "picms"), Result: faqAnswer{Text: credentialsText}},
	{Match: keyword.Any("quote", "price", "cost", "estimate"), Result: faqAnswer{Text: quoteText, StartsQualification: true}},
	{Match: keyword.Any("hello", "hi", "hey"), Result: faqAnswer{Text: greetingText}},
}

type Action string

const (
	ActionQuote       Action = "quote"
	ActionHMO         Action = "hmo"
	ActionPlanning    Action = "planning"
	ActionCredentials Action = "credentials"
)

type QuickAction struct {
	Action Action `json:"action"`
	Label  string `json:"label"`
}

var quickActions = []QuickAction{
	{Action: ActionQuote, Label: "Get a Quote"},
	{Action: ActionHMO, Label: "HMO Info"},
	{Action: ActionPlanning, Label: "Planning Help"},
	{Action: ActionCredentials, Label: "Our Credentials"},
}

var actionAnswers = map[Action]faqAnswer{
	ActionQuote:       {Text: quoteText, StartsQualification: true},
	ActionHMO:         {Text: hmoText},
	ActionPlanning:    {Text: planningText},
	ActionCredentials: {Text: credentialsText},
}

// QuickActions lists the buttons shown under the chat input.
func QuickActions() []QuickAction {
	return append([]QuickAction(nil), quickActions...)
}

func answerFAQ(input string) faqAnswer {
	if a, ok := keyword.First(faqRules, input); ok {
		return a
	}
	return faqAnswer{Text: fallbackText}
}

func applyAnswer(l domain.Lead, a faqAnswer) (domain.Lead, bool) {
	if !a.StartsQualification || l.Qualifying() || l.Qualified() {
		return l, false
	}
	l.Status = domain.LeadQualifying
	return l, true
}
