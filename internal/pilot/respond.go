package pilot

import (
	"empirepilot/internal/domain"
	"empirepilot/internal/lead"
)

// Reply is the assistant's answer to one user turn.
type Reply struct {
	Text        string
	Lead        domain.Lead
	LeadChanged bool
}

// Respond decides the assistant reply to input given the current lead draft.
// A qualifying lead first tries to fill its next field; anything that does not
// fill it is answered from the FAQ table.
func Respond(l domain.Lead, input string) Reply {
	if l.Qualifying() {
		if next, prompt, ok := lead.Advance(l, input); ok {
			return Reply{Text: prompt, Lead: next, LeadChanged: true}
		}
	}
	a := answerFAQ(input)
	next, changed := applyAnswer(l, a)
	return Reply{Text: a.Text, Lead: next, LeadChanged: changed}
}

func respondToAction(l domain.Lead, action Action) (Reply, string, bool) {
	a, ok := actionAnswers[action]
	if !ok {
		return Reply{}, "", false
	}
	label := string(action)
	for _, qa := range quickActions {
		if qa.Action == action {
			label = qa.Label
		}
	}
	next, changed := applyAnswer(l, a)
	return Reply{Text: a.Text, Lead: next, LeadChanged: changed}, label, true
}

func stageName(l domain.Lead) string {
	return lead.StageOf(l).String()
}
