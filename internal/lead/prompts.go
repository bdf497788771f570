package lead

import (
	"fmt"

	"empirepilot/internal/domain"
)

func locationPrompt(projectType string) string {
	return fmt.Sprintf("Great! A **%s** project. Where is the property located? (e.g., Southsea, Eastney, Milton, Fratton, or another Portsmouth area)", projectType)
}

func budgetPrompt(location string) string {
	return fmt.Sprintf("Perfect, **%s** - we know that area well! What's your approximate budget for this project?\n\n"+
		"1. Under £50,000\n2. £50,000 - £100,000\n3. £100,000 - £250,000\n4. £250,000+\n5. Not sure yet", location)
}

const timelinePrompt = "Thanks! When are you looking to start the project?\n\n" +
	"1. ASAP\n2. Within 3 months\n3. 3-6 months\n4. 6+ months\n5. Just exploring options"

const namePrompt = "Excellent! I have all the project details. To send you a personalised quote and have one of our team reach out, could you share your name?"

func emailPrompt(name string) string {
	return fmt.Sprintf("Nice to meet you, **%s**! What's the best email address to send your quote to?", name)
}

const phonePrompt = `Great! And what's the best phone number to reach you on? (Or type "skip" if you prefer email only)`

func summaryPrompt(l domain.Lead) string {
	return fmt.Sprintf(`**Thank you for your enquiry!** 🏗️

Here's a summary of your project:
- **Type:** %s
- **Location:** %s
- **Budget:** %s
- **Timeline:** %s
- **Contact:** %s

One of our project managers will be in touch within 24 hours to discuss your requirements in detail.

In the meantime, feel free to ask me any questions about building regulations, planning permission, or our services!`,
		l.ProjectType, l.Location, l.Budget, l.Timeline, l.ContactName)
}
