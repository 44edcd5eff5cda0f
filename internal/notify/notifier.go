// Package notify dispatches application-status notifications to adopters.
package notify

import (
	"context"
	"fmt"

	"github.com/pupperhq/pupper-server/internal/model"
)

// StatusNotification carries everything needed to tell an adopter about a
// decision on their application.
type StatusNotification struct {
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	ApplicantName string `json:"applicantName"`
	DogName       string `json:"dogName"`
	Shelter       string `json:"shelter"`
	Status        string `json:"status"`
}

// Notifier delivers a status notification. Implementations must be safe for
// concurrent use; delivery failures are reported so the caller can retry.
type Notifier interface {
	Send(ctx context.Context, n StatusNotification) error
}

// Subject renders the notification subject line.
func (n StatusNotification) Subject() string {
	if n.Status == model.ApplicationStatusApproved {
		return fmt.Sprintf("Your adoption application for %s has been approved!", n.DogName)
	}
	return fmt.Sprintf("Application Update for %s", n.DogName)
}

// Body renders the plain-text notification body for either outcome.
func (n StatusNotification) Body() string {
	if n.Status == model.ApplicationStatusApproved {
		return fmt.Sprintf("Congratulations %s!\n\n"+
			"Great news! Your adoption application for %s from %s has been APPROVED!\n\n"+
			"Next Steps:\n"+
			"- The shelter will contact you directly within 24-48 hours\n"+
			"- They will arrange a meet-and-greet with %s\n"+
			"- Complete any remaining paperwork\n"+
			"- Prepare your home for your new family member!\n\n"+
			"Thank you for choosing to adopt. %s is lucky to have found such a caring family!\n\n"+
			"Best regards,\nThe Pupper Adoption Team",
			n.ApplicantName, n.DogName, n.Shelter, n.DogName, n.DogName)
	}
	return fmt.Sprintf("Hello %s,\n\n"+
		"Thank you for your interest in adopting %s from %s.\n\n"+
		"After careful consideration, we regret to inform you that your application "+
		"was not selected at this time. This decision was difficult as we received "+
		"many wonderful applications.\n\n"+
		"Please don't be discouraged! There are many other dogs looking for loving homes. "+
		"We encourage you to:\n"+
		"- Browse other available dogs on our platform\n"+
		"- Consider applying for other dogs that might be a great match\n"+
		"- Keep checking back as new dogs are added regularly\n\n"+
		"Thank you for your commitment to pet adoption.\n\n"+
		"Best regards,\nThe Pupper Adoption Team",
		n.ApplicantName, n.DogName, n.Shelter)
}
