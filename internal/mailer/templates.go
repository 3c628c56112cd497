package mailer

import (
	"fmt"
	"time"
)

func VerificationEmail(to, username, link string) Email {
	return Email{
		To:      to,
		Subject: "Verify your email - Muhasabah App",
		Body: fmt.Sprintf("Assalaam alaykum %s,\n\nClick this link to verify your email: %s\n",
			username, link),
	}
}

func ResendVerificationEmail(to, username, link string) Email {
	return Email{
		To:      to,
		Subject: "Resend Email Verification",
		Body:    fmt.Sprintf("Assalaam alaykum %s,\n\nVerify your email: %s\n", username, link),
	}
}

func PasswordResetEmail(to, link string) Email {
	return Email{
		To:      to,
		Subject: "Reset Your Password",
		Body:    fmt.Sprintf("Click the link below to reset your password:\n%s\n", link),
	}
}

func ApprovalEmail(to, username, sittingName string) Email {
	return Email{
		To:      to,
		Subject: "Your Sitting Membership Has Been Approved!",
		Body: fmt.Sprintf(
			"Assalaam alaykum %s,\n\nYour request to join the sitting '%s' has been approved.\n"+
				"You're now eligible to check in and participate.\n\nJazaakum Allahu khayran.",
			username, sittingName),
	}
}

func MissedCheckInEmail(to, username, todoItem string, day time.Time) Email {
	return Email{
		To:      to,
		Subject: "Reminder: You missed your check-in yesterday",
		Body: fmt.Sprintf(
			"Assalaam alaykum %s,\n\nYou missed your to-do: '%s' on %s.\nTry not to miss today's check-in.",
			username, todoItem, day.Format(time.DateOnly)),
	}
}

// MissedCheckInMessage is the short gateway text for the same reminder.
func MissedCheckInMessage(todoItem string) string {
	return fmt.Sprintf("Reminder: You missed '%s' yesterday.\nDon't miss today's. May Allah strengthen you.", todoItem)
}
