// internal/email/mailer/member_welcome.go
package mailer

import "github.com/refera-hq/refera/internal/email"

// WelcomeTemplateData contains data for the member welcome email template
type WelcomeTemplateData struct {
	OrganizationName string
	DashboardLink    string
}

// SendMemberWelcomeEmail notifies a person that their account is now linked
// to an organization.
func SendMemberWelcomeEmail(s *email.Service, to, organizationName, dashboardLink string) error {
	templateData := WelcomeTemplateData{
		OrganizationName: organizationName,
		DashboardLink:    dashboardLink,
	}

	emailData := email.EmailData{
		To:           to,
		FromName:     "Refera",
		Subject:      "You have been added to " + organizationName,
		TemplateName: "member_welcome",
		TemplateData: templateData,
	}

	return s.SendEmail(emailData)
}
