package services

import (
	"fmt"
	"html"
	"log"
	"net/smtp"
	"strings"
)

const emailLayout = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: 'Segoe UI', Arial, sans-serif; margin: 0; padding: 0; background-color: #f8fafc;">
  <div style="max-width: 480px; margin: 40px auto; background: white; border-radius: 12px; box-shadow: 0 4px 24px rgba(0,0,0,0.08); overflow: hidden;">
    <div style="background: linear-gradient(135deg, #f97316 0%%, #16a34a 100%%); padding: 32px; text-align: center;">
      <h1 style="color: white; margin: 0; font-size: 24px; font-weight: 700;">Sports Trivia</h1>
    </div>
    <div style="padding: 32px;">
      <h2 style="margin: 0 0 16px; font-size: 20px; color: #1e293b;">%s</h2>
      %s
    </div>
  </div>
</body>
</html>`

type EmailService struct {
	host        string
	port        string
	user        string
	pass        string
	from        string
	frontendURL string
	devMode     bool
}

func NewEmailService(host, port, user, pass, from, frontendURL string) *EmailService {
	devMode := host == "" || user == ""
	if devMode {
		log.Println("⚠ Email service running in DEV MODE (logging to console)")
	}
	return &EmailService{
		host:        host,
		port:        port,
		user:        user,
		pass:        pass,
		from:        from,
		frontendURL: frontendURL,
		devMode:     devMode,
	}
}

func (s *EmailService) SendVerificationEmail(to, token string) error {
	verifyURL := fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, token)

	body := fmt.Sprintf(`<p style="color: #64748b; font-size: 14px; line-height: 1.6; margin: 0 0 24px;">
        Welcome! Verify your email to save your progress, achievements and leaderboard scores across devices.
      </p>
      %s
      <p style="color: #94a3b8; font-size: 12px; margin: 16px 0 0;">This link expires in 24 hours.</p>`,
		button(verifyURL, "Verify Email"))

	return s.sendHTML(to, "Verify your Sports Trivia account", fmt.Sprintf(emailLayout, "Verify Your Email", body))
}

// SendStreakReminderEmail nudges a player whose daily streak ends tonight.
func (s *EmailService) SendStreakReminderEmail(to, name, sport string, streakDays int) error {
	playURL := fmt.Sprintf("%s/quiz?sport=%s", s.frontendURL, sport)

	body := fmt.Sprintf(`<p style="color: #64748b; font-size: 14px; line-height: 1.6; margin: 0 0 24px;">
        Hi %s, your %d-day %s streak ends at midnight UTC. One quick quiz keeps it alive.
      </p>
      %s`, html.EscapeString(name), streakDays, html.EscapeString(sport), button(playURL, "Play Now"))

	subject := fmt.Sprintf("Keep your %d-day streak going", streakDays)
	return s.sendHTML(to, subject, fmt.Sprintf(emailLayout, "Don't Break the Streak", body))
}

// SendAchievementEmail lists newly unlocked achievement titles.
func (s *EmailService) SendAchievementEmail(to, name string, titles []string) error {
	if len(titles) == 0 {
		return nil
	}

	var items strings.Builder
	for _, t := range titles {
		items.WriteString(fmt.Sprintf(`<li style="margin: 4px 0;">%s</li>`, html.EscapeString(t)))
	}
	body := fmt.Sprintf(`<p style="color: #64748b; font-size: 14px; line-height: 1.6; margin: 0 0 16px;">
        Nice work, %s! You just unlocked:
      </p>
      <ul style="color: #1e293b; font-size: 14px; margin: 0 0 24px;">%s</ul>
      %s`, html.EscapeString(name), items.String(), button(s.frontendURL+"/achievements", "View Achievements"))

	return s.sendHTML(to, "New achievement unlocked", fmt.Sprintf(emailLayout, "Achievement Unlocked", body))
}

func button(href, label string) string {
	return fmt.Sprintf(`<a href="%s" style="display: inline-block; background: #f97316; color: white; text-decoration: none; padding: 12px 32px; border-radius: 8px; font-weight: 600; font-size: 14px;">%s</a>`, href, label)
}

func (s *EmailService) sendHTML(to, subject, htmlBody string) error {
	if s.devMode {
		log.Printf("📧 [DEV EMAIL] To: %s | Subject: %s", to, subject)
		return nil
	}

	headers := []string{
		fmt.Sprintf("From: %s", s.from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}

	message := strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody

	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(message))
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	log.Printf("📧 Email sent to %s: %s", to, subject)
	return nil
}
