package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/minebank/bank-service/internal/config"
	"github.com/sirupsen/logrus"
)

// Sender mails settlement reports to the bank admin via SMTP.
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

func (s *Sender) send(subject, body string) {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.AdminEmail}
	e.Subject = subject
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email %q: %v", subject, err)
		return
	}
	s.logger.Infof("Email sent to %s: %s", s.cfg.AdminEmail, subject)
}

// MaturityReport summarizes a batch settlement run.
func (s *Sender) MaturityReport(depositsSettled, creditsSettled int, totalPaidOut float64) {
	body := fmt.Sprintf(
		"Settlement run at %s\n\n"+
			"Deposits matured: %d\n"+
			"Credits repaid: %d\n"+
			"Total transferred: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		depositsSettled, creditsSettled, totalPaidOut,
	)
	s.send("Settlement Report", body)
}

// OverdueCredit alerts about a client unable to repay at maturity.
func (s *Sender) OverdueCredit(clientName string, amountDue float64) {
	body := fmt.Sprintf(
		"Client %s could not repay a matured credit.\n"+
			"Amount due: %.2f\n"+
			"The credit remains active and flagged overdue.\n",
		clientName, amountDue,
	)
	s.send("Overdue Credit Notification", body)
}
