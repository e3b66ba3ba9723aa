// Package email sends scan summary notifications to the configured
// admin recipients.
package email

import (
	"bytes"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/mergestat/timediff"
	"github.com/plexsweep/plexsweep/internal/config"
	mail "github.com/xhit/go-simple-mail/v2"
)

// NotificationService handles email notifications for scan results.
type NotificationService struct {
	config *config.EmailConfig
}

// CandidateLine is one flagged item in a scan summary email.
type CandidateLine struct {
	Title       string
	Year        int
	Size        string
	LastWatched string
}

// ScanSummary contains the data for a scan summary email.
type ScanSummary struct {
	RuleName     string
	Action       string
	StartedAt    time.Time
	Duration     time.Duration
	ItemsScanned int
	ItemsFlagged int
	TotalSize    string
	Candidates   []CandidateLine
	DryRun       bool
}

// New creates a new email notification service.
func New(cfg *config.EmailConfig) *NotificationService {
	return &NotificationService{
		config: cfg,
	}
}

// FormatSize renders a byte count the way the summary emails show it.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatLastWatched renders a watch timestamp relative to now.
func FormatLastWatched(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return timediff.TimeDiff(*t)
}

// SendScanSummary sends a scan summary to all configured recipients.
func (n *NotificationService) SendScanSummary(summary ScanSummary) error {
	if n.config == nil || !n.config.Enabled {
		log.Debug("Email notifications are disabled, skipping scan summary")
		return nil
	}
	if len(n.config.Recipients) == 0 {
		log.Warn("No email recipients configured, skipping scan summary")
		return nil
	}

	subject := fmt.Sprintf("[Plexsweep] Rule %q flagged %d items", summary.RuleName, summary.ItemsFlagged)
	if summary.DryRun {
		subject = "[Dry Run] " + subject
	}

	body, err := n.generateEmailBody(summary)
	if err != nil {
		return fmt.Errorf("failed to generate email body: %w", err)
	}

	return n.sendEmail(n.config.Recipients, subject, body)
}

//go:embed templates/*.html
var templatesFS embed.FS

// generateEmailBody creates the HTML email body.
func (n *NotificationService) generateEmailBody(summary ScanSummary) (string, error) {
	t, err := template.New("").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "scan_summary.html", summary); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// sendEmail sends an email using go-simple-mail library.
func (n *NotificationService) sendEmail(to []string, subject, body string) error {
	server := mail.NewSMTPClient()
	server.Host = n.config.SMTPHost
	server.Port = n.config.SMTPPort
	server.Username = n.config.Username
	server.Password = n.config.Password

	if n.config.UseSSL {
		server.Encryption = mail.EncryptionSSLTLS
	} else if n.config.UseTLS {
		server.Encryption = mail.EncryptionSTARTTLS
	} else {
		server.Encryption = mail.EncryptionNone
	}

	if n.config.InsecureSkipVerify {
		server.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	server.KeepAlive = false
	server.ConnectTimeout = 10 * time.Second
	server.SendTimeout = 10 * time.Second

	smtpClient, err := server.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() {
		if closeErr := smtpClient.Close(); closeErr != nil {
			log.Warn("Failed to close SMTP client", "error", closeErr)
		}
	}()

	email := mail.NewMSG()

	fromName := n.config.FromName
	if fromName == "" {
		fromName = "Plexsweep"
	}
	email.SetFrom(fmt.Sprintf("%s <%s>", fromName, n.config.FromEmail))

	for _, recipient := range to {
		email.AddTo(recipient)
	}

	email.SetSubject(subject)
	email.SetBody(mail.TextHTML, body)

	if err := email.Send(smtpClient); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Info("Scan summary sent", "recipients", len(to), "subject", subject)
	return nil
}
