// Package email delivers generated invoices to customers.
//
// Message assembly lives in InvoiceMailer; transport lives behind Sender
// (SMTP, log, outbox directory, or several at once).
package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"os"
	"strings"
	"time"

	"github.com/ginjaninja78/invoice-batch/internal/config"
	"github.com/ginjaninja78/invoice-batch/internal/invoice"
	"github.com/ginjaninja78/invoice-batch/internal/logging"
	"github.com/ginjaninja78/invoice-batch/internal/words"
)

// ErrEmailDisabled is returned by SendInvoice when email.enabled is false.
var ErrEmailDisabled = errors.New("email sending is disabled")

// emailDate is the long date layout used in message bodies.
const emailDate = "January 02, 2006"

var bodyTemplate = template.Must(template.New("invoice").Parse(`<html>
<body>
  <h2>Invoice from {{.Company.Name}}</h2>

  <p>Dear {{.CustomerName}},</p>

  <p>Please find attached your invoice #{{.Number}} for the amount of
  <strong>{{.Total}}</strong> ({{.TotalInWords}} Only).</p>

  <h3>Invoice Details:</h3>
  <ul>
    <li><strong>Invoice Number:</strong> {{.Number}}</li>
    <li><strong>Issue Date:</strong> {{.IssueDate}}</li>
    <li><strong>Due Date:</strong> {{.DueDate}}</li>
    <li><strong>Total Amount:</strong> {{.Total}}</li>
  </ul>

  <p>If you have any questions about this invoice, please don't hesitate to contact us:</p>
  <ul>
    <li><strong>Email:</strong> {{.Company.Email}}</li>
    <li><strong>Phone:</strong> {{.Company.Phone}}</li>
  </ul>

  <p>Thank you for your business!</p>

  <p>Best regards,<br>
  {{.Company.Name}}<br>
  {{.Company.Email}}</p>
</body>
</html>
`))

type bodyData struct {
	Company      config.CompanyConfig
	CustomerName string
	Number       string
	IssueDate    string
	DueDate      string
	Total        string
	TotalInWords string
}

// InvoiceMailer composes invoice emails and hands them to a Sender.
type InvoiceMailer struct {
	sender   Sender
	settings config.EmailConfig
	company  config.CompanyConfig
	currency string
	logger   logging.Logger
	now      func() time.Time
}

// NewInvoiceMailer creates an InvoiceMailer.
func NewInvoiceMailer(cfg *config.Config, sender Sender, logger logging.Logger) *InvoiceMailer {
	return &InvoiceMailer{
		sender:   sender,
		settings: cfg.Email,
		company:  cfg.Company,
		currency: cfg.Invoice.CurrencySymbol,
		logger:   logging.OrNop(logger),
		now:      time.Now,
	}
}

// Subject returns the subject line for inv.
func (m *InvoiceMailer) Subject(inv invoice.Invoice) string {
	return fmt.Sprintf("Invoice #%s from %s", inv.Number(), m.company.Name)
}

// SendInvoice emails inv to its customer, copying the configured Cc
// addresses, with the PDF at pdfPath attached.
//
// RETURNS:
//   - ErrEmailDisabled when email is turned off.
//   - An error if the PDF is missing or the sender fails.
func (m *InvoiceMailer) SendInvoice(ctx context.Context, inv invoice.Invoice, pdfPath string) error {
	if !m.settings.Enabled {
		m.logger.Info("Email sending is disabled")
		return ErrEmailDisabled
	}

	msg, err := m.BuildMessage(inv, pdfPath)
	if err != nil {
		return err
	}

	recipients := append([]string{inv.Customer().Email()}, m.settings.Cc...)
	if err := m.sender.Send(ctx, recipients, m.Subject(inv), msg); err != nil {
		return fmt.Errorf("failed to send invoice email: %w", err)
	}

	m.logger.Info("Invoice email sent successfully to %s", inv.Customer().Email())
	return nil
}

// TestConnection checks that the configured sender can reach its server.
// Senders without a server always pass.
func (m *InvoiceMailer) TestConnection(ctx context.Context) error {
	tester, ok := m.sender.(ConnectionTester)
	if !ok {
		return nil
	}
	if err := tester.TestConnection(ctx); err != nil {
		m.logger.Error("Email connection test failed: %v", err)
		return err
	}
	m.logger.Info("Email connection test successful")
	return nil
}

// BuildMessage assembles the complete MIME message: an HTML body followed by
// the PDF attachment named invoice_<number>.pdf.
func (m *InvoiceMailer) BuildMessage(inv invoice.Invoice, pdfPath string) ([]byte, error) {
	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("PDF file not found: %s", pdfPath)
		}
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	var body bytes.Buffer
	total := m.currency + invoice.FormatAmount(inv.TotalAmount())
	err = bodyTemplate.Execute(&body, bodyData{
		Company:      m.company,
		CustomerName: inv.Customer().Name(),
		Number:       inv.Number(),
		IssueDate:    inv.IssueDate().Format(emailDate),
		DueDate:      inv.DueDate().Format(emailDate),
		Total:        total,
		TotalInWords: words.AmountToWords(inv.TotalAmount()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render email body: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	from, err := formatAddresses(m.settings.FromEmail)
	if err != nil {
		return nil, err
	}
	to, err := formatAddresses(inv.Customer().Email())
	if err != nil {
		return nil, err
	}
	headers := [][2]string{
		{"From", from},
		{"To", to},
	}
	if len(m.settings.Cc) > 0 {
		cc, err := formatAddresses(m.settings.Cc...)
		if err != nil {
			return nil, err
		}
		headers = append(headers, [2]string{"Cc", cc})
	}
	headers = append(headers,
		[2]string{"Subject", mime.QEncoding.Encode("utf-8", m.Subject(inv))},
		[2]string{"Date", m.now().Format(time.RFC1123Z)},
		[2]string{"MIME-Version", "1.0"},
		[2]string{"Content-Type", "multipart/mixed; boundary=" + mw.Boundary()},
	)
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h[0], h[1])
	}
	buf.WriteString("\r\n")

	htmlPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=UTF-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return nil, err
	}
	qp := quotedprintable.NewWriter(htmlPart)
	if _, err := qp.Write(body.Bytes()); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("invoice_%s.pdf", inv.Number())
	pdfPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {mime.FormatMediaType("application/pdf", map[string]string{"name": filename})},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": filename})},
	})
	if err != nil {
		return nil, err
	}
	if err := writeBase64Lines(pdfPart, pdf); err != nil {
		return nil, err
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBase64Lines writes data base64 encoded in 76 character lines.
func writeBase64Lines(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		if _, err := w.Write([]byte(encoded[:76] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	_, err := w.Write([]byte(encoded + "\r\n"))
	return err
}

// formatAddresses renders addresses as one RFC 5322 address list. An
// address holding a line break is rejected so it cannot start a new header.
func formatAddresses(addrs ...string) (string, error) {
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if strings.ContainsAny(addr, "\r\n") {
			return "", fmt.Errorf("invalid email address %q", addr)
		}
		out = append(out, (&mail.Address{Address: addr}).String())
	}
	return strings.Join(out, ", "), nil
}
