package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"parking_manager/config"
	"parking_manager/model"
)

var digestTmpl = template.Must(template.New("digest").Parse(`<h2>Parking report for {{.Day}}</h2>
<ul>
  <li>Users: {{.Report.Users}}</li>
  <li>Slots: {{.Report.Slots}}</li>
  <li>Booked: {{.Report.Bookings.Booked}}</li>
  <li>Completed: {{.Report.Bookings.Completed}}</li>
  <li>Cancelled: {{.Report.Bookings.Cancelled}}</li>
</ul>`))

var receiptTmpl = template.Must(template.New("receipt").Parse(`<h2>Booking {{.Code}} confirmed</h2>
<p>Slot {{.SlotNumber}} on {{.Date}} at {{.Time}} for vehicle {{.Vehicle}}.</p>`))

// Mailer sends admin digests through gomail and booking receipts through
// jordan-wright/email. An unconfigured Mailer drops everything.
type Mailer struct {
	settings *config.Settings
	log      logrus.FieldLogger

	// send is swapped in tests.
	send func(e *email.Email) error
}

func NewMailer(settings *config.Settings, log logrus.FieldLogger) *Mailer {
	m := &Mailer{settings: settings, log: log.WithField("component", "mailer")}
	m.send = func(e *email.Email) error {
		addr := fmt.Sprintf("%s:%d", settings.SMTPHost, settings.SMTPPort)
		auth := smtp.PlainAuth("", settings.SMTPUsername, settings.SMTPPassword, settings.SMTPHost)
		return e.Send(addr, auth)
	}
	return m
}

func (m *Mailer) Enabled() bool {
	return m != nil && m.settings != nil && m.settings.MailEnabled()
}

// SendReportDigest mails the daily report synchronously.
func (m *Mailer) SendReportDigest(to string, day time.Time, report *model.ReportData) error {
	if !m.Enabled() || to == "" {
		return nil
	}

	var body bytes.Buffer
	if err := digestTmpl.Execute(&body, map[string]any{"Day": day.Format("2006-01-02"), "Report": report}); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.settings.SMTPFrom)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Parking report "+day.Format("2006-01-02"))
	msg.SetBody("text/html", body.String())

	d := gomail.NewDialer(m.settings.SMTPHost, m.settings.SMTPPort, m.settings.SMTPUsername, m.settings.SMTPPassword)
	return d.DialAndSend(msg)
}

// BuildReceipt renders the confirmation email for a booking.
func (m *Mailer) BuildReceipt(to string, b *model.Booking) (*email.Email, error) {
	slotNumber := 0
	if b.Slot != nil {
		slotNumber = b.Slot.SlotNumber
	}
	var body bytes.Buffer
	if err := receiptTmpl.Execute(&body, map[string]any{
		"Code":       b.Code,
		"SlotNumber": slotNumber,
		"Date":       b.BookingDate.Format("2006-01-02"),
		"Time":       b.BookingTime,
		"Vehicle":    b.VehicleNumber,
	}); err != nil {
		return nil, err
	}

	e := email.NewEmail()
	e.From = m.settings.SMTPFrom
	e.To = []string{to}
	e.Subject = "Booking confirmed #" + b.Code
	e.HTML = body.Bytes()
	return e, nil
}

// SendBookingReceipt mails the receipt in the background.
func (m *Mailer) SendBookingReceipt(to string, b *model.Booking) {
	if !m.Enabled() || to == "" {
		return
	}
	e, err := m.BuildReceipt(to, b)
	if err != nil {
		m.log.WithError(err).Error("render booking receipt")
		return
	}
	go func() {
		if err := m.send(e); err != nil {
			m.log.WithError(err).WithField("booking_id", b.ID).Error("send booking receipt")
		}
	}()
}
