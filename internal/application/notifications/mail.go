package notifications

import (
	"context"
	"errors"
	"fmt"

	"showroom-backend/internal/application/emails"
	"showroom-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Directory resolves where to email an account.
type Directory interface {
	Contact(ctx context.Context, side domain.Side, accountID uuid.UUID) (email, name string, err error)
}

// GormDirectory reads contact_email and name from the brand or showroom row.
type GormDirectory struct {
	DB *gorm.DB
}

func (d *GormDirectory) Contact(ctx context.Context, side domain.Side, accountID uuid.UUID) (string, string, error) {
	var row struct {
		Name         string
		ContactEmail string
	}
	var model interface{} = &domain.Brand{}
	if side == domain.SideShowroom {
		model = &domain.Showroom{}
	}
	err := d.DB.WithContext(ctx).Model(model).Select("name", "contact_email").Where("id = ?", accountID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", "", nil
	}
	return row.ContactEmail, row.Name, err
}

type mailCopy struct {
	subject  string
	headline string
	body     string
}

var mailCopies = map[string]mailCopy{
	CandidatureSubmitted: {"New candidature", "A brand applied to your showroom", "A brand sent you a candidature. Review the offer and accept or reject it before it expires."},
	CandidatureAccepted:  {"Candidature accepted", "Your candidature was accepted", "The showroom accepted your candidature. You can now propose products for placement."},
	CandidatureRejected:  {"Candidature rejected", "Your candidature was rejected", "The showroom declined your candidature. Your reserved credit has been returned."},
	CandidatureCancelled: {"Candidature withdrawn", "A candidature was withdrawn", "The brand withdrew its candidature."},
	CandidatureExpired:   {"Candidature expired", "A candidature expired", "A pending candidature passed its expiry date without a decision."},
	PlacementProposed:    {"New placement offer", "You received a placement offer", "Your partner proposed products for your showroom. Accept, decline or counter the offer."},
	PlacementAccepted:    {"Placement offer accepted", "Your placement offer was accepted", "The products you proposed are now active."},
	PlacementDeclined:    {"Placement offer declined", "Your placement offer was declined", "Your partner declined the pending placement offer."},
	PlacementCountered:   {"Placement counter-offer", "You received a counter-offer", "Your partner changed the terms of the placement offer. Review the new terms."},
	PaymentRequested:     {"New payment request", "You received a payment request", "Your partner sent you a payment request. Accept it or contest it with a reason."},
	PaymentAccepted:      {"Payment request accepted", "Your payment request was accepted", "Your partner acknowledged your payment request."},
	PaymentContested:     {"Payment request contested", "Your payment request was contested", "Your partner contested your payment request. Check the note they left."},
}

// MailSink emails recipients for the transitions worth an email; others are skipped.
type MailSink struct {
	Sender    emails.Sender
	Directory Directory
}

func (m *MailSink) Notify(ctx context.Context, ev Event) error {
	if m == nil || m.Sender == nil || m.Directory == nil {
		return nil
	}
	mc, ok := mailCopies[ev.Type]
	if !ok {
		return nil
	}
	var errs []error
	for _, r := range ev.Recipients() {
		email, name, err := m.Directory.Contact(ctx, r.Side, r.AccountID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if email == "" {
			continue
		}
		if err := m.Sender.SendPartnershipUpdate(ctx, email, name, mc.subject, mc.headline, mc.body); err != nil {
			errs = append(errs, fmt.Errorf("mail %s to %s: %w", ev.Type, r.Side, err))
		}
	}
	return errors.Join(errs...)
}
