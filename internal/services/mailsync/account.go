package mailsync

import (
	"context"
	"strings"

	"github.com/BearBump/MailTrack/internal/extract"
	"github.com/BearBump/MailTrack/internal/models"
	"github.com/pkg/errors"
)

// Sync refreshes known shipments and scans for new ones. Without force it
// does nothing when the account was synced within the sync interval.
func (s *Syncer) Sync(ctx context.Context, acc *models.Account, force bool) error {
	if !force && acc.LastSyncedAt != nil && s.now().Sub(*acc.LastSyncedAt) < s.cfg.SyncInterval {
		return nil
	}

	if changed := s.SyncExisting(ctx, acc.Shipments); len(changed) > 0 {
		if err := s.store.SaveAccount(ctx, acc); err != nil {
			return errors.Wrap(err, "save account")
		}
		for _, sh := range changed {
			s.notify(ctx, acc.Email, sh, ChangeUpdated)
		}
	}
	return s.SyncNew(ctx, acc)
}

// AddShipment validates and tracks a manually entered shipment. Input is
// checked before any lookup, and a duplicate leaves the collection as is.
func (s *Syncer) AddShipment(ctx context.Context, acc *models.Account, in models.ShipmentCreateInput) (*models.Shipment, error) {
	number := extract.Normalize(in.TrackingNumber)
	code := strings.ToLower(strings.TrimSpace(in.CarrierCode))
	senderName := strings.TrimSpace(in.SenderName)

	switch {
	case number == "":
		return nil, errors.Wrap(ErrInvalidInput, "tracking number is required")
	case code == "":
		return nil, errors.Wrap(ErrInvalidInput, "carrier code is required")
	case senderName == "":
		return nil, errors.Wrap(ErrInvalidInput, "sender is required")
	case !s.tracker.IsCarrierSupported(code):
		return nil, errors.Wrapf(ErrInvalidInput, "carrier %q is not supported", code)
	case !extract.Validate(code, number):
		return nil, errors.Wrapf(ErrInvalidInput, "%q is not a valid %s tracking number", number, code)
	case acc.HasShipment(number):
		return nil, errors.Wrapf(ErrDuplicateShipment, "%s", number)
	}

	res, err := s.tracker.TrackOne(ctx, code, number)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sh := &models.Shipment{
		TrackingNumber:    number,
		CarrierCode:       code,
		SourceMessageDate: now,
		SenderName:        senderName,
		SenderDomain:      strings.TrimSpace(in.SenderDomain),
		CreatedAt:         now,
	}
	sh.Apply(res, now)
	acc.Shipments = append(acc.Shipments, sh)

	if err := s.store.SaveAccount(ctx, acc); err != nil {
		return nil, errors.Wrap(err, "save account")
	}
	s.notify(ctx, acc.Email, sh, ChangeCreated)
	return sh, nil
}

// DeleteShipments removes the listed numbers and returns how many were removed.
func (s *Syncer) DeleteShipments(ctx context.Context, acc *models.Account, numbers []string) (int, error) {
	drop := make(map[string]struct{}, len(numbers))
	for _, n := range numbers {
		drop[strings.ToUpper(strings.TrimSpace(n))] = struct{}{}
	}

	kept := acc.Shipments[:0]
	var removed []*models.Shipment
	for _, sh := range acc.Shipments {
		if _, ok := drop[sh.TrackingNumber]; ok {
			removed = append(removed, sh)
			continue
		}
		kept = append(kept, sh)
	}
	acc.Shipments = kept

	if len(removed) == 0 {
		return 0, nil
	}
	if err := s.store.SaveAccount(ctx, acc); err != nil {
		return 0, errors.Wrap(err, "save account")
	}
	for _, sh := range removed {
		s.notify(ctx, acc.Email, sh, ChangeDeleted)
	}
	return len(removed), nil
}

// RestoreShipments forgets the last sync time and rescans the full window.
// Numbers still in the collection are not looked up again by the scan.
func (s *Syncer) RestoreShipments(ctx context.Context, acc *models.Account) error {
	acc.LastSyncedAt = nil
	if err := s.store.SaveAccount(ctx, acc); err != nil {
		return errors.Wrap(err, "save account")
	}
	return s.Sync(ctx, acc, true)
}

// ResetShipments drops the whole collection and rebuilds it from the mailbox.
func (s *Syncer) ResetShipments(ctx context.Context, acc *models.Account) error {
	acc.Shipments = nil
	acc.LastSyncedAt = nil
	if err := s.store.SaveAccount(ctx, acc); err != nil {
		return errors.Wrap(err, "save account")
	}
	return s.Sync(ctx, acc, true)
}
