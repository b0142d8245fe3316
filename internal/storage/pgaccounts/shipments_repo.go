package pgaccounts

import (
	"context"

	"github.com/BearBump/MailTrack/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadShipments(ctx context.Context, q querier, accountID uint64) ([]*models.Shipment, error) {
	rows, err := q.Query(ctx, `
SELECT
  tracking_number, carrier_code, status, label, delivery_time,
  source_message_id, source_message_date, sender_name, sender_domain,
  created_at, updated_at
FROM shipments
WHERE account_id = $1
ORDER BY position ASC, id ASC
`, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "select shipments")
	}
	defer rows.Close()

	out := []*models.Shipment{}
	for rows.Next() {
		var sh models.Shipment
		var status int16
		if err := rows.Scan(
			&sh.TrackingNumber, &sh.CarrierCode, &status, &sh.Label, &sh.DeliveryTime,
			&sh.SourceMessageID, &sh.SourceMessageDate, &sh.SenderName, &sh.SenderDomain,
			&sh.CreatedAt, &sh.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan shipment")
		}
		sh.Status = models.ShipmentStatus(status)
		out = append(out, &sh)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
