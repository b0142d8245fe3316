package ups

import "github.com/BearBump/MailTrack/internal/models"

// statuses maps UPS activity status types.
var statuses = models.StatusTable{
	"M":  models.StatusLabelCreated,
	"MV": models.StatusException,
	"P":  models.StatusInTransit,
	"I":  models.StatusInTransit,
	"W":  models.StatusInTransit,
	"O":  models.StatusOutForDelivery,
	"X":  models.StatusException,
	"RS": models.StatusReturnedToSender,
	"D":  models.StatusDelivered,
	"DO": models.StatusDelivered,
	"DD": models.StatusDelivered,
}
