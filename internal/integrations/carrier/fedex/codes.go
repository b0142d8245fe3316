package fedex

import "github.com/BearBump/MailTrack/internal/models"

// statuses maps FedEx Track Service event types. Codes not listed are movement
// scans and resolve to IN_TRANSIT.
var statuses = models.StatusTable{
	"DL": models.StatusDelivered,

	"RS": models.StatusReturnedToSender,
	"RP": models.StatusReturnedToSender,
	"LP": models.StatusReturnedToSender,
	"RG": models.StatusReturnedToSender,
	"RD": models.StatusReturnedToSender,

	"CA": models.StatusException,
	"DE": models.StatusException,
	"SE": models.StatusException,

	"OD": models.StatusOutForDelivery,

	"PU": models.StatusLabelCreated,
	"PX": models.StatusLabelCreated,
	"OC": models.StatusLabelCreated,

	"AA": models.StatusInTransit,
	"AC": models.StatusInTransit,
	"AD": models.StatusInTransit,
	"AF": models.StatusInTransit,
	"AP": models.StatusInTransit,
	"AR": models.StatusInTransit,
	"AX": models.StatusInTransit,
	"BR": models.StatusInTransit,
	"CC": models.StatusInTransit,
	"CD": models.StatusInTransit,
	"CH": models.StatusInTransit,
	"CP": models.StatusInTransit,
	"CU": models.StatusInTransit,
	"DD": models.StatusInTransit,
	"DP": models.StatusInTransit,
	"DR": models.StatusInTransit,
	"DS": models.StatusInTransit,
	"DY": models.StatusInTransit,
	"EA": models.StatusInTransit,
	"ED": models.StatusInTransit,
	"EO": models.StatusInTransit,
	"EP": models.StatusInTransit,
	"FD": models.StatusInTransit,
	"HL": models.StatusInTransit,
	"IT": models.StatusInTransit,
	"IX": models.StatusInTransit,
	"LO": models.StatusInTransit,
	"OF": models.StatusInTransit,
	"OX": models.StatusInTransit,
	"PD": models.StatusInTransit,
	"PF": models.StatusInTransit,
	"PL": models.StatusInTransit,
	"PM": models.StatusInTransit,
	"RC": models.StatusInTransit,
	"RM": models.StatusInTransit,
	"RR": models.StatusInTransit,
	"SF": models.StatusInTransit,
	"SH": models.StatusInTransit,
	"SP": models.StatusInTransit,
	"TP": models.StatusInTransit,
	"TR": models.StatusInTransit,
}
