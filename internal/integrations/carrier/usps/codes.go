package usps

import "github.com/BearBump/MailTrack/internal/models"

// statuses maps USPS Track API event codes. Unlisted codes are network scans.
var statuses = models.StatusTable{
	"01": models.StatusDelivered,
	"I0": models.StatusDelivered,
	"17": models.StatusDelivered,
	"DX": models.StatusDelivered,

	"OF": models.StatusOutForDelivery,
	"59": models.StatusOutForDelivery,

	"02": models.StatusDeliveryAttempted,
	"52": models.StatusDeliveryAttempted,
	"53": models.StatusDeliveryAttempted,
	"54": models.StatusDeliveryAttempted,
	"55": models.StatusDeliveryAttempted,
	"56": models.StatusDeliveryAttempted,
	"57": models.StatusDeliveryAttempted,

	"09": models.StatusReturnedToSender,
	"21": models.StatusReturnedToSender,
	"22": models.StatusReturnedToSender,
	"23": models.StatusReturnedToSender,
	"24": models.StatusReturnedToSender,
	"25": models.StatusReturnedToSender,
	"26": models.StatusReturnedToSender,
	"27": models.StatusReturnedToSender,
	"28": models.StatusReturnedToSender,
	"29": models.StatusReturnedToSender,
	"31": models.StatusReturnedToSender,

	"04": models.StatusException,
	"05": models.StatusException,
	"44": models.StatusException,
	"51": models.StatusException,
	"GX": models.StatusException,

	"GS": models.StatusLabelCreated,
	"MA": models.StatusLabelCreated,
}
