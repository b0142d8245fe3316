package ups

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BearBump/MailTrack/internal/integrations/carrier"
	"github.com/BearBump/MailTrack/internal/models"
	"github.com/stretchr/testify/require"
)

func track(t *testing.T, body string, now time.Time) models.TrackingResult {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/track/v1/details/1Z999AA10123456784", r.URL.Path)
		require.Equal(t, "lic", r.Header.Get("AccessLicenseNumber"))
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	p := New(srv.URL, "lic")
	p.now = func() time.Time { return now }
	return carrier.NewHTTPTracker(p, time.Second).Track(context.Background(), "1Z999AA10123456784")
}

func TestTrack_InTransitWithDateAndTime(t *testing.T) {
	res := track(t, `{"trackResponse":{"shipment":[{"package":[{
		"trackingNumber":"1Z999AA10123456784",
		"deliveryDate":[{"type":"SDD","date":"20210506"}],
		"deliveryTime":{"type":"EOD","endTime":"93000"},
		"activity":[
			{"status":{"type":"I","description":"Departed from Facility","code":"DP"},"date":"20210503","time":"041500"},
			{"status":{"type":"P","description":"Pickup Scan","code":"PU"},"date":"20210502","time":"180000"}
		]}]}]}}`, time.Now())

	require.Equal(t, models.StatusInTransit, res.Status)
	require.Equal(t, "Departed from Facility", res.Label)
	require.NotNil(t, res.DeliveryTime)
	require.Equal(t, time.Date(2021, 5, 6, 9, 30, 0, 0, time.UTC), *res.DeliveryTime)
}

func TestTrack_ExceptionWithDeliveryAttemptLabel(t *testing.T) {
	res := track(t, `{"trackResponse":{"shipment":[{"package":[{
		"activity":[{"status":{"type":"X","description":"DELIVERY ATTEMPT MADE - RECEIVER NOT AVAILABLE"}}]
	}]}]}}`, time.Now())

	require.Equal(t, models.StatusDeliveryAttempted, res.Status)
	require.Nil(t, res.DeliveryTime)
}

func TestTrack_TimeOnlyUsesToday(t *testing.T) {
	now := time.Date(2021, 5, 3, 8, 0, 0, 0, time.UTC)
	res := track(t, `{"trackResponse":{"shipment":[{"package":[{
		"deliveryTime":{"endTime":"170000"},
		"activity":[{"status":{"type":"O","description":"Out For Delivery Today"}}]
	}]}]}}`, now)

	require.Equal(t, models.StatusOutForDelivery, res.Status)
	require.Equal(t, time.Date(2021, 5, 3, 17, 0, 0, 0, time.UTC), *res.DeliveryTime)
}

func TestTrack_DateOnlyAtMidnight(t *testing.T) {
	res := track(t, `{"trackResponse":{"shipment":[{"package":[{
		"deliveryDate":[{"date":"20210503"}],
		"activity":[{"status":{"type":"D","description":"Delivered"}}]
	}]}]}}`, time.Now())

	require.Equal(t, models.StatusDelivered, res.Status)
	require.Equal(t, time.Date(2021, 5, 3, 0, 0, 0, 0, time.UTC), *res.DeliveryTime)
}

func TestTrack_Unavailable(t *testing.T) {
	cases := map[string]string{
		"top level errors": `{"errors":[{"code":"250003","message":"Invalid Access License number"}]}`,
		"response errors":  `{"response":{"errors":[{"code":"151044","message":"No tracking information available"}]}}`,
		"warnings":         `{"trackResponse":{"shipment":[{"warnings":[{"code":"TW0001","message":"Tracking Information Not Found"}]}]}}`,
		"no package":       `{"trackResponse":{"shipment":[{}]}}`,
		"no shipment":      `{"trackResponse":{}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, models.Unavailable(), track(t, body, time.Now()))
		})
	}
}

func TestTrack_UnlistedStatusTypeIsInTransit(t *testing.T) {
	res := track(t, `{"trackResponse":{"shipment":[{"package":[{
		"activity":[{"status":{"type":"NA","description":"Not Available"}}]
	}]}]}}`, time.Now())

	require.Equal(t, models.StatusInTransit, res.Status)
	require.Equal(t, "Not Available", res.Label)
}
