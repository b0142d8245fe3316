// Package shipments_api serves carrier lookups and account shipment
// collections over JSON HTTP.
package shipments_api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/BearBump/MailTrack/internal/broker/messages"
	"github.com/BearBump/MailTrack/internal/integrations/carrier"
	"github.com/BearBump/MailTrack/internal/mailbox"
	"github.com/BearBump/MailTrack/internal/models"
	"github.com/BearBump/MailTrack/internal/services/mailsync"
	"github.com/BearBump/MailTrack/internal/storage/pgaccounts"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

type TrackingService interface {
	TrackOne(ctx context.Context, carrierCode, trackingNumber string) (models.TrackingResult, error)
	Carriers() []string
}

type AccountStore interface {
	UpsertAccount(ctx context.Context, email, accessToken, refreshToken string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	WithAccountLock(ctx context.Context, email string, fn func(acc *models.Account) error) error
}

type Syncer interface {
	Sync(ctx context.Context, acc *models.Account, force bool) error
	AddShipment(ctx context.Context, acc *models.Account, in models.ShipmentCreateInput) (*models.Shipment, error)
	DeleteShipments(ctx context.Context, acc *models.Account, numbers []string) (int, error)
	RestoreShipments(ctx context.Context, acc *models.Account) error
	ResetShipments(ctx context.Context, acc *models.Account) error
}

type Publisher interface {
	PublishJSON(ctx context.Context, topic, key string, v any) error
}

const maxBodyBytes = 1 << 20

type ShipmentsAPI struct {
	tracking TrackingService
	accounts AccountStore
	syncer   Syncer

	publisher Publisher
	syncTopic string
}

func New(tracking TrackingService, accounts AccountStore, syncer Syncer) *ShipmentsAPI {
	return &ShipmentsAPI{tracking: tracking, accounts: accounts, syncer: syncer}
}

// WithSyncPublisher enables POST /accounts/{email}/sync.
func (a *ShipmentsAPI) WithSyncPublisher(p Publisher, topic string) *ShipmentsAPI {
	a.publisher = p
	a.syncTopic = topic
	return a
}

func (a *ShipmentsAPI) Routes(r chi.Router) {
	r.Get("/carriers", a.listCarriers)
	r.Get("/carriers/{carrier}/track/{number}", a.trackOne)

	r.Route("/accounts/{email}", func(r chi.Router) {
		r.Put("/", a.putAccount)
		r.Get("/shipments", a.listShipments)
		r.Post("/shipments", a.addShipment)
		r.Post("/shipments/delete", a.deleteShipments)
		r.Post("/restore", a.restoreShipments)
		r.Post("/reset", a.resetShipments)
		r.Post("/sync", a.requestSync)
	})
}

type carriersResponse struct {
	Carriers []string `json:"carriers"`
}

type putAccountRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type shipmentsResponse struct {
	Email        string             `json:"email"`
	LastSyncedAt *time.Time         `json:"last_synced_at,omitempty"`
	Shipments    []*models.Shipment `json:"shipments"`
}

type deleteShipmentsRequest struct {
	TrackingNumbers []string `json:"tracking_numbers"`
}

type deleteShipmentsResponse struct {
	Deleted int `json:"deleted"`
}

func (a *ShipmentsAPI) listCarriers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, carriersResponse{Carriers: a.tracking.Carriers()})
}

func (a *ShipmentsAPI) trackOne(w http.ResponseWriter, r *http.Request) {
	res, err := a.tracking.TrackOne(r.Context(), chi.URLParam(r, "carrier"), chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *ShipmentsAPI) putAccount(w http.ResponseWriter, r *http.Request) {
	email, err := emailParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req putAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.AccessToken == "" {
		writeError(w, errors.Wrap(mailsync.ErrInvalidInput, "access_token is required"))
		return
	}

	acc, err := a.accounts.UpsertAccount(r.Context(), email, req.AccessToken, req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

// listShipments runs a throttled sync before answering, so a client polling
// this endpoint hits the mailbox at most once per sync interval.
func (a *ShipmentsAPI) listShipments(w http.ResponseWriter, r *http.Request) {
	a.withAccount(w, r, func(acc *models.Account) {
		if err := a.syncer.Sync(r.Context(), acc, false); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toShipmentsResponse(acc))
	})
}

func (a *ShipmentsAPI) addShipment(w http.ResponseWriter, r *http.Request) {
	var in models.ShipmentCreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	a.withAccount(w, r, func(acc *models.Account) {
		sh, err := a.syncer.AddShipment(r.Context(), acc, in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sh)
	})
}

func (a *ShipmentsAPI) deleteShipments(w http.ResponseWriter, r *http.Request) {
	var req deleteShipmentsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.TrackingNumbers) == 0 {
		writeError(w, errors.Wrap(mailsync.ErrInvalidInput, "tracking_numbers is required"))
		return
	}
	a.withAccount(w, r, func(acc *models.Account) {
		n, err := a.syncer.DeleteShipments(r.Context(), acc, req.TrackingNumbers)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deleteShipmentsResponse{Deleted: n})
	})
}

func (a *ShipmentsAPI) restoreShipments(w http.ResponseWriter, r *http.Request) {
	a.withAccount(w, r, func(acc *models.Account) {
		if err := a.syncer.RestoreShipments(r.Context(), acc); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toShipmentsResponse(acc))
	})
}

func (a *ShipmentsAPI) resetShipments(w http.ResponseWriter, r *http.Request) {
	a.withAccount(w, r, func(acc *models.Account) {
		if err := a.syncer.ResetShipments(r.Context(), acc); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toShipmentsResponse(acc))
	})
}

func (a *ShipmentsAPI) requestSync(w http.ResponseWriter, r *http.Request) {
	if a.publisher == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "sync requests are not enabled"})
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	a.withAccount(w, r, func(acc *models.Account) {
		msg := messages.NewSyncRequested(acc.Email, force, time.Now().UTC())
		if err := a.publisher.PublishJSON(r.Context(), a.syncTopic, acc.Email, msg); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, msg)
	})
}

// withAccount runs fn on the stored account under its lock, which the
// worker takes too, so collection edits from both sides do not interleave.
func (a *ShipmentsAPI) withAccount(w http.ResponseWriter, r *http.Request, fn func(acc *models.Account)) {
	email, err := emailParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	err = a.accounts.WithAccountLock(r.Context(), email, func(acc *models.Account) error {
		fn(acc)
		return nil
	})
	if err != nil {
		writeError(w, err)
	}
}

func toShipmentsResponse(acc *models.Account) shipmentsResponse {
	shipments := acc.Shipments
	if shipments == nil {
		shipments = []*models.Shipment{}
	}
	return shipmentsResponse{Email: acc.Email, LastSyncedAt: acc.LastSyncedAt, Shipments: shipments}
}

func emailParam(r *http.Request) (string, error) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil || email == "" {
		return "", errors.Wrap(mailsync.ErrInvalidInput, "bad email")
	}
	return email, nil
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return errors.Wrapf(mailsync.ErrInvalidInput, "malformed body: %v", err)
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, mailsync.ErrInvalidInput), errors.Is(err, carrier.ErrUnknownCarrier):
		return http.StatusBadRequest
	case errors.Is(err, pgaccounts.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, mailbox.ErrAuthExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "error", err.Error())
		writeJSON(w, code, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
