package mailsync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/BearBump/MailTrack/internal/extract"
	"github.com/BearBump/MailTrack/internal/mailbox"
	"github.com/BearBump/MailTrack/internal/metrics"
	"github.com/BearBump/MailTrack/internal/models"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type state string

const (
	stateSearching  state = "SEARCHING"
	stateFetching   state = "FETCHING"
	stateSorting    state = "SORTING"
	stateExtracting state = "EXTRACTING"
	stateDone       state = "DONE"
)

const (
	searchKeywords = "{track tracking}"
	maxAuthRetries = 1
)

// SyncNew scans the mailbox for messages since the last sync and appends a
// shipment for every tracking number the account does not know yet.
// An expired access token is refreshed once and the scan restarts.
func (s *Syncer) SyncNew(ctx context.Context, acc *models.Account) error {
	for attempt := 0; ; attempt++ {
		err := s.syncNewOnce(ctx, acc)
		if err == nil {
			metrics.MailboxSyncs.WithLabelValues("ok").Inc()
			return nil
		}
		if !errors.Is(err, mailbox.ErrAuthExpired) || attempt >= maxAuthRetries {
			metrics.MailboxSyncs.WithLabelValues("failed").Inc()
			return err
		}

		slog.Info("mailbox token expired, refreshing", "email", acc.Email)
		metrics.MailboxSyncs.WithLabelValues("refreshed").Inc()
		if err := s.refreshToken(ctx, acc); err != nil {
			metrics.MailboxSyncs.WithLabelValues("failed").Inc()
			return err
		}
	}
}

func (s *Syncer) refreshToken(ctx context.Context, acc *models.Account) error {
	token, err := s.refresher.Refresh(ctx, acc.RefreshToken)
	if err != nil {
		return errors.Wrap(err, "refresh access token")
	}
	acc.AccessToken = token
	return errors.Wrap(s.store.SaveAccount(ctx, acc), "save refreshed token")
}

type candidate struct {
	msg   *mailbox.Message
	match extract.Match
	res   models.TrackingResult
}

func (s *Syncer) syncNewOnce(ctx context.Context, acc *models.Account) error {
	started := s.now()

	s.enter(acc, stateSearching)
	ids, err := s.search(ctx, acc, s.query(acc, started))
	if err != nil {
		return err
	}

	s.enter(acc, stateFetching)
	msgs, err := s.fetch(ctx, acc.AccessToken, ids)
	if err != nil {
		return err
	}
	metrics.MessagesScanned.Add(float64(len(msgs)))

	s.enter(acc, stateSorting)
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].InternalDate.Before(msgs[j].InternalDate)
	})

	s.enter(acc, stateExtracting)
	cands := s.claim(acc, msgs)
	if err := s.resolve(ctx, cands); err != nil {
		return err
	}

	now := s.now()
	for _, c := range cands {
		if c.res.Status == models.StatusUnavailable && now.Sub(c.msg.InternalDate) > s.cfg.FreshGrace {
			continue
		}
		sender := mailbox.ParseSender(c.msg.Header("From"))
		sh := &models.Shipment{
			TrackingNumber:    c.match.TrackingNumber,
			CarrierCode:       c.match.CarrierCode,
			SourceMessageID:   c.msg.ID,
			SourceMessageDate: c.msg.InternalDate,
			SenderName:        sender.Name,
			SenderDomain:      sender.Domain,
			CreatedAt:         now,
		}
		sh.Apply(c.res, now)
		acc.Shipments = append(acc.Shipments, sh)
		s.notify(ctx, acc.Email, sh, ChangeCreated)
	}

	s.enter(acc, stateDone)
	acc.LastSyncedAt = &started
	return errors.Wrap(s.store.SaveAccount(ctx, acc), "save account")
}

func (s *Syncer) enter(acc *models.Account, st state) {
	slog.Debug("mailbox sync", "email", acc.Email, "state", string(st))
}

func (s *Syncer) query(acc *models.Account, now time.Time) string {
	if acc.LastSyncedAt != nil && now.Sub(*acc.LastSyncedAt) < s.cfg.Retention {
		return fmt.Sprintf("%s after:%d", searchKeywords, acc.LastSyncedAt.Unix())
	}
	return fmt.Sprintf("%s newer_than:%dd", searchKeywords, int(s.cfg.Retention/(24*time.Hour)))
}

func (s *Syncer) search(ctx context.Context, acc *models.Account, q string) ([]string, error) {
	var (
		ids   []string
		token string
	)
	for {
		page, err := s.mb.Search(ctx, acc.AccessToken, q, token)
		if err != nil {
			return nil, err
		}
		ids = append(ids, page.IDs...)
		if page.NextPageToken == "" {
			return ids, nil
		}
		token = page.NextPageToken
	}
}

func (s *Syncer) fetch(ctx context.Context, accessToken string, ids []string) ([]*mailbox.Message, error) {
	msgs := make([]*mailbox.Message, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			m, err := s.mb.Get(gctx, accessToken, id)
			if err != nil {
				return err
			}
			msgs[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := msgs[:0]
	for _, m := range msgs {
		if m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

// claim walks messages in receive order and reserves every unseen number, so
// a number found in two messages is attributed to the older one.
func (s *Syncer) claim(acc *models.Account, msgs []*mailbox.Message) []*candidate {
	known := acc.TrackingNumbers()
	var out []*candidate
	for _, m := range msgs {
		for _, match := range extract.Find(mailbox.ResolveBody(m)) {
			if _, ok := known[match.TrackingNumber]; ok {
				continue
			}
			if !s.tracker.IsCarrierSupported(match.CarrierCode) {
				continue
			}
			known[match.TrackingNumber] = struct{}{}
			out = append(out, &candidate{msg: m, match: match})
		}
	}
	return out
}

func (s *Syncer) resolve(ctx context.Context, cands []*candidate) error {
	var g errgroup.Group
	g.SetLimit(s.cfg.LookupConcurrency)
	for _, c := range cands {
		g.Go(func() error {
			res, err := s.tracker.TrackOne(ctx, c.match.CarrierCode, c.match.TrackingNumber)
			if err != nil {
				return err
			}
			c.res = res
			return nil
		})
	}
	return g.Wait()
}
