package pg

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/belgrano9/discord-bot-sub000/internal/models"
	"github.com/belgrano9/discord-bot-sub000/pkg/db"

	"github.com/jackc/pgx/v5"
)

// Store — постгресовый бэкенд алертов. Кэш в памяти (порядок = id),
// мутации пишутся сквозняком; Save — no-op, БД авторитетна на каждой
// операции.
type Store struct {
	db *db.PgTxManager

	mu     sync.Mutex
	cache  map[int64][]row
	loaded bool
}

type row struct {
	id    int64
	alert models.Alert
}

func NewStore(txm *db.PgTxManager) *Store {
	return &Store{
		db:    txm,
		cache: make(map[int64][]row),
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS price_alerts (
	id              BIGSERIAL PRIMARY KEY,
	chat_id         BIGINT NOT NULL,
	ticker          TEXT NOT NULL,
	alert_type      TEXT NOT NULL,
	value           DOUBLE PRECISION NOT NULL,
	reference_price DOUBLE PRECISION NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS price_alerts_chat_idx ON price_alerts (chat_id, id);`

func (s *Store) Load(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Load: %w", err)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	err := s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctxTx, schema); err != nil {
			return err
		}

		rows, err := tx.Query(ctxTx,
			`SELECT id, chat_id, ticker, alert_type, value, reference_price, created_at
			 FROM price_alerts ORDER BY chat_id, id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		cache := make(map[int64][]row)
		for rows.Next() {
			var r row
			if err := rows.Scan(
				&r.id,
				&r.alert.SubscriptionID,
				&r.alert.Ticker,
				&r.alert.Kind,
				&r.alert.Threshold,
				&r.alert.ReferencePrice,
				&r.alert.CreatedAt,
			); err != nil {
				return err
			}
			cache[r.alert.SubscriptionID] = append(cache[r.alert.SubscriptionID], r)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		s.cache = cache
		return nil
	})
	if err != nil {
		return err
	}

	s.loaded = true
	return nil
}

// Save — каждая мутация уже в БД.
func (s *Store) Save(ctx context.Context) error { return nil }

func (s *Store) All(ctx context.Context) (map[int64][]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return nil, err
	}
	out := make(map[int64][]models.Alert, len(s.cache))
	for sub, list := range s.cache {
		cp := make([]models.Alert, 0, len(list))
		for _, r := range list {
			cp = append(cp, r.alert)
		}
		out[sub] = cp
	}
	return out, nil
}

func (s *Store) AlertsFor(ctx context.Context, subscriptionID int64) ([]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return nil, err
	}
	list := s.cache[subscriptionID]
	cp := make([]models.Alert, 0, len(list))
	for _, r := range list {
		cp = append(cp, r.alert)
	}
	return cp, nil
}

func (s *Store) Add(ctx context.Context, alert models.Alert) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Add: %w", err)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return err
	}

	var id int64
	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		return tx.QueryRow(ctxTx,
			`INSERT INTO price_alerts (chat_id, ticker, alert_type, value, reference_price, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			alert.SubscriptionID, alert.Ticker, string(alert.Kind),
			alert.Threshold, alert.ReferencePrice, alert.CreatedAt,
		).Scan(&id)
	})
	if err != nil {
		return err
	}

	s.cache[alert.SubscriptionID] = append(s.cache[alert.SubscriptionID], row{id: id, alert: alert})
	return nil
}

func (s *Store) RemoveAt(ctx context.Context, subscriptionID int64, index int) (_ *models.Alert, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.RemoveAt: %w", err)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return nil, err
	}
	list, ok := s.cache[subscriptionID]
	if !ok || index < 0 || index >= len(list) {
		return nil, nil
	}
	removed := list[index]

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `DELETE FROM price_alerts WHERE id = $1`, removed.id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cache[subscriptionID] = append(list[:index], list[index+1:]...)
	if len(s.cache[subscriptionID]) == 0 {
		delete(s.cache, subscriptionID)
	}
	return &removed.alert, nil
}

func (s *Store) RemoveBatch(ctx context.Context, subscriptionID int64, indices []int) (_ int, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.RemoveBatch: %w", err)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return 0, err
	}
	list, ok := s.cache[subscriptionID]
	if !ok {
		return 0, nil
	}

	sorted := make([]int, len(indices))
	copy(sorted, indices)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	ids := make([]int64, 0, len(sorted))
	for _, idx := range sorted {
		if idx < 0 || idx >= len(list) {
			continue
		}
		ids = append(ids, list[idx].id)
		list = append(list[:idx], list[idx+1:]...)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `DELETE FROM price_alerts WHERE id = ANY($1)`, ids)
		return err
	})
	if err != nil {
		return 0, err
	}

	if len(list) == 0 {
		delete(s.cache, subscriptionID)
	} else {
		s.cache[subscriptionID] = list
	}
	return len(ids), nil
}

func (s *Store) Purge(ctx context.Context, subscriptionID int64) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Purge: %w", err)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return err
	}

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `DELETE FROM price_alerts WHERE chat_id = $1`, subscriptionID)
		return err
	})
	if err != nil {
		return err
	}

	delete(s.cache, subscriptionID)
	return nil
}
