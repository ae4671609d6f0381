package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/belgrano9/discord-bot-sub000/internal/models"
	"github.com/belgrano9/discord-bot-sub000/internal/modules/config"
)

const createdAtLayout = "2006-01-02 15:04:05"

// Store — файловый JSON-стор алертов. Снапшот пишется целиком через
// tmp-файл + rename, частичных записей на диске не бывает.
type Store struct {
	path string

	mu     sync.Mutex
	cache  map[int64][]models.Alert
	loaded bool
}

func NewStore(cfg *config.Config) *Store {
	return &Store{
		path:  cfg.AlertStorePath,
		cache: make(map[int64][]models.Alert),
	}
}

// ---- public API ----

func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}
	return s.saveLocked()
}

func (s *Store) All(ctx context.Context) (map[int64][]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	out := make(map[int64][]models.Alert, len(s.cache))
	for sub, list := range s.cache {
		cp := make([]models.Alert, len(list))
		copy(cp, list)
		out[sub] = cp
	}
	return out, nil
}

func (s *Store) AlertsFor(ctx context.Context, subscriptionID int64) ([]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	list := s.cache[subscriptionID]
	cp := make([]models.Alert, len(list))
	copy(cp, list)
	return cp, nil
}

func (s *Store) Add(ctx context.Context, alert models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}
	s.cache[alert.SubscriptionID] = append(s.cache[alert.SubscriptionID], alert)
	return s.saveLocked()
}

func (s *Store) RemoveAt(ctx context.Context, subscriptionID int64, index int) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	list, ok := s.cache[subscriptionID]
	if !ok || index < 0 || index >= len(list) {
		return nil, nil
	}
	removed := list[index]
	s.cache[subscriptionID] = append(list[:index], list[index+1:]...)
	if len(s.cache[subscriptionID]) == 0 {
		delete(s.cache, subscriptionID)
	}
	if err := s.saveLocked(); err != nil {
		return &removed, err
	}
	return &removed, nil
}

// RemoveBatch убирает индексы по убыванию: удаление нижнего индекса не
// сдвигает ещё не удалённые верхние. Сейв — на вызывающем.
func (s *Store) RemoveBatch(ctx context.Context, subscriptionID int64, indices []int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return 0, err
	}
	list, ok := s.cache[subscriptionID]
	if !ok {
		return 0, nil
	}

	sorted := make([]int, len(indices))
	copy(sorted, indices)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	removed := 0
	for _, idx := range sorted {
		if idx < 0 || idx >= len(list) {
			continue
		}
		list = append(list[:idx], list[idx+1:]...)
		removed++
	}

	if len(list) == 0 {
		delete(s.cache, subscriptionID)
	} else {
		s.cache[subscriptionID] = list
	}
	return removed, nil
}

func (s *Store) Purge(ctx context.Context, subscriptionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}
	delete(s.cache, subscriptionID)
	return nil
}

// ---- storage format ----
// { "<channel_id>": [ {ticker, alert_type, value, reference_price,
//   created_at ("2006-01-02 15:04:05"), channel_id}, ... ] }

type alertRecord struct {
	Ticker         string  `json:"ticker"`
	AlertType      string  `json:"alert_type"`
	Value          float64 `json:"value"`
	ReferencePrice float64 `json:"reference_price"`
	CreatedAt      string  `json:"created_at"`
	ChannelID      int64   `json:"channel_id"`
}

func (s *Store) loadLocked() error {
	if s.loaded {
		return nil
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	var raw map[string][]alertRecord
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}

	s.cache = make(map[int64][]models.Alert, len(raw))
	for subStr, records := range raw {
		sub, err := strconv.ParseInt(subStr, 10, 64)
		if err != nil {
			return fmt.Errorf("bad subscription key %q in %s", subStr, s.path)
		}
		list := make([]models.Alert, 0, len(records))
		for _, r := range records {
			createdAt, _ := time.Parse(createdAtLayout, r.CreatedAt)
			list = append(list, models.Alert{
				Ticker:         r.Ticker,
				Kind:           models.AlertKind(r.AlertType),
				Threshold:      r.Value,
				ReferencePrice: r.ReferencePrice,
				CreatedAt:      createdAt,
				SubscriptionID: sub,
			})
		}
		s.cache[sub] = list
	}

	s.loaded = true
	return nil
}

func (s *Store) saveLocked() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	raw := make(map[string][]alertRecord, len(s.cache))
	for sub, list := range s.cache {
		records := make([]alertRecord, 0, len(list))
		for _, a := range list {
			records = append(records, alertRecord{
				Ticker:         a.Ticker,
				AlertType:      string(a.Kind),
				Value:          a.Threshold,
				ReferencePrice: a.ReferencePrice,
				CreatedAt:      a.CreatedAt.Format(createdAtLayout),
				ChannelID:      a.SubscriptionID,
			})
		}
		raw[strconv.FormatInt(sub, 10)] = records
	}

	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path) // атомарно
}
