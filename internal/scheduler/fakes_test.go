package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/nipisarev/mainote-bot/internal/domain"
)

type fakeStore struct {
	mu      sync.Mutex
	prefs   map[string]domain.Preference
	listErr error
	readErr map[string]error
	gets    map[string]int
}

func newFakeStore(prefs ...domain.Preference) *fakeStore {
	s := &fakeStore{
		prefs:   make(map[string]domain.Preference),
		readErr: make(map[string]error),
		gets:    make(map[string]int),
	}
	for _, p := range prefs {
		s.prefs[p.UserID] = p
	}
	return s
}

func (s *fakeStore) put(p domain.Preference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[p.UserID] = p
}

func (s *fakeStore) ListUserIDs(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	ids := make([]string, 0, len(s.prefs))
	for id := range s.prefs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *fakeStore) Get(_ context.Context, id string) (domain.Preference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets[id]++
	if err := s.readErr[id]; err != nil {
		return domain.Preference{}, err
	}
	pref, ok := s.prefs[id]
	if !ok {
		return domain.Preference{UserID: id}, nil
	}
	return pref, nil
}

type fakeSource struct {
	text  string
	err   error
	calls int
}

func (f *fakeSource) MorningMessage(context.Context) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type sentMessage struct {
	userID string
	text   string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[string]bool
}

func (f *fakeSender) SendMessage(_ context.Context, userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[userID] {
		return errors.New("chat not found")
	}
	f.sent = append(f.sent, sentMessage{userID: userID, text: text})
	return nil
}

// limitedSender behaves like a rate-limited sender: every send except the
// failing one waits for its turn and gives up once ctx is done.
type limitedSender struct {
	fakeSender
	delay time.Duration
}

func (f *limitedSender) SendMessage(ctx context.Context, userID, text string) error {
	f.mu.Lock()
	fail := f.fail[userID]
	f.mu.Unlock()
	if fail {
		return errors.New("chat not found")
	}
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return f.fakeSender.SendMessage(ctx, userID, text)
}

func (f *fakeSender) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		ids = append(ids, m.userID)
	}
	sort.Strings(ids)
	return ids
}

// fakeClock drives Scheduler.now and Scheduler.sleep. Every sleep advances
// the clock by the requested duration and completes.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) bool {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return true
}
