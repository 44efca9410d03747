//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-image-bot/internal/domain"
	"whatsapp-image-bot/internal/domain/model"
	"whatsapp-image-bot/internal/domain/ports/adapter"
	"whatsapp-image-bot/internal/infra/i18n"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// newTestReplies loads the real embedded reply catalog so assertions run
// against the text users actually see.
func newTestReplies(t interface{ Fatalf(string, ...interface{}) }) *i18n.Translator {
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		t.Fatalf("load reply catalog: %v", err)
	}
	return tr
}

// -----------------------------
// In-memory repositories
// -----------------------------

// memUserRepo is a concurrency-safe in-memory ledger used by unit tests.
type memUserRepo struct {
	mu        sync.Mutex
	store     map[string]*model.User
	debitErr  error // injected failure for Debit
	ensureErr error // injected failure for EnsureUser
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[string]*model.User)}
}

func (m *memUserRepo) EnsureUser(ctx context.Context, address string, startingCredits int) (*model.User, bool, error) {
	if m.ensureErr != nil {
		return nil, false, m.ensureErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	address = model.NormalizeAddress(address)
	if u, ok := m.store[address]; ok {
		cp := *u
		return &cp, false, nil
	}
	u, err := model.NewUser(address, startingCredits)
	if err != nil {
		return nil, false, err
	}
	m.store[address] = u
	cp := *u
	return &cp, true, nil
}

func (m *memUserRepo) FindByAddress(ctx context.Context, address string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[model.NormalizeAddress(address)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) Debit(ctx context.Context, address string, amount int) (int, error) {
	if m.debitErr != nil {
		return 0, m.debitErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[model.NormalizeAddress(address)]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if u.CreditsRemaining < amount {
		return 0, domain.ErrInsufficientCredits
	}
	u.CreditsRemaining -= amount
	return u.CreditsRemaining, nil
}

func (m *memUserRepo) Credit(ctx context.Context, address string, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[model.NormalizeAddress(address)]
	if !ok {
		return 0, domain.ErrNotFound
	}
	u.CreditsRemaining += amount
	return u.CreditsRemaining, nil
}

func (m *memUserRepo) Touch(ctx context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.store[model.NormalizeAddress(address)]; ok {
		u.LastSeenAt = time.Now()
	}
	return nil
}

// balance reads the stored balance directly, bypassing the port.
func (m *memUserRepo) balance(address string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.store[model.NormalizeAddress(address)]; ok {
		return u.CreditsRemaining
	}
	return -1
}

// memPendingRepo keeps pending images in a map with the same exactly-once
// Take contract the Redis implementation provides.
type memPendingRepo struct {
	mu     sync.Mutex
	store  map[string]*model.PendingImage
	window time.Duration
}

func newMemPendingRepo(window time.Duration) *memPendingRepo {
	return &memPendingRepo{store: make(map[string]*model.PendingImage), window: window}
}

func (m *memPendingRepo) Set(ctx context.Context, pending *model.PendingImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pending
	m.store[pending.Address] = &cp
	return nil
}

func (m *memPendingRepo) Take(ctx context.Context, address string) (*model.PendingImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[address]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(m.store, address)
	if p.Expired(time.Now(), m.window) {
		return nil, domain.ErrStalePending
	}
	cp := *p
	return &cp, nil
}

func (m *memPendingRepo) Clear(ctx context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, address)
	return nil
}

// memDeduper claims each event ID at most once.
type memDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemDeduper() *memDeduper {
	return &memDeduper{seen: make(map[string]bool)}
}

func (m *memDeduper) ClaimEvent(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return true, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

// fakeLocker satisfies the per-address lock contract with a plain map of
// mutex-guarded tokens.
type fakeLocker struct {
	mu     sync.Mutex
	held   map[string]string
	busy   bool // force ErrLockBusy
	tokens int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]string)}
}

func (f *fakeLocker) TryLock(ctx context.Context, address string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return "", domain.ErrLockBusy
	}
	if _, ok := f.held[address]; ok {
		return "", domain.ErrLockBusy
	}
	f.tokens++
	token := string(rune('a' + f.tokens%26))
	f.held[address] = token
	return token, nil
}

func (f *fakeLocker) Unlock(ctx context.Context, address, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[address] == token {
		delete(f.held, address)
	}
	return nil
}

// -----------------------------
// Adapter fakes
// -----------------------------

// fakeTransform counts calls and returns either a canned artifact or an
// injected error.
type fakeTransform struct {
	mu      sync.Mutex
	calls   int
	lastURL string
	lastQ   string // last prompt received
	err     error
	result  adapter.TransformResult
}

func newFakeTransform() *fakeTransform {
	return &fakeTransform{
		result: adapter.TransformResult{
			Data:        []byte("artifact-bytes"),
			ContentType: "image/png",
			ProviderRef: "fake-1",
		},
	}
}

func (f *fakeTransform) Name() string { return "fake" }

func (f *fakeTransform) Transform(ctx context.Context, imageURL, instruction string) (*adapter.TransformResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastURL = imageURL
	f.lastQ = instruction
	if f.err != nil {
		return nil, f.err
	}
	cp := f.result
	return &cp, nil
}

// fakeStore records uploads keyed by object key.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
	baseURL string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte), baseURL: "https://cdn.test"}
}

func (f *fakeStore) Store(ctx context.Context, data []byte, contentType, objectKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.objects[objectKey] = cp
	return f.baseURL + "/" + objectKey, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// sentMessage is one recorded outbound reply.
type sentMessage struct {
	To       string
	Text     string
	MediaURL string
}

// fakeMessenger records replies and serves canned media downloads.
type fakeMessenger struct {
	mu        sync.Mutex
	sent      []sentMessage
	sendErr   error
	media     []byte
	mediaType string
	fetchErr  error
	rehost    bool // whether inbound media URLs need re-hosting
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{media: []byte("source-bytes"), mediaType: "image/jpeg"}
}

func (f *fakeMessenger) Send(ctx context.Context, to, text, mediaURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMessage{To: to, Text: text, MediaURL: mediaURL})
	return nil
}

func (f *fakeMessenger) FetchMedia(ctx context.Context, mediaURL string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, "", f.fetchErr
	}
	return f.media, f.mediaType, nil
}

func (f *fakeMessenger) NeedsRehost(mediaURL string) bool { return f.rehost }

func (f *fakeMessenger) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeMessenger) lastMessage() (sentMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMessage{}, false
	}
	return f.sent[len(f.sent)-1], true
}
