package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attarco/checkout/internal/domain/order"
)

// --- Mock implementations ---

type memRepo struct {
	mu        sync.Mutex
	nextID    int64
	rows      []Notification
	createErr map[string]error // adminID -> error
}

func (m *memRepo) Create(_ context.Context, adminID, message string) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.createErr[adminID]; err != nil {
		return nil, err
	}
	m.nextID++
	n := Notification{ID: m.nextID, AdminID: adminID, Message: message, CreatedAt: time.Now()}
	m.rows = append(m.rows, n)
	return &n, nil
}

func (m *memRepo) ListByAdmin(_ context.Context, adminID string, limit int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if m.rows[i].AdminID == adminID {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *memRepo) MarkAllRead(_ context.Context, adminID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].AdminID == adminID {
			m.rows[i].Read = true
		}
	}
	return nil
}

func (m *memRepo) MarkRead(_ context.Context, adminID string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id && m.rows[i].AdminID == adminID {
			m.rows[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}

func (m *memRepo) byAdmin(adminID string) []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for _, n := range m.rows {
		if n.AdminID == adminID {
			out = append(out, n)
		}
	}
	return out
}

type staticAdmins struct {
	admins []Admin
	err    error
}

func (s *staticAdmins) ListAdmins(_ context.Context) ([]Admin, error) {
	return s.admins, s.err
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (b *recordingBroadcaster) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	if channel != AdminChannel {
		return errors.Errorf("unexpected channel %q", channel)
	}
	b.payloads = append(b.payloads, payload)
	return nil
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.payloads)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []string // "to|subject"
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to+"|"+subject)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// --- Fixtures ---

func confirmedOrder() *order.Order {
	return &order.Order{
		ID:            "ord-uuid-1",
		OrderRef:      "ORD-AB12CD34EF",
		InvoiceNumber: "INV-007",
		CustomerID:    "cust-1",
		CustomerName:  "asha",
		CustomerEmail: "asha@example.com",
		Shipping:      order.Shipping{Name: "Asha Rao", Phone: "9876543210", Address: "12 MG Road", Pincode: "560001"},
		Lines: []order.Line{
			{ItemID: "oud-55", ItemName: "Oud Royale", Quantity: 2, UnitPrice: decimal.RequireFromString("500.00")},
		},
		Total:  decimal.RequireFromString("1680.00"),
		Status: order.StatusConfirmed,
	}
}

// dispatchAndDrain runs one event through a dispatcher and waits for the
// worker to finish by cancelling its context.
func dispatchAndDrain(t *testing.T, d *Dispatcher, o *order.Order) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	d.OrderConfirmed(o)
	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, d.Wait())
}

// --- Tests ---

func TestDispatcher_FanOutPerAdmin(t *testing.T) {
	repo := &memRepo{}
	admins := &staticAdmins{admins: []Admin{
		{ID: "adm-1", Name: "root", Email: "root@example.com"},
		{ID: "adm-2", Name: "ops", Email: "ops@example.com"},
	}}
	bc := &recordingBroadcaster{}
	mail := &recordingMailer{}

	d := NewDispatcher(repo, admins, bc, mail, "orders@example.com")
	dispatchAndDrain(t, d, confirmedOrder())

	require.Len(t, repo.byAdmin("adm-1"), 1)
	require.Len(t, repo.byAdmin("adm-2"), 1)
	assert.Contains(t, repo.byAdmin("adm-1")[0].Message, "asha")
	assert.Contains(t, repo.byAdmin("adm-1")[0].Message, "1680.00")

	assert.Equal(t, 2, bc.count())
	assert.Equal(t, 2, mail.count(), "customer invoice + admin summary")
}

func TestDispatcher_BroadcastFailureKeepsRows(t *testing.T) {
	repo := &memRepo{}
	admins := &staticAdmins{admins: []Admin{{ID: "adm-1"}, {ID: "adm-2"}}}
	bc := &recordingBroadcaster{err: errors.New("transport down")}
	mail := &recordingMailer{}

	d := NewDispatcher(repo, admins, bc, mail, "orders@example.com")
	dispatchAndDrain(t, d, confirmedOrder())

	// Rows persisted for both admins even though every push failed.
	assert.Len(t, repo.byAdmin("adm-1"), 1)
	assert.Len(t, repo.byAdmin("adm-2"), 1)
	assert.Equal(t, 2, mail.count(), "emails are an independent failure domain")
}

func TestDispatcher_OneAdminFailureDoesNotBlockOthers(t *testing.T) {
	repo := &memRepo{createErr: map[string]error{"adm-1": errors.New("disk full")}}
	admins := &staticAdmins{admins: []Admin{{ID: "adm-1"}, {ID: "adm-2"}}}
	bc := &recordingBroadcaster{}
	mail := &recordingMailer{}

	d := NewDispatcher(repo, admins, bc, mail, "orders@example.com")
	dispatchAndDrain(t, d, confirmedOrder())

	assert.Empty(t, repo.byAdmin("adm-1"))
	assert.Len(t, repo.byAdmin("adm-2"), 1)
	assert.Equal(t, 1, bc.count(), "only the persisted notification is pushed")
}

func TestDispatcher_ZeroAdminsIsValid(t *testing.T) {
	repo := &memRepo{}
	bc := &recordingBroadcaster{}
	mail := &recordingMailer{}

	d := NewDispatcher(repo, &staticAdmins{}, bc, mail, "orders@example.com")
	dispatchAndDrain(t, d, confirmedOrder())

	assert.Empty(t, repo.rows)
	assert.Zero(t, bc.count())
	assert.Equal(t, 2, mail.count(), "emails still go out with an empty admin set")
}

func TestDispatcher_MailFailureIsInvisible(t *testing.T) {
	repo := &memRepo{}
	admins := &staticAdmins{admins: []Admin{{ID: "adm-1"}}}
	bc := &recordingBroadcaster{}
	mail := &recordingMailer{err: errors.New("smtp refused")}

	d := NewDispatcher(repo, admins, bc, mail, "orders@example.com")
	dispatchAndDrain(t, d, confirmedOrder())

	assert.Len(t, repo.byAdmin("adm-1"), 1)
	assert.Equal(t, 1, bc.count())
}

func TestDispatcher_ServesEventsQueuedDuringServerDrain(t *testing.T) {
	repo := &memRepo{}
	admins := &staticAdmins{admins: []Admin{{ID: "adm-1", Email: "root@example.com"}}}
	bc := &recordingBroadcaster{}
	mail := &recordingMailer{}

	// The worker lives on its own context so that cancelling the app
	// context (shutdown start) does not stop it while the HTTP server is
	// still draining in-flight requests.
	appCtx, cancelApp := context.WithCancel(context.Background())
	workerCtx, stopWorker := context.WithCancel(context.WithoutCancel(appCtx))

	d := NewDispatcher(repo, admins, bc, mail, "orders@example.com")
	d.Start(workerCtx)

	// Shutdown begins; a payment confirmed during the drain still fans out.
	cancelApp()
	d.OrderConfirmed(confirmedOrder())
	time.Sleep(50 * time.Millisecond)

	stopWorker()
	require.NoError(t, d.Wait())

	assert.Len(t, repo.byAdmin("adm-1"), 1)
	assert.Equal(t, 1, bc.count())
	assert.Equal(t, 2, mail.count())
}

func TestDispatcher_SaturatedQueueStillPersistsRows(t *testing.T) {
	repo := &memRepo{}
	admins := &staticAdmins{admins: []Admin{{ID: "adm-1"}, {ID: "adm-2"}}}
	bc := &recordingBroadcaster{}
	mail := &recordingMailer{}

	d := NewDispatcher(repo, admins, bc, mail, "orders@example.com")
	d.queue = make(chan *order.Order, 1)

	// No worker running: the first event fills the queue, the second
	// overflows and must fall back to inline row persistence.
	d.OrderConfirmed(confirmedOrder())
	d.OrderConfirmed(confirmedOrder())

	require.Len(t, repo.byAdmin("adm-1"), 1)
	require.Len(t, repo.byAdmin("adm-2"), 1)
	assert.Contains(t, repo.byAdmin("adm-1")[0].Message, "asha")
	assert.Zero(t, bc.count(), "push is sacrificed on overflow")
	assert.Zero(t, mail.count(), "emails are sacrificed on overflow")
}

func TestEncodeEvent(t *testing.T) {
	n := &Notification{
		ID:        42,
		Message:   "New order received from asha - ₹1680.00",
		CreatedAt: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	payload := encodeEvent(n)

	d := jx.DecodeBytes(payload)
	fields := map[string]string{}
	var id int64
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Int64()
			id = v
			return err
		default:
			v, err := d.Str()
			fields[key] = v
			return err
		}
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "New order received from asha - ₹1680.00", fields["text"])
	assert.Equal(t, "2025-06-15T12:00:00Z", fields["timestamp"])
}
