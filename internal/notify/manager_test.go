package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- Channel Mock ----
type mockChannel struct {
	label string
	err   error
	panic bool
	log   *callLog

	mu       sync.Mutex
	received []string
}

// callLog 记录跨通道的调用顺序
type callLog struct {
	mu    sync.Mutex
	order []string
}

func (l *callLog) add(label string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = append(l.order, label)
}

func (m *mockChannel) Send(ctx context.Context, message string) error {
	if m.log != nil {
		m.log.add(m.label)
	}
	m.mu.Lock()
	m.received = append(m.received, message)
	m.mu.Unlock()

	if m.panic {
		panic("boom")
	}
	return m.err
}

func (m *mockChannel) Type() string { return m.label }

// ---- Observer Mock ----
type mockObserver struct {
	sent map[string]int
	errs map[string]int
}

func newMockObserver() *mockObserver {
	return &mockObserver{sent: map[string]int{}, errs: map[string]int{}}
}

func (o *mockObserver) ObserveSend(channel string, err error) {
	if err != nil {
		o.errs[channel]++
		return
	}
	o.sent[channel]++
}

func TestNotifyAll_RegistrationOrder(t *testing.T) {
	calls := &callLog{}
	a := &mockChannel{label: "A", log: calls}
	b := &mockChannel{label: "B", log: calls}
	c := &mockChannel{label: "C", log: calls}

	manager := NewManager()
	manager.AddChannel(a)
	manager.AddChannel(b)
	manager.AddChannel(c)

	results, err := manager.NotifyAll(context.Background(), "m")
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, calls.order)
	for _, channel := range []*mockChannel{a, b, c} {
		assert.Equal(t, []string{"m"}, channel.received)
	}
	assert.Equal(t, []Result{
		{Channel: "A", Status: StatusSuccess},
		{Channel: "B", Status: StatusSuccess},
		{Channel: "C", Status: StatusSuccess},
	}, results)
}

func TestNotifyAll_NoChannels(t *testing.T) {
	results, err := NewManager().NotifyAll(context.Background(), "m")
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestNotifyAll_DuplicateRegistrationSendsTwice(t *testing.T) {
	a := &mockChannel{label: "A"}
	manager := NewManager()
	manager.AddChannel(a)
	manager.AddChannel(a)

	_, err := manager.NotifyAll(context.Background(), "m")
	require.NoError(t, err)
	assert.Equal(t, []string{"m", "m"}, a.received)
}

func TestNotifyAll_FailureIsIsolated(t *testing.T) {
	sendErr := errors.New("smtp down")
	a := &mockChannel{label: "A"}
	b := &mockChannel{label: "B", err: sendErr}
	c := &mockChannel{label: "C", panic: true}
	d := &mockChannel{label: "D"}

	observer := newMockObserver()
	manager := NewManager()
	manager.SetObserver(observer)
	for _, channel := range []Channel{a, b, c, d} {
		manager.AddChannel(channel)
	}

	results, err := manager.NotifyAll(context.Background(), "m")
	require.Error(t, err)

	assert.ErrorIs(t, err, sendErr)
	var channelErr *ChannelError
	require.ErrorAs(t, err, &channelErr)
	assert.Equal(t, "B", channelErr.Channel)

	assert.Equal(t, []string{"m"}, d.received)
	require.Len(t, results, 4)
	assert.Equal(t, StatusSuccess, results[0].Status)
	assert.Equal(t, StatusFailed, results[1].Status)
	assert.Equal(t, "smtp down", results[1].Error)
	assert.Equal(t, StatusFailed, results[2].Status)
	assert.Contains(t, results[2].Error, "panicked")
	assert.Equal(t, StatusSuccess, results[3].Status)

	assert.Equal(t, 1, observer.sent["A"])
	assert.Equal(t, 1, observer.errs["B"])
	assert.Equal(t, 1, observer.errs["C"])
	assert.Equal(t, 1, observer.sent["D"])
}

// 新增通道不改变已注册通道的行为
func TestNotifyAll_ExtensionDoesNotAffectExistingChannels(t *testing.T) {
	a := &mockChannel{label: "A"}
	b := &mockChannel{label: "B"}

	manager := NewManager()
	manager.AddChannel(a)
	manager.AddChannel(b)
	before, err := manager.NotifyAll(context.Background(), "first")
	require.NoError(t, err)

	manager.AddChannel(&mockChannel{label: "WhatsApp"})
	after, err := manager.NotifyAll(context.Background(), "second")
	require.NoError(t, err)

	assert.Equal(t, before, after[:2])
	assert.Equal(t, []string{"first", "second"}, a.received)
	assert.Equal(t, []string{"first", "second"}, b.received)
	assert.Equal(t, []string{"A", "B", "WhatsApp"}, manager.Types())
	assert.Equal(t, 3, manager.Len())
}

func TestChannelError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &ChannelError{Channel: "SMS", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "[SMS]")
}

// typePanicChannel Type() 会 panic 的通道
type typePanicChannel struct {
	sent int
}

func (c *typePanicChannel) Send(context.Context, string) error {
	c.sent++
	return nil
}

func (c *typePanicChannel) Type() string { panic("no label") }

func TestNotifyAll_TypePanicDoesNotStopLaterChannels(t *testing.T) {
	broken := &typePanicChannel{}
	after := &mockChannel{label: "After"}
	manager := NewManager()
	manager.AddChannel(broken)
	manager.AddChannel(after)

	results, err := manager.NotifyAll(context.Background(), "hi")

	require.Error(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "unknown", results[0].Channel)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.Contains(t, results[0].Error, "panicked")
	assert.Zero(t, broken.sent)
	assert.Equal(t, Result{Channel: "After", Status: StatusSuccess}, results[1])
	assert.Equal(t, []string{"hi"}, after.received)
	assert.Equal(t, []string{"unknown", "After"}, manager.Types())
}
