package call

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/synox/telewall/internal/ari"
	"github.com/synox/telewall/internal/database/models"
)

// fakeTelephony records every control-server operation as a readable
// string so tests can assert on the exact sequence.
type fakeTelephony struct {
	mu  sync.Mutex
	ops []string

	playbackIDs []string

	originateErr    error
	playErr         error
	hangupErr       error
	recordingExists bool
	recordingErr    error
}

func (f *fakeTelephony) record(format string, args ...any) {
	f.mu.Lock()
	f.ops = append(f.ops, fmt.Sprintf(format, args...))
	f.mu.Unlock()
}

func (f *fakeTelephony) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, op := range f.ops {
		if strings.HasPrefix(op, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeTelephony) has(prefix string) bool {
	return f.count(prefix) > 0
}

func (f *fakeTelephony) lastPlayback() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.playbackIDs) == 0 {
		return ""
	}
	return f.playbackIDs[len(f.playbackIDs)-1]
}

func (f *fakeTelephony) AnswerChannel(ctx context.Context, channelID string) error {
	f.record("answer %s", channelID)
	return nil
}

func (f *fakeTelephony) RingChannel(ctx context.Context, channelID string) error {
	f.record("ring %s", channelID)
	return nil
}

func (f *fakeTelephony) HangupChannel(ctx context.Context, channelID, reason string) error {
	f.record("hangup %s %s", channelID, reason)
	return f.hangupErr
}

func (f *fakeTelephony) Originate(ctx context.Context, req ari.OriginateRequest) (ari.ChannelInfo, error) {
	if f.originateErr != nil {
		return ari.ChannelInfo{}, f.originateErr
	}
	f.record("originate %s callerid=%s", req.Endpoint, req.CallerID)
	return ari.ChannelInfo{ID: "out-1"}, nil
}

func (f *fakeTelephony) RecordChannel(ctx context.Context, channelID string, req ari.RecordRequest) error {
	f.record("record %s name=%s ifexists=%s", channelID, req.Name, req.IfExists)
	return nil
}

func (f *fakeTelephony) PlayOnChannel(ctx context.Context, channelID, playbackID, media string) error {
	if f.playErr != nil {
		return f.playErr
	}
	f.record("play %s %s", channelID, media)
	f.mu.Lock()
	f.playbackIDs = append(f.playbackIDs, playbackID)
	f.mu.Unlock()
	return nil
}

func (f *fakeTelephony) PlayOnBridge(ctx context.Context, bridgeID, playbackID, media string) error {
	f.record("playbridge %s %s", bridgeID, media)
	return nil
}

func (f *fakeTelephony) StopPlayback(ctx context.Context, playbackID string) error {
	f.record("stopplayback %s", playbackID)
	return nil
}

func (f *fakeTelephony) CreateBridge(ctx context.Context, bridgeType string) (ari.BridgeInfo, error) {
	f.record("createbridge %s", bridgeType)
	return ari.BridgeInfo{ID: "bridge-1"}, nil
}

func (f *fakeTelephony) AddBridgeChannels(ctx context.Context, bridgeID string, channelIDs ...string) error {
	f.record("addchannels %s %s", bridgeID, strings.Join(channelIDs, ","))
	return nil
}

func (f *fakeTelephony) DestroyBridge(ctx context.Context, bridgeID string) error {
	f.record("destroybridge %s", bridgeID)
	return nil
}

func (f *fakeTelephony) SetChannelVar(ctx context.Context, channelID, name, value string) error {
	f.record("setvar %s %s=%s", channelID, name, value)
	return nil
}

func (f *fakeTelephony) StoredRecordingExists(ctx context.Context, name string) (bool, error) {
	return f.recordingExists, f.recordingErr
}

func (f *fakeTelephony) DeleteStoredRecording(ctx context.Context, name string) error {
	f.record("delrecording %s", name)
	return f.recordingErr
}

var _ Telephony = (*fakeTelephony)(nil)

// fakeBlocklist is an in-memory Blocklist.
type fakeBlocklist struct {
	mu           sync.Mutex
	entries      map[string]*models.BlockedCaller
	blockCalls   int
	unblocked    []string
	isBlockedErr error
}

func newFakeBlocklist(numbers ...string) *fakeBlocklist {
	f := &fakeBlocklist{entries: make(map[string]*models.BlockedCaller)}
	for _, n := range numbers {
		f.entries[n] = &models.BlockedCaller{TelephoneNumber: n}
	}
	return f
}

func (f *fakeBlocklist) IsBlocked(ctx context.Context, number string) (bool, error) {
	if f.isBlockedErr != nil {
		return false, f.isBlockedErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[number]
	return ok, nil
}

func (f *fakeBlocklist) Block(ctx context.Context, entry *models.BlockedCaller) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockCalls++
	if _, ok := f.entries[entry.TelephoneNumber]; !ok {
		f.entries[entry.TelephoneNumber] = entry
	}
	return nil
}

func (f *fakeBlocklist) BlockAll(ctx context.Context, entries []*models.BlockedCaller) (int, error) {
	added := 0
	for _, e := range entries {
		f.mu.Lock()
		if _, ok := f.entries[e.TelephoneNumber]; !ok {
			f.entries[e.TelephoneNumber] = e
			added++
		}
		f.mu.Unlock()
	}
	return added, nil
}

func (f *fakeBlocklist) Unblock(ctx context.Context, number string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, number)
	f.unblocked = append(f.unblocked, number)
	return nil
}

func (f *fakeBlocklist) Find(ctx context.Context, number string) (*models.BlockedCaller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[number], nil
}

func (f *fakeBlocklist) List(ctx context.Context, search string, offset, limit int) ([]models.BlockedCaller, error) {
	return nil, nil
}

func (f *fakeBlocklist) Count(ctx context.Context, search string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.entries)), nil
}

func (f *fakeBlocklist) contains(number string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[number]
	return ok
}

// fakeHistory is an in-memory CallHistory.
type fakeHistory struct {
	mu      sync.Mutex
	records []*models.CallRecord
	last    *models.CallRecord
}

func (f *fakeHistory) Insert(ctx context.Context, rec *models.CallRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeHistory) LastCaller(ctx context.Context, after time.Time) (*models.CallRecord, error) {
	if f.last != nil && f.last.StartTime.Before(after) {
		return nil, nil
	}
	return f.last, nil
}

func (f *fakeHistory) List(ctx context.Context, numberFilter string, offset, limit int) ([]models.CallRecord, error) {
	return nil, nil
}

func (f *fakeHistory) Count(ctx context.Context, numberFilter string) (int64, error) {
	return 0, nil
}

func (f *fakeHistory) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeHistory) inserted() []*models.CallRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.CallRecord(nil), f.records...)
}

// fakeLookup counts reverse-phonebook lookups.
type fakeLookup struct {
	mu    sync.Mutex
	name  string
	err   error
	calls int
}

func (f *fakeLookup) Lookup(ctx context.Context, number string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.name, f.err
}

func (f *fakeLookup) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
