// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/morales-javx/javxseek/internal/cloud"
	"github.com/morales-javx/javxseek/internal/model"
	"github.com/morales-javx/javxseek/internal/prompt"
	"github.com/morales-javx/javxseek/internal/storage"
	"github.com/morales-javx/javxseek/internal/telemetry"
)

// ErrEmptyInput is returned by Turn for blank user text.
var ErrEmptyInput = errors.New("empty message")

// Streamer opens a streaming completion. *cloud.Client implements it.
type Streamer interface {
	OpenStream(ctx context.Context, p cloud.Payload) (io.ReadCloser, error)
}

var _ Streamer = (*cloud.Client)(nil)

// =============================================================================
// STATE
// =============================================================================

// State is the phase of the turn in flight.
type State int32

const (
	StateIdle State = iota
	StateComposing
	StateStreaming
	StateFinalizing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateComposing:
		return "composing"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// =============================================================================
// OPTIONS AND RESULT
// =============================================================================

// Options configures a Chat.
type Options struct {
	// Models is the rotation list. Default: cloud.DefaultModels
	Models []string

	// Mode is the thinking mode for sessions with no stored level.
	Mode model.ThinkingMode

	// Humor enables the humor line outside deep mode.
	Humor bool

	Logger   *zap.Logger
	Recorder *telemetry.Recorder

	// Now returns the current time; nil means time.Now.
	Now func() time.Time
}

// TurnOptions overrides chat settings for a single turn.
type TurnOptions struct {
	// Mode overrides the thinking mode when valid.
	Mode model.ThinkingMode

	// Style overrides the prompt style when valid. The reported style is
	// still derived from history.
	Style model.Style

	// Humor overrides the humor flag when set.
	Humor *bool
}

// Result describes a finalized turn.
type Result struct {
	Reply   string
	Partial bool
	Model   string
	Mode    model.ThinkingMode

	Style         model.Style
	PreviousStyle model.Style
	StyleChanged  bool

	// SaveErr is set when the turn finished but could not be persisted.
	SaveErr error

	Fragments     int
	Skipped       int
	FirstFragment time.Duration
	Elapsed       time.Duration
}

// StyleInfo is the style tier and progress toward the next one.
type StyleInfo struct {
	Style     model.Style
	UserCount int
	Next      model.Style
	NextAt    int
	HasNext   bool
}

// =============================================================================
// CHAT
// =============================================================================

// Chat serializes turns and control operations for one session id.
type Chat struct {
	mu sync.Mutex

	id       string
	store    *storage.Store
	composer *prompt.Composer
	streamer Streamer

	models   []string
	modelIdx int
	mode     model.ThinkingMode
	humor    bool

	// sess is loaded on first use
	sess *model.Session

	state      atomic.Int32
	lastActive atomic.Int64

	logger *zap.Logger
	rec    *telemetry.Recorder
	now    func() time.Time
}

// NewChat creates a chat for id. The session is loaded lazily.
func NewChat(id string, store *storage.Store, composer *prompt.Composer, streamer Streamer, opts Options) *Chat {
	c := &Chat{
		id:       id,
		store:    store,
		composer: composer,
		streamer: streamer,
		models:   opts.Models,
		mode:     opts.Mode,
		humor:    opts.Humor,
		logger:   opts.Logger,
		rec:      opts.Recorder,
		now:      opts.Now,
	}
	if len(c.models) == 0 {
		c.models = cloud.DefaultModels
	}
	if !c.mode.Valid() {
		c.mode = model.DefaultThinkingMode
	}
	if c.composer == nil {
		c.composer = prompt.NewComposer()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.logger = c.logger.With(zap.String("session", id))
	c.touch()
	return c
}

// ID returns the session id.
func (c *Chat) ID() string {
	return c.id
}

// State returns the current turn phase.
func (c *Chat) State() State {
	return State(c.state.Load())
}

// LastActive returns when the chat was last used.
func (c *Chat) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

func (c *Chat) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Chat) touch() {
	c.lastActive.Store(c.now().UnixNano())
}

// ensureLoaded loads the session on first use. Must be called with mu held.
func (c *Chat) ensureLoaded(ctx context.Context) *model.Session {
	if c.sess != nil {
		return c.sess
	}

	sess, err := c.store.Load(ctx, c.id)
	if err != nil {
		c.rec.LoadDegraded()
		c.logger.Warn("session load degraded, starting fresh", zap.Error(err))
	}
	if sess.Stored && sess.ThinkingLevel.Valid() {
		c.mode = sess.ThinkingLevel
	} else {
		sess.ThinkingLevel = c.mode
	}
	c.sess = sess
	return sess
}

// =============================================================================
// TURN
// =============================================================================

// Turn sends text and streams the reply, calling onFragment for every
// fragment as it arrives. onFragment may be nil.
//
// Failures before the first byte return an error and leave history
// untouched. A transport failure mid-stream returns a *cloud.StreamError
// and also leaves history untouched. Cancelling ctx mid-stream finalizes
// the partial reply and returns a Result with Partial set.
func (c *Chat) Turn(ctx context.Context, text string, opts TurnOptions, onFragment func(string)) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.setState(StateIdle)
	defer c.touch()

	start := c.now()

	// Composing
	c.setState(StateComposing)
	sess := c.ensureLoaded(ctx)

	prevStyle := sess.CurrentStyle()

	mode := c.mode
	if opts.Mode.Valid() {
		mode = opts.Mode
	}
	humor := c.humor
	if opts.Humor != nil {
		humor = *opts.Humor
	}
	style := sess.CurrentStyle()
	if opts.Style.Valid() {
		style = opts.Style
	}

	messages := c.composer.Compose(prompt.Request{
		Session:  sess,
		Mode:     mode,
		Style:    style,
		Humor:    humor,
		UserText: text,
	})
	sampling := prompt.SamplingFor(mode)
	modelName := c.models[c.modelIdx]
	payload := cloud.Payload{
		Model:       modelName,
		Messages:    messages,
		Stream:      true,
		Temperature: sampling.Temperature,
		MaxTokens:   sampling.MaxTokens,
	}

	if err := ctx.Err(); err != nil {
		return nil, c.failed(modelName, start, 0, err)
	}

	// Streaming
	c.setState(StateStreaming)
	body, err := c.streamer.OpenStream(ctx, payload)
	if err != nil {
		return nil, c.failed(modelName, start, 0, err)
	}
	defer body.Close()

	res := &Result{Model: modelName, Mode: mode, PreviousStyle: prevStyle}
	dec := cloud.NewDecoder(body)
	var reply strings.Builder

	for {
		fragment, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				res.Partial = true
				break
			}
			c.rec.SkippedFrames(dec.Skipped())
			return nil, c.failed(modelName, start, res.Fragments, &cloud.StreamError{Partial: reply.String(), Err: err})
		}

		if res.Fragments == 0 {
			res.FirstFragment = c.now().Sub(start)
			c.rec.ObserveFirstFragment(modelName, res.FirstFragment)
		}
		res.Fragments++
		reply.WriteString(fragment)
		if onFragment != nil {
			onFragment(fragment)
		}

		if ctx.Err() != nil {
			res.Partial = true
			break
		}
	}
	res.Skipped = dec.Skipped()
	c.rec.SkippedFrames(res.Skipped)

	// Finalizing
	c.setState(StateFinalizing)
	res.Reply = reply.String()

	sess.AppendTurn(text, res.Reply, res.Partial)
	sess.ThinkingLevel = c.mode

	// The tier is read from the history as it will be stored.
	c.store.Trim(sess)
	res.Style = sess.CurrentStyle()
	res.StyleChanged = res.Style.Rank() > prevStyle.Rank()
	sess.Style = res.Style

	if err := c.store.Save(context.WithoutCancel(ctx), sess); err != nil {
		res.SaveErr = err
		c.rec.SaveFailed()
		c.logger.Warn("session save failed", zap.Error(err))
	}

	res.Elapsed = c.now().Sub(start)
	outcome := telemetry.OutcomeComplete
	if res.Partial {
		outcome = telemetry.OutcomePartial
	}
	c.rec.ObserveTurn(modelName, outcome, res.Elapsed, res.Fragments)

	c.logger.Debug("turn finalized",
		zap.String("model", modelName),
		zap.String("mode", mode.String()),
		zap.Bool("partial", res.Partial),
		zap.Int("fragments", res.Fragments),
		zap.Int("skipped", res.Skipped),
		zap.Duration("elapsed", res.Elapsed))

	return res, nil
}

// failed records a turn that ended without touching history.
func (c *Chat) failed(modelName string, start time.Time, fragments int, err error) error {
	c.rec.ObserveTurn(modelName, telemetry.OutcomeFailed, c.now().Sub(start), fragments)
	if errors.Is(err, context.Canceled) {
		c.logger.Debug("turn cancelled before streaming", zap.Error(err))
	} else {
		c.logger.Warn("turn failed", zap.String("model", modelName), zap.Error(err))
	}
	return err
}

// =============================================================================
// CONTROL OPERATIONS
// =============================================================================

// Reset clears stored state and starts a fresh session. The in-memory
// session is reset even when the store cannot delete the record.
func (c *Chat) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	err := c.store.Clear(ctx, c.id)
	c.sess = c.store.Fresh(c.id)
	c.sess.ThinkingLevel = c.mode
	if err != nil {
		c.logger.Warn("session clear failed", zap.Error(err))
	}
	return err
}

// StyleInfo returns the current tier and the next threshold.
func (c *Chat) StyleInfo(ctx context.Context) StyleInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess := c.ensureLoaded(ctx)
	count := sess.UserCount()
	info := StyleInfo{Style: model.StyleFor(count), UserCount: count}
	info.Next, info.NextAt, info.HasNext = model.NextStyleAt(count)
	return info
}

// Memories returns up to n of the newest memory entries, oldest first.
func (c *Chat) Memories(ctx context.Context, n int) []model.MemoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureLoaded(ctx).RecentMemories(n)
}

// Session returns a copy of the session state.
func (c *Chat) Session(ctx context.Context) *model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureLoaded(ctx).Clone()
}

// History returns a copy of the message history.
func (c *Chat) History(ctx context.Context) []model.Message {
	return c.Session(ctx).Messages
}

// Model returns the model used for the next turn.
func (c *Chat) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.models[c.modelIdx]
}

// Models returns the rotation list.
func (c *Chat) Models() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.models...)
}

// RotateModel switches to the next model in the list, wrapping around, and
// returns it.
func (c *Chat) RotateModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modelIdx = (c.modelIdx + 1) % len(c.models)
	c.logger.Info("model rotated", zap.String("model", c.models[c.modelIdx]))
	return c.models[c.modelIdx]
}

// ThinkingMode returns the chat's thinking mode.
func (c *Chat) ThinkingMode() model.ThinkingMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetThinkingMode switches mode and persists it as the thinking level.
// Unknown modes fall back to deep.
func (c *Chat) SetThinkingMode(ctx context.Context, mode model.ThinkingMode) error {
	mode, _ = model.ParseThinkingMode(string(mode))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	sess := c.ensureLoaded(ctx)
	c.mode = mode
	sess.ThinkingLevel = mode
	if err := c.store.Save(ctx, sess); err != nil {
		c.rec.SaveFailed()
		return err
	}
	return nil
}

// Humor reports whether humor is enabled.
func (c *Chat) Humor() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.humor
}

// SetHumor enables or disables humor. Deep mode ignores it.
func (c *Chat) SetHumor(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.humor = on
}

// Flush saves the session if it has been loaded.
func (c *Chat) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return nil
	}
	return c.store.Save(ctx, c.sess)
}
