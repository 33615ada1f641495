package tagscript

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/itsatony/go-tagscript/internal"
)

// CooldownBlock rate limits a tag. Each key gets rate uses per period; once
// they are used up the block fails the whole Process call with a cooldown
// error until the bucket refills.
//
//	{cooldown(<rate>,<seconds>):<key>|[message]}
//
// The message may use {key} and {retry_after}. Buckets are namespaced by the
// cooldown key of the call (see WithCooldownKey), falling back to the
// original message.
type CooldownBlock struct {
	store CooldownStore
	now   func() time.Time
}

// NewCooldownBlock creates a cooldown block backed by store. A nil store gets
// a fresh MemoryCooldownStore.
func NewCooldownBlock(store CooldownStore) *CooldownBlock {
	if store == nil {
		store = NewMemoryCooldownStore()
	}
	return &CooldownBlock{store: store, now: time.Now}
}

// Accepts implements Block.
func (b *CooldownBlock) Accepts(ctx *Context) bool {
	return ctx.Verb.Is(DeclCooldown)
}

// Declarations implements Declarer.
func (b *CooldownBlock) Declarations() []string {
	return []string{DeclCooldown}
}

// Process implements Block.
func (b *CooldownBlock) Process(ctx *Context) (string, bool, error) {
	v := ctx.Verb
	if v.Parameter == StringEmpty || v.Payload == StringEmpty {
		return "", false, nil
	}

	rateText, perText, found := strings.Cut(v.Parameter, internal.StrComma)
	if !found {
		return "", false, nil
	}
	rate, errRate := strconv.ParseFloat(strings.TrimSpace(rateText), 64)
	per, errPer := strconv.Atoi(strings.TrimSpace(perText))
	if errRate != nil || errPer != nil || rate < 1 || per < 1 {
		return "", false, nil
	}

	key, message := v.Payload, StringEmpty
	if parts, ok := internal.SplitPayload(v.Payload, false, 1); ok {
		key, message = parts[0], parts[1]
	}

	namespace, ok := ctx.Response.ExtraString(ExtraKeyCooldown)
	if !ok {
		namespace = ctx.OriginalMessage
	}

	retryAfter, err := b.store.Take(ctx.Ctx(), namespace, key, int(rate), time.Duration(per)*time.Second, b.now())
	if err != nil {
		return "", false, err
	}
	if retryAfter <= 0 {
		return StringEmpty, true, nil
	}

	if message == StringEmpty {
		message = DefaultCooldownMessage
	}
	message = strings.NewReplacer(
		CooldownPlaceholderKey, key,
		CooldownPlaceholderRetryAfter, formatRetryAfter(retryAfter),
	).Replace(message)
	return "", false, NewCooldownExceededError(message, key, retryAfter)
}

// formatRetryAfter renders seconds rounded to two decimals.
func formatRetryAfter(d time.Duration) string {
	return strconv.FormatFloat(math.Round(d.Seconds()*100)/100, 'f', -1, 64)
}
