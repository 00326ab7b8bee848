package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitecompiler/internal/config"
	"git.home.luguber.info/inful/sitecompiler/internal/foundation/errors"
)

func TestNewPolicy(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, 5*time.Second, 2*time.Second, 5)
	assert.Equal(t, Policy{Mode: config.RetryBackoffFixed, Initial: 2 * time.Second, Max: 2 * time.Second, MaxRetries: 5}, p)

	assert.Equal(t, DefaultPolicy(), NewPolicy("weird", 0, 0, -1))
}

func TestDelay(t *testing.T) {
	ms := time.Millisecond
	tests := []struct {
		name  string
		mode  config.RetryBackoff
		want  []time.Duration
		limit time.Duration
	}{
		{"fixed", config.RetryBackoffFixed, []time.Duration{0, 100 * ms, 100 * ms, 100 * ms}, 500 * ms},
		{"linear", config.RetryBackoffLinear, []time.Duration{0, 100 * ms, 200 * ms, 250 * ms}, 250 * ms},
		{"exponential", config.RetryBackoffExponential, []time.Duration{0, 100 * ms, 200 * ms, 300 * ms}, 300 * ms},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPolicy(tt.mode, 100*ms, tt.limit, 3)
			for retry, want := range tt.want {
				assert.Equal(t, want, p.Delay(retry), "retry %d", retry)
			}
			assert.Zero(t, p.Delay(-1))
			assert.LessOrEqual(t, p.Delay(64), tt.limit)
		})
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 3)
	calls := 0
	err := p.Do(t.Context(), func() error {
		calls++
		if calls < 3 {
			return stderrors.New("refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoGivesUp(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 2)
	calls := 0
	refused := stderrors.New("refused")
	err := p.Do(t.Context(), func() error {
		calls++
		return refused
	})
	require.ErrorIs(t, err, refused)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 5)
	permanent := errors.ConfigError("bad url").WithRetry(errors.RetryNever).Build()
	calls := 0
	err := p.Do(t.Context(), func() error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsContext(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Hour, time.Hour, 5)
	ctx, cancel := context.WithCancel(t.Context())
	calls := 0
	err := p.Do(ctx, func() error {
		calls++
		cancel()
		return stderrors.New("refused")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
