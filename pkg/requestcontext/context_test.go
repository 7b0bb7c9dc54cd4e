package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "clarence/pkg/domain"
)

func TestAccessors_DefaultToZeroValues(t *testing.T) {
	ctx := context.Background()
	assert.True(t, UserID(ctx).IsNil())
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, ClientIP(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestAccessors_RoundTrip(t *testing.T) {
	userID := id.NewUserID()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	ctx := WithUserID(context.Background(), userID)
	ctx = WithPhone(ctx, "+15551234567")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithClientMetadata(ctx, "10.0.0.1", "curl/8")
	ctx = WithTime(ctx, fixed)

	assert.Equal(t, userID, UserID(ctx))
	assert.Equal(t, "+15551234567", Phone(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "10.0.0.1", ClientIP(ctx))
	assert.Equal(t, "curl/8", UserAgent(ctx))
	assert.Equal(t, fixed, Now(ctx))
}

func TestDetach_SurvivesCancellationAndDropsRequestTime(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	parent, cancel := context.WithCancel(WithRequestID(WithTime(context.Background(), fixed), "req-9"))
	detached := Detach(parent)
	cancel()

	assert.NoError(t, detached.Err())
	assert.Equal(t, "req-9", RequestID(detached))
	assert.NotEqual(t, fixed, Now(detached))
}
