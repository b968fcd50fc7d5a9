package ticket

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "presence/pkg/domain"
	dErrors "presence/pkg/domain-errors"
	"presence/pkg/platform/sentinel"
)

func TestIssueAndVerify(t *testing.T) {
	issuer, err := NewIssuer("ticket-key", 24*time.Hour)
	require.NoError(t, err)

	user := id.UserID(uuid.New())
	event := id.EventID(uuid.New())
	now := time.Unix(1_700_000_000, 0)

	tk, err := issuer.Issue(user, event, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(24*time.Hour), tk.ExpiresAt)

	t.Run("valid during its window", func(t *testing.T) {
		assert.NoError(t, issuer.Verify(tk.Token, user, event, now.Add(time.Hour)))
	})

	t.Run("check-in after expiry", func(t *testing.T) {
		err := issuer.Verify(tk.Token, user, event, now.Add(25*time.Hour))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.True(t, errors.Is(err, sentinel.ErrExpired))
	})

	t.Run("check-in before issue", func(t *testing.T) {
		err := issuer.Verify(tk.Token, user, event, now.Add(-time.Hour))
		assert.True(t, errors.Is(err, sentinel.ErrExpired))
	})

	t.Run("other user", func(t *testing.T) {
		err := issuer.Verify(tk.Token, id.UserID(uuid.New()), event, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("other event", func(t *testing.T) {
		err := issuer.Verify(tk.Token, user, id.EventID(uuid.New()), now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("other key", func(t *testing.T) {
		other, err := NewIssuer("another-key", time.Hour)
		require.NoError(t, err)
		err = other.Verify(tk.Token, user, event, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("missing", func(t *testing.T) {
		assert.True(t, dErrors.HasCode(issuer.Verify("", user, event, now), dErrors.CodeUnauthorized))
	})
}

func TestNewIssuerValidates(t *testing.T) {
	_, err := NewIssuer("", time.Hour)
	assert.Error(t, err)
	_, err = NewIssuer("k", 0)
	assert.Error(t, err)
}
