package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopNeverFails(t *testing.T) {
	assert.NoError(t, Noop{}.Send("a@example.com", "subject", "body"))
}

func TestSMTPReportsDialFailure(t *testing.T) {
	m := NewSMTP("127.0.0.1", 1, "", "", "auctions@example.com")
	err := m.Send("dealer@example.com", "New bid", "A bid of £7,200 was placed.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dealer@example.com")
}
