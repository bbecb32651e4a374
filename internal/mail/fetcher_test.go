package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-inbox-go/internal/config"
	"campaign-inbox-go/internal/model"
)

func TestNewFetcherFactoryDefaultsToIMAP(t *testing.T) {
	factory, err := NewFetcherFactory(&config.Config{})
	require.NoError(t, err)

	f := factory(model.Mailbox{Email: "sales@ourco.pl", IMAPHost: "imap.ourco.pl"})
	_, ok := f.(*IMAPFetcher)
	assert.True(t, ok)
	assert.Equal(t, "sales@ourco.pl", f.Mailbox())
}

func TestNewFetcherFactorySelectsGmailForConfiguredAccount(t *testing.T) {
	cfg := &config.Config{Gmail: config.GmailConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "token",
		UserEmail:    "Team@OurCo.pl",
	}}
	factory, err := NewFetcherFactory(cfg)
	require.NoError(t, err)

	f := factory(model.Mailbox{Email: "team@ourco.pl"})
	_, ok := f.(*GmailFetcher)
	assert.True(t, ok, "the configured Gmail account must use the Gmail API")

	f = factory(model.Mailbox{Email: "other@ourco.pl"})
	_, ok = f.(*IMAPFetcher)
	assert.True(t, ok, "every other mailbox stays on IMAP")
}
