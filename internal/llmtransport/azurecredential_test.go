package llmtransport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

type fakeTokenCredential struct {
	token  azcore.AccessToken
	err    error
	scopes []string
}

func (f *fakeTokenCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	f.scopes = opts.Scopes
	if f.err != nil {
		return azcore.AccessToken{}, f.err
	}
	return f.token, nil
}

func TestAzureCredentialProvider_ExchangesScopeForToken(t *testing.T) {
	fake := &fakeTokenCredential{token: azcore.AccessToken{Token: "abc123", ExpiresOn: time.Now().Add(time.Hour)}}
	provider := NewAzureCredentialProvider(fake)

	cred, err := provider.GetCredential(context.Background(), "https://cognitiveservices.azure.com/.default")

	require.NoError(t, err)
	assert.Equal(t, "abc123", cred.Token)
	assert.Equal(t, []string{"https://cognitiveservices.azure.com/.default"}, fake.scopes)
}

func TestAzureCredentialProvider_PropagatesError(t *testing.T) {
	fake := &fakeTokenCredential{err: errors.New("token exchange failed")}
	provider := NewAzureCredentialProvider(fake)

	_, err := provider.GetCredential(context.Background(), "scope")
	assert.Error(t, err)
}

func TestHTTPProvider_RefreshesTokenFromCredentials(t *testing.T) {
	fake := &fakeTokenCredential{token: azcore.AccessToken{Token: "fresh-token", ExpiresOn: time.Now().Add(time.Hour)}}
	p := NewHTTPProviderWithCredentials("http://example.invalid", "scope", NewAzureCredentialProvider(fake))

	require.NoError(t, p.refreshToken(context.Background()))
	assert.Equal(t, "fresh-token", p.Token)

	// A cached, unexpired token is not re-fetched.
	fake.token.Token = "should-not-be-used"
	require.NoError(t, p.refreshToken(context.Background()))
	assert.Equal(t, "fresh-token", p.Token)
}
