package llmtransport

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

// AzureCredentialProvider adapts an azcore.TokenCredential to the
// CredentialProvider interface.
// Callers construct the underlying azcore.TokenCredential themselves
// (managed identity, client secret, whatever fits their deployment) and
// hand it to NewAzureCredentialProvider; this package never decides how
// a credential is minted, only how it is exchanged for a token.
type AzureCredentialProvider struct {
	credential azcore.TokenCredential
}

// NewAzureCredentialProvider wraps an already-constructed
// azcore.TokenCredential.
func NewAzureCredentialProvider(credential azcore.TokenCredential) *AzureCredentialProvider {
	return &AzureCredentialProvider{credential: credential}
}

// GetCredential exchanges scope for a bearer token via the wrapped
// azcore.TokenCredential.
func (p *AzureCredentialProvider) GetCredential(ctx context.Context, scope string) (Credential, error) {
	token, err := p.credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{scope}})
	if err != nil {
		return Credential{}, err
	}
	return Credential{Token: token.Token, ExpiresAt: token.ExpiresOn}, nil
}
