package secrets

import (
	"context"
	"fmt"

	"github.com/1password/onepassword-sdk-go"
)

const (
	integrationName    = "cfupdater"
	integrationVersion = "v1.0.0"
)

// OnePassword resolves op:// references through a 1Password service
// account.
type OnePassword struct {
	client *onepassword.Client
}

func NewOnePassword(ctx context.Context, token string) (*OnePassword, error) {
	client, err := onepassword.NewClient(ctx,
		onepassword.WithServiceAccountToken(token),
		onepassword.WithIntegrationInfo(integrationName, integrationVersion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed authenticating service account: %w", err)
	}

	return &OnePassword{client: client}, nil
}

func (o *OnePassword) Resolve(ctx context.Context, ref string) (string, error) {
	return o.client.Secrets.Resolve(ctx, ref)
}
