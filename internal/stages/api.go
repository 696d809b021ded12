package stages

import (
	"context"

	"carmon/internal/config"
	"carmon/internal/portal"
)

// PortalAPI is the slice of the portal client the sync stages need. Tests
// substitute a mock; production passes *portal.Client.
type PortalAPI interface {
	LookupSamples(ctx context.Context, creds config.Credentials, numbers []string) ([]portal.SampleInfo, error)
	ChangeStatus(ctx context.Context, creds config.Credentials, numbers []string, statusCode, defectID string) error
	ChangeConclusions(ctx context.Context, creds config.Credentials, changes []portal.ConclusionChange) error
	UploadSequence(ctx context.Context, creds config.Credentials, upload portal.UploadRequest) error
}

var _ PortalAPI = (*portal.Client)(nil)
