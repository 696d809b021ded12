package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"carmon/internal/config"
	"carmon/internal/perrors"
)

// SampleInfo is one row of a bulk sample lookup answer.
type SampleInfo struct {
	ID           json.Number `json:"id"`
	SampleNumber string      `json:"sample_number"`
}

// LookupSamples asks the portal for the samples matching the given sample
// numbers. Callers chunk the numbers; one call is one page.
func (c *Client) LookupSamples(ctx context.Context, creds config.Credentials, numbers []string) ([]SampleInfo, error) {
	const op = "portal.LookupSamples"
	body := map[string][]string{"filter": numbers}
	var out []SampleInfo
	if err := c.postJSON(ctx, op, c.paths.SampleLookup, creds, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChangeStatus sets one status for a page of sample numbers. The endpoint
// takes a multipart form, not JSON; the token rides along as a form field
// the same way the portal's own UI submits it.
func (c *Client) ChangeStatus(ctx context.Context, creds config.Credentials, numbers []string, statusCode, defectID string) error {
	const op = "portal.ChangeStatus"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"uploads":   strings.Join(numbers, ","),
		"status":    statusCode,
		"defect_id": defectID,
		"auth_key":  creds.Token,
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return perrors.Wrap(perrors.KindTransport, op, err, "failed to encode form field %s", name)
		}
	}
	if err := mw.Close(); err != nil {
		return perrors.Wrap(perrors.KindTransport, op, err, "failed to finish form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(c.paths.StatusChange), &buf)
	if err != nil {
		return perrors.Wrap(perrors.KindTransport, op, err, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+creds.Token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var accepted bool
	if err := c.do(op, req, &accepted); err != nil {
		return err
	}
	if !accepted {
		return perrors.New(perrors.KindTransport, op,
			"portal refused the status change for %d samples", len(numbers))
	}
	return nil
}

// ConclusionChange is one sample's new conclusion.
type ConclusionChange struct {
	SampleID   string `json:"sample_id"`
	Conclusion string `json:"conclusion"`
}

// ChangeConclusions sets conclusions for a page of samples.
func (c *Client) ChangeConclusions(ctx context.Context, creds config.Credentials, changes []ConclusionChange) error {
	const op = "portal.ChangeConclusions"
	body := map[string][]ConclusionChange{"conclusions": changes}
	return c.postJSON(ctx, op, c.paths.ConclusionChange, creds, body, nil)
}
