package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"carmon/internal/config"
	"carmon/internal/fasta"
	"carmon/internal/perrors"
)

// SampleData are the fixed per-sample metadata fields of a sequence upload.
type SampleData struct {
	SequenceName    string `json:"sequence_name"`
	SampleType      string `json:"sample_type"`
	SeqArea         string `json:"seq_area"`
	Author          string `json:"author"`
	GenomPickMethod string `json:"genom_pick_method"`
	MethodReadyLib  string `json:"method_ready_lib"`
	Tech            string `json:"tech"`
	Valid           bool   `json:"valid"`
	SeqID           string `json:"seq_id"`
}

// UploadRequest is one sequence upload. Sequence holds FASTA text with the
// body wrapped at the configured line width.
type UploadRequest struct {
	SampleNumber string     `json:"sample_number"`
	SampleData   SampleData `json:"sample_data"`
	Sequence     string     `json:"sequence"`
}

// BuildUploadRequest assembles the upload payload for one sample.
func BuildUploadRequest(up config.UploadConfig, sampleNumber, sequenceName, seqID, sequence string) UploadRequest {
	header := up.SequencePrefix + sequenceName
	return UploadRequest{
		SampleNumber: sampleNumber,
		SampleData: SampleData{
			SequenceName:    sequenceName,
			SampleType:      up.SampleType,
			SeqArea:         up.SeqArea,
			Author:          up.Author,
			GenomPickMethod: up.GenomPickMethod,
			MethodReadyLib:  up.MethodReadyLib,
			Tech:            up.Tech,
			Valid:           true,
			SeqID:           seqID,
		},
		Sequence: fmt.Sprintf(">%s\n%s", header, fasta.Wrap(sequence, up.LineWidth)),
	}
}

// UploadSequence pushes one sequence with basic auth. This is the only
// portal operation using the login/password pair instead of the token.
func (c *Client) UploadSequence(ctx context.Context, creds config.Credentials, upload UploadRequest) error {
	const op = "portal.UploadSequence"
	if !creds.HasBasic() {
		return perrors.New(perrors.KindConfig, op,
			"no upload credentials configured, set %s and %s", config.EnvLogin, config.EnvPassword)
	}

	payload, err := json.Marshal(upload)
	if err != nil {
		return perrors.Wrap(perrors.KindTransport, op, err, "failed to encode upload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(c.paths.Upload), bytes.NewReader(payload))
	if err != nil {
		return perrors.Wrap(perrors.KindTransport, op, err, "failed to build request")
	}
	req.SetBasicAuth(creds.Login, creds.Password)
	req.Header.Set("Content-Type", "application/json")
	return c.do(op, req, nil)
}
