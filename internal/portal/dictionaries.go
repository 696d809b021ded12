package portal

import (
	"context"

	"carmon/internal/config"
)

// dictionaryEntry is the wire shape of one portal dictionary element.
type dictionaryEntry struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

func toVocabulary(entries []dictionaryEntry) config.Vocabulary {
	out := make(config.Vocabulary, len(entries))
	for i, e := range entries {
		out[i] = config.VocabEntry{Text: e.Text, Code: e.Value}
	}
	return out
}

// StatusTypes fetches the portal's current status dictionary.
func (c *Client) StatusTypes(ctx context.Context, creds config.Credentials) (config.Vocabulary, error) {
	const op = "portal.StatusTypes"
	var entries []dictionaryEntry
	if err := c.getJSON(ctx, op, c.paths.StatusTypes, creds, &entries); err != nil {
		return nil, err
	}
	return toVocabulary(entries), nil
}

// ConclusionTypes fetches the portal's current conclusion dictionary.
func (c *Client) ConclusionTypes(ctx context.Context, creds config.Credentials) (config.Vocabulary, error) {
	const op = "portal.ConclusionTypes"
	var entries []dictionaryEntry
	if err := c.getJSON(ctx, op, c.paths.ConclusionTypes, creds, &entries); err != nil {
		return nil, err
	}
	return toVocabulary(entries), nil
}

// VerifyStatusTypes compares the locally pinned status vocabulary against
// the portal's. On drift it returns the fresh vocabulary; the portal
// revision is authoritative for the codes pushed in the same run.
func (c *Client) VerifyStatusTypes(ctx context.Context, creds config.Credentials, local config.Vocabulary) (config.Vocabulary, bool, error) {
	remote, err := c.StatusTypes(ctx, creds)
	if err != nil {
		return nil, false, err
	}
	return remote, !local.Equal(remote), nil
}

// VerifyConclusionTypes is VerifyStatusTypes for the conclusion dictionary.
func (c *Client) VerifyConclusionTypes(ctx context.Context, creds config.Credentials, local config.Vocabulary) (config.Vocabulary, bool, error) {
	remote, err := c.ConclusionTypes(ctx, creds)
	if err != nil {
		return nil, false, err
	}
	return remote, !local.Equal(remote), nil
}
