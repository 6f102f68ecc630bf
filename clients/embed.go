package clients

import (
	"context"
	"fmt"
)

// --- Speaker embedding (/embed) ---
type EmbedResp struct {
	Embedding []float64 `json:"embedding"`
	Model     string    `json:"model,omitempty"`
}

// Embed returns the fixed-length voice embedding of a WAV file.
func (h *HTTP) Embed(ctx context.Context, url, wavPath string) ([]float64, error) {
	resp, err := h.postForm(ctx, "embed", url+"/embed", form{fileField: "file", filePath: wavPath})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out EmbedResp
	if err := decode(resp.Body, "embed", &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embed: %w: empty embedding", ErrDecode)
	}
	return out.Embedding, nil
}
