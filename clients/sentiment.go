package clients

import (
	"context"
)

// --- Sentiment (/detect) ---
type SentimentReq struct {
	Text string `json:"text"`
}
type SentimentResp struct {
	Polarity float64 `json:"polarity"`
	Label    string  `json:"label,omitempty"`
}

func (h *HTTP) Sentiment(ctx context.Context, url, text string) (*SentimentResp, error) {
	var out SentimentResp
	if err := h.PostJSON(ctx, "sentiment", url+"/detect", nil, SentimentReq{Text: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
