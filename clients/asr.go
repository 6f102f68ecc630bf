package clients

import (
	"context"
)

type TransSeg struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}
type ASRResp struct {
	Segments []TransSeg `json:"segments"`
	Language string     `json:"language"`
}

// ASR uploads a WAV file to the speech-to-text service's /transcribe route.
// An empty language lets the service detect it.
func (h *HTTP) ASR(ctx context.Context, url, wavPath, language string) (*ASRResp, error) {
	f := form{fileField: "file", filePath: wavPath}
	if language != "" {
		f.fields = map[string]string{"language": language}
	}
	resp, err := h.postForm(ctx, "asr", url+"/transcribe", f)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out ASRResp
	if err := decode(resp.Body, "asr", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
